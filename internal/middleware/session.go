// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"net/http"

	"github.com/hitoshi/issuedesk/internal/model"
)

// AuthCookieName はセッショントークンを保持するCookieの名前。
const AuthCookieName = "auth_token"

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// userContextKey はリクエストコンテキストに解決済みユーザーを格納するためのキー。
var userContextKey = contextKey("current_user")

// UserResolver はセッショントークンからユーザーを解決するインターフェース。
// auth.Serviceの部分集合として定義する。
// トークン検証後にユーザーレコード全体をストアから再読込し、
// ロール変更を即座に反映させる実装であること。
type UserResolver interface {
	ResolveUser(ctx context.Context, token string) *model.User
}

// NewSessionMiddleware はHTTP Only Cookieからセッショントークンを読み取り、
// 検証とユーザーレコードの再読込を行うミドルウェアを返す。
// 解決済みユーザーをリクエストコンテキストに注入する。
// Cookie欠如・無効トークン・ユーザー不存在はすべて一律に401として扱う。
func NewSessionMiddleware(resolver UserResolver) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(AuthCookieName)
			if err != nil || cookie.Value == "" {
				WriteError(w, model.NewAuthenticationError())
				return
			}

			user := resolver.ResolveUser(r.Context(), cookie.Value)
			if user == nil {
				WriteError(w, model.NewAuthenticationError())
				return
			}

			ctx := context.WithValue(r.Context(), userContextKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserFromContext はリクエストコンテキストから解決済みユーザーを取得する。
// セッションミドルウェアを通過したリクエストでのみ有効。
func UserFromContext(ctx context.Context) (*model.User, bool) {
	user, ok := ctx.Value(userContextKey).(*model.User)
	if !ok || user == nil {
		return nil, false
	}
	return user, true
}

// ContextWithUser はコンテキストにユーザーを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithUser(ctx context.Context, user *model.User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

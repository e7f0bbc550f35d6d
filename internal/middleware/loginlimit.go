package middleware

import (
	"log/slog"
	"math"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/hitoshi/issuedesk/internal/model"
)

// LoginLimiterConfig はログイン試行レート制限の設定。
type LoginLimiterConfig struct {
	Limit  int           // ウィンドウあたりの許可リクエスト数
	Window time.Duration // 固定ウィンドウの幅
}

// DefaultLoginLimiterConfig はデフォルトのログインレート制限設定を返す。
// 要件: 同一クライアントからのログイン試行は60秒あたり5回まで。
func DefaultLoginLimiterConfig() LoginLimiterConfig {
	return LoginLimiterConfig{
		Limit:  5,
		Window: 60 * time.Second,
	}
}

// RateLimitRecorder はレート制限による拒否のメトリクス記録インターフェース。
// metrics.Collectorの部分集合として定義する。
type RateLimitRecorder interface {
	RecordRateLimited(limiter string)
}

// loginLimitEntry はクライアントごとの試行回数とウィンドウのリセット時刻を保持する。
type loginLimitEntry struct {
	count         int
	windowResetAt time.Time
}

// LoginRateLimiter はログイン等の機微なエンドポイント向けの
// 固定バケット方式スライディングウィンドウレート制限を提供する。
//
// 単一プロセスのインメモリ実装であり、複数インスタンス構成での
// 正確性は保証しない（既知の制限）。外部カウンタストアに差し替える場合も
// Check のallow/denyという契約は変わらない。
//
// 明示的に構築して注入するコンポーネントであり、シングルトンにはしない。
// テストでは独立したインスタンスを生成できる。
type LoginRateLimiter struct {
	config LoginLimiterConfig

	mu      sync.Mutex
	entries map[string]*loginLimitEntry

	// recorder は拒否メトリクスの記録先。nil可。
	recorder RateLimitRecorder

	// now はテストで時刻を差し替えるためのフック。
	now func() time.Time
}

// NewLoginRateLimiter は新しいLoginRateLimiterを生成する。
func NewLoginRateLimiter(config LoginLimiterConfig) *LoginRateLimiter {
	return &LoginRateLimiter{
		config:  config,
		entries: make(map[string]*loginLimitEntry),
		now:     time.Now,
	}
}

// Check はクライアントキーに対するリクエストの許可可否を判定する。
// 拒否の場合は再試行可能になるまでの秒数を返す。
//
// 呼び出しごとに、ウィンドウが完全に経過したエントリを遅延削除する。
// エントリが存在しなければカウント0で新規作成し、上限到達済みなら拒否、
// そうでなければカウントを増やして許可する。
func (l *LoginRateLimiter) Check(clientKey string) (allowed bool, retryAfterSec int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	// 内部状態の破損時はトラフィック全体を塞ぐより開放を選ぶ（フェイルオープン）
	if l.entries == nil {
		l.entries = make(map[string]*loginLimitEntry)
	}

	now := l.now()

	// 期限切れエントリの遅延削除
	for key, e := range l.entries {
		if !e.windowResetAt.After(now) {
			delete(l.entries, key)
		}
	}

	e, exists := l.entries[clientKey]
	if !exists {
		e = &loginLimitEntry{
			count:         0,
			windowResetAt: now.Add(l.config.Window),
		}
		l.entries[clientKey] = e
	}

	if e.count >= l.config.Limit {
		retry := int(math.Ceil(e.windowResetAt.Sub(now).Seconds()))
		if retry < 1 {
			retry = 1
		}
		return false, retry
	}

	e.count++
	return true, 0
}

// EntryCount は現在保持しているエントリ数を返す。テストおよびメトリクス用。
func (l *LoginRateLimiter) EntryCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// SetRecorder は拒否メトリクスの記録先を設定する。
func (l *LoginRateLimiter) SetRecorder(r RateLimitRecorder) {
	l.recorder = r
}

// Middleware はクライアントIPをキーとするレート制限ミドルウェアを返す。
// 上限超過時は429とRetry-Afterヘッダーを返す。
// セッション確立前のエンドポイント（ログイン等）に適用するため、
// キーはユーザーIDではなく送信元アドレスとする。
func (l *LoginRateLimiter) Middleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientKey := clientIP(r)

			allowed, retryAfter := l.Check(clientKey)
			if !allowed {
				slog.Warn("login rate limit exceeded",
					slog.String("client", clientKey),
					slog.Int("retry_after_sec", retryAfter),
				)
				if l.recorder != nil {
					l.recorder.RecordRateLimited("login")
				}
				WriteError(w, model.NewRateLimitError(retryAfter))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// clientIP はリクエストの送信元クライアントIPを特定する。
// リバースプロキシ配下ではX-Forwarded-Forの先頭値を使用する。
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if first, _, found := strings.Cut(xff, ","); found || first != "" {
			return strings.TrimSpace(first)
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

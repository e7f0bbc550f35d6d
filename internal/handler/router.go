package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/issuedesk/internal/auth"
	"github.com/hitoshi/issuedesk/internal/issue"
	"github.com/hitoshi/issuedesk/internal/issuetype"
	"github.com/hitoshi/issuedesk/internal/metrics"
	"github.com/hitoshi/issuedesk/internal/middleware"
	"github.com/hitoshi/issuedesk/internal/repository"
	"github.com/hitoshi/issuedesk/internal/user"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	UserResolver      middleware.UserResolver
	LoginLimiter      *middleware.LoginRateLimiter
	RateLimiter       *middleware.RateLimiter
	CORSAllowedOrigin string
	CSRFConfig        middleware.CSRFConfig
	Logger            *slog.Logger

	// メトリクス
	Collector *metrics.Collector
	Gatherer  prometheus.Gatherer

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// ドメインサービス
	IssueService     IssueServiceInterface
	IssueTypeService IssueTypeServiceInterface
	UserService      UserServiceInterface
	AnalyticsRepo    repository.AnalyticsRepository

	// ヘルスチェック用のDB死活確認
	DBPing func() error
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RequestID → SecurityHeaders → CORS → Logging → Recovery → Metrics
//
// 認証が必要なルートにはさらに Session → RateLimit → CSRF を適用する。
// ログインエンドポイントのみ固定ウィンドウのログインレート制限を追加する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRequestIDMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	if deps.Logger != nil {
		r.Use(middleware.NewLoggingMiddleware(deps.Logger))
	}
	r.Use(middleware.NewRecoveryMiddleware())
	if deps.Collector != nil {
		r.Use(middleware.NewMetricsMiddleware(deps.Collector))
	}

	var loginRecorder LoginRecorder
	if deps.Collector != nil {
		loginRecorder = deps.Collector
	}

	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig, loginRecorder)
	issueHandler := NewIssueHandler(deps.IssueService)
	typeHandler := NewIssueTypeHandler(deps.IssueTypeService)
	userHandler := NewUserHandler(deps.UserService)
	analyticsHandler := NewAnalyticsHandler(deps.AnalyticsRepo)

	// --- 認証不要のルート ---

	r.Route("/auth", func(r chi.Router) {
		// ログインのみ固定ウィンドウのレート制限を適用
		r.With(deps.LoginLimiter.Middleware()).Post("/login", authHandler.Login)
		r.Post("/register", authHandler.Register)
		r.Post("/logout", authHandler.Logout)
	})

	// CSRFトークン取得（セッション確立後にクライアントが最初に呼ぶ）
	r.Get("/api/csrf", middleware.NewCSRFTokenHandler(deps.CSRFConfig).ServeHTTP)

	r.Get("/health", NewHealthHandler(deps.DBPing).ServeHTTP)

	if deps.Gatherer != nil {
		r.Handle("/metrics", metrics.Handler(deps.Gatherer))
	}

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Session → RateLimit → CSRF
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.UserResolver))
		r.Use(deps.RateLimiter.Middleware())
		r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))

		r.Get("/auth/me", authHandler.Me)

		// Issue管理
		r.Route("/api/issues", func(r chi.Router) {
			r.Get("/", issueHandler.List)
			r.Post("/", issueHandler.Create)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", issueHandler.Get)
				r.Put("/", issueHandler.Update)
				r.Delete("/", issueHandler.Delete)
			})
		})

		// Issue種別管理
		r.Route("/api/issue-types", func(r chi.Router) {
			r.Get("/", typeHandler.List)
			r.Post("/", typeHandler.Create)
		})

		// ユーザー管理
		r.Route("/api/users", func(r chi.Router) {
			r.Get("/", userHandler.List)
			r.Post("/", userHandler.Create)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", userHandler.Get)
				r.Put("/", userHandler.Update)
				r.Delete("/", userHandler.Delete)
			})
		})

		// ダッシュボード集計
		r.Get("/api/analytics", analyticsHandler.Get)
	})

	return r
}

// --- compile-time interface checks ---

var _ AuthServiceInterface = (*auth.Service)(nil)
var _ IssueServiceInterface = (*issue.Service)(nil)
var _ IssueTypeServiceInterface = (*issuetype.Service)(nil)
var _ UserServiceInterface = (*user.Service)(nil)

package handler

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/neon/tonari/internal/auth"
	"github.com/neon/tonari/internal/metrics"
	"github.com/neon/tonari/internal/middleware"
	"github.com/neon/tonari/internal/model"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	Logger *slog.Logger

	// ミドルウェア依存
	CORSAllowedOrigin string
	TokenVerifier     middleware.TokenVerifier
	RateLimiter       *middleware.RateLimiter
	PublicPaths       *middleware.PathMatcher // nilならDefaultPublicPaths
	HSTS              bool

	// 認証
	AuthService  AuthServiceInterface
	LoginSuccess auth.LoginSuccessHandler
	Providers    []model.ProviderType
	AuthConfig   AuthHandlerConfig
	Tokens       TokenService
	Users        UserFinder

	// ユーザー
	UserService UserServiceInterface

	// 運用
	DB       Pinger
	Metrics  metrics.MetricsCollector
	Gatherer prometheus.Gatherer
}

// NewRouter は全エンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → Logging → SecurityHeaders → CORS → Authentication → RateLimit → ルート
//
// 認証ミドルウェアが唯一の資格情報チェックで、公開パス以外はbearer tokenを要求する。
func NewRouter(deps *RouterDeps) (http.Handler, error) {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	collector := deps.Metrics
	if collector == nil {
		collector = metrics.NopCollector{}
	}
	public := deps.PublicPaths
	if public == nil {
		public = middleware.DefaultPublicPaths()
	}

	corsMW, err := middleware.NewCORSMiddleware(deps.CORSAllowedOrigin)
	if err != nil {
		return nil, fmt.Errorf("failed to configure CORS: %w", err)
	}

	r := chi.NewRouter()
	r.Use(middleware.NewRecoveryMiddleware(logger))
	r.Use(middleware.NewLoggingMiddleware(logger, collector))
	r.Use(middleware.NewSecurityHeadersMiddleware(deps.HSTS))
	r.Use(corsMW)
	r.Use(middleware.NewAuthenticationMiddleware(deps.TokenVerifier, public, collector))
	if deps.RateLimiter != nil {
		r.Use(deps.RateLimiter.Middleware())
	}

	pages := NewPageHandler(deps.Providers)
	static := StaticHandler()
	authHandler := NewAuthHandler(deps.AuthService, deps.LoginSuccess, collector, deps.AuthConfig)
	tokenHandler := NewTokenHandler(deps.Tokens, deps.Users, collector)
	userHandler := NewUserHandler(deps.UserService)

	// --- 公開ルート ---
	r.Get("/", pages.Index)
	r.Get("/login", pages.Login)
	r.Handle("/css/*", static)
	r.Handle("/js/*", static)

	// OAuthフロー
	r.Get("/oauth2/authorization/{provider}", authHandler.Authorize)
	r.Get("/login/oauth2/code/{provider}", authHandler.Callback)

	// トークン再発行（ハンドラー内で検証する）
	r.Post("/api/auth/token", tokenHandler.Refresh)

	// 運用
	r.Get("/health", NewHealthHandler(deps.DB))
	if deps.Gatherer != nil {
		r.Handle("/metrics", metrics.Handler(deps.Gatherer))
	}

	// --- 認証が必要なルート ---
	r.Route("/api/users", func(r chi.Router) {
		r.Get("/me", userHandler.Me)
		r.Delete("/me", userHandler.Withdraw)
	})

	return r, nil
}

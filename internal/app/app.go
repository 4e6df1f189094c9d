package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/neon/tonari/internal/auth"
	"github.com/neon/tonari/internal/config"
	"github.com/neon/tonari/internal/database"
	"github.com/neon/tonari/internal/handler"
	"github.com/neon/tonari/internal/logger"
	"github.com/neon/tonari/internal/metrics"
	"github.com/neon/tonari/internal/middleware"
	"github.com/neon/tonari/internal/model"
	"github.com/neon/tonari/internal/repository"
	"github.com/neon/tonari/internal/security"
	"github.com/neon/tonari/internal/token"
	"github.com/neon/tonari/internal/user"
)

const (
	shutdownTimeout     = 30 * time.Second
	providerHTTPTimeout = 10 * time.Second
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w, slog.LevelInfo)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// 3. LOG_LEVELを反映
	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		slog.Warn("invalid LOG_LEVEL, falling back to info", slog.String("log_level", cfg.LogLevel))
	}
	logger.SetupDefault(w, level)

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("base_url", cfg.BaseURL),
		slog.String("client_origin", cfg.ClientOrigin),
	)

	switch cmd {
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL, database.DefaultPoolConfig())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
	err = db.PingContext(pingCtx)
	cancelPing()
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established")

	// 2. リポジトリの初期化
	userRepo := repository.NewPostgresUserRepo(db)
	identRepo := repository.NewPostgresIdentityRepo(db)

	// 3. トークン発行
	issuer, err := token.NewIssuer(token.Config{
		Secret: []byte(cfg.JWTSecret),
		TTL:    cfg.JWTTTL,
		Issuer: cfg.JWTIssuer,
	})
	if err != nil {
		return fmt.Errorf("failed to create token issuer: %w", err)
	}

	// 4. ドメインサービスの初期化
	// プロバイダーとの通信はhttpsの公開アドレスのみに制限する
	egress := security.NewEgressClient(providerHTTPTimeout)
	registry := auth.NewRegistry(newProviders(context.Background(), cfg, egress)...)
	authService := auth.NewService(registry, userRepo, identRepo,
		auth.WithProfileSanitizer(security.NewProfileSanitizer()),
	)
	userService := user.NewService(userRepo, identRepo)

	// 5. メトリクス
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(reg)

	// 6. ルーターの構築
	rateLimiter := middleware.NewRateLimiter(rateLimiterConfig(cfg.RateLimitGeneral))
	defer rateLimiter.Stop()

	router, err := handler.NewRouter(&handler.RouterDeps{
		Logger:            slog.Default(),
		CORSAllowedOrigin: cfg.ClientOrigin,
		TokenVerifier:     issuer,
		RateLimiter:       rateLimiter,
		HSTS:              cfg.CookieSecure,

		AuthService:  authService,
		LoginSuccess: auth.NewTokenRedirect(issuer, cfg.ClientOrigin),
		Providers:    authService.Providers(),
		AuthConfig:   handler.AuthHandlerConfig{CookieSecure: cfg.CookieSecure},
		Tokens:       issuer,
		Users:        userRepo,

		UserService: userService,

		DB:       db,
		Metrics:  collector,
		Gatherer: reg,
	})
	if err != nil {
		return fmt.Errorf("failed to build router: %w", err)
	}

	// 7. HTTPサーバーの起動
	server := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
			slog.Any("providers", authService.Providers()),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server listen error: %w", err)
		}
	case <-stop:
	}
	slog.Info("shutting down API server...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// newProviders はクライアントIDが設定されているプロバイダーを生成する。
// Googleのid_tokenはGoogleの公開鍵で検証する。公開鍵の取得にもclientを使う。
func newProviders(ctx context.Context, cfg *config.Config, client *http.Client) []auth.OAuthProvider {
	ctx = oidc.ClientContext(ctx, client)
	var providers []auth.OAuthProvider
	for _, p := range cfg.EnabledProviders() {
		id, secret := cfg.ProviderCredentials(p)
		pc := auth.ProviderConfig{
			ClientID:     id,
			ClientSecret: secret,
			RedirectURL:  cfg.RedirectURL(p),
			HTTPClient:   client,
		}
		switch p {
		case model.ProviderGoogle:
			providers = append(providers, auth.NewGoogleProvider(pc, auth.NewGoogleIDTokenVerifier(ctx, id)))
		case model.ProviderKakao:
			providers = append(providers, auth.NewKakaoProvider(pc))
		case model.ProviderNaver:
			providers = append(providers, auth.NewNaverProvider(pc))
		}
	}
	return providers
}

// rateLimiterConfig はRATE_LIMIT_GENERAL（req/min/user）からレートリミット設定を作る。
// 0以下の場合はデフォルト値を使う。
func rateLimiterConfig(perMinute int) middleware.RateLimiterConfig {
	if perMinute <= 0 {
		return middleware.DefaultRateLimiterConfig()
	}
	return middleware.RateLimiterConfigPerMinute(perMinute)
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	version, dirty, err := database.SchemaVersion(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	slog.Info("database migrations completed successfully",
		slog.Uint64("version", uint64(version)),
		slog.Bool("dirty", dirty),
	)
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}

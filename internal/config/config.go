// Package config は環境変数からアプリケーション設定を読み込む。
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/neon/tonari/internal/model"
)

// minJWTSecretLength はHS256署名鍵として受け付ける最小バイト長。
const minJWTSecretLength = 32

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL string `env:"DATABASE_URL,notEmpty"`

	// Client
	// ClientOrigin はフロントエンドのオリジン。ログイン後のリダイレクト先とCORSの許可オリジンに使う。
	ClientOrigin string `env:"CLIENT_ORIGIN,notEmpty"`

	// JWT
	JWTSecret string        `env:"JWT_SECRET,notEmpty"`
	JWTTTL    time.Duration `env:"JWT_TTL" envDefault:"24h"`
	JWTIssuer string        `env:"JWT_ISSUER" envDefault:"tonari"`

	// OAuth
	GoogleClientID     string `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `env:"GOOGLE_CLIENT_SECRET"`
	KakaoClientID      string `env:"KAKAO_CLIENT_ID"`
	KakaoClientSecret  string `env:"KAKAO_CLIENT_SECRET"`
	NaverClientID      string `env:"NAVER_CLIENT_ID"`
	NaverClientSecret  string `env:"NAVER_CLIENT_SECRET"`

	// Rate Limit（req/min/user）
	RateLimitGeneral int `env:"RATE_LIMIT_GENERAL" envDefault:"120"`

	// Logging
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Server
	ServerPort string `env:"SERVER_PORT" envDefault:"8080"`
	BaseURL    string `env:"BASE_URL,notEmpty"`

	// Cookie
	CookieSecure bool
}

// Load は環境変数からConfigを読み込む。
// カレントディレクトリに.envがあれば先に読み込む（既存の環境変数は上書きしない）。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("required environment variables are not set: %w", err)
	}

	cfg.ClientOrigin = strings.TrimRight(cfg.ClientOrigin, "/")
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	cfg.CookieSecure = strings.HasPrefix(cfg.BaseURL, "https://")

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if len(c.JWTSecret) < minJWTSecretLength {
		return fmt.Errorf("JWT_SECRET must be at least %d bytes", minJWTSecretLength)
	}

	// credentialsを許可するためワイルドカードは使えない
	if c.ClientOrigin == "*" {
		return fmt.Errorf("CLIENT_ORIGIN must not be a wildcard")
	}
	u, err := url.Parse(c.ClientOrigin)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("CLIENT_ORIGIN must be an absolute http(s) URL: %q", c.ClientOrigin)
	}
	// オリジンはscheme://host[:port]のみ
	if u.Path != "" || u.RawQuery != "" || u.Fragment != "" {
		return fmt.Errorf("CLIENT_ORIGIN must not contain a path, query or fragment: %q", c.ClientOrigin)
	}

	if c.JWTTTL <= 0 {
		return fmt.Errorf("JWT_TTL must be positive")
	}

	if len(c.EnabledProviders()) == 0 {
		return fmt.Errorf("at least one of GOOGLE_CLIENT_ID, KAKAO_CLIENT_ID or NAVER_CLIENT_ID is required")
	}

	return nil
}

// ProviderCredentials はプロバイダーのクライアント認証情報を返す。
func (c *Config) ProviderCredentials(p model.ProviderType) (clientID, clientSecret string) {
	switch p {
	case model.ProviderGoogle:
		return c.GoogleClientID, c.GoogleClientSecret
	case model.ProviderKakao:
		return c.KakaoClientID, c.KakaoClientSecret
	case model.ProviderNaver:
		return c.NaverClientID, c.NaverClientSecret
	default:
		return "", ""
	}
}

// EnabledProviders はクライアントIDが設定されているプロバイダーを返す。
func (c *Config) EnabledProviders() []model.ProviderType {
	var enabled []model.ProviderType
	for _, p := range model.ProviderTypes() {
		if id, _ := c.ProviderCredentials(p); id != "" {
			enabled = append(enabled, p)
		}
	}
	return enabled
}

// RedirectURL はプロバイダーのOAuthコールバックURLを返す。
// 例: https://api.example.com/login/oauth2/code/google
func (c *Config) RedirectURL(p model.ProviderType) string {
	return c.BaseURL + "/login/oauth2/code/" + p.Lower()
}

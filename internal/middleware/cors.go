package middleware

import (
	"fmt"
	"net/http"
	"net/url"

	"github.com/rs/cors"
)

// NewCORSMiddleware は指定された単一オリジンに対するCORSミドルウェアを返す。
// credentials送信と共存するため、ワイルドカード(*)は受け付けない。
// プリフライトはヘッダー付与後に後続へ渡し、OPTIONSの応答は認証ミドルウェアが200で返す。
func NewCORSMiddleware(allowedOrigin string) (func(next http.Handler) http.Handler, error) {
	if err := validateOrigin(allowedOrigin); err != nil {
		return nil, err
	}

	c := cors.New(cors.Options{
		AllowedOrigins: []string{allowedOrigin},
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowedHeaders:     []string{"Authorization", "Content-Type"},
		ExposedHeaders:     []string{"Authorization"},
		AllowCredentials:   true,
		OptionsPassthrough: true,
		MaxAge:             3600,
	})
	return c.Handler, nil
}

func validateOrigin(origin string) error {
	if origin == "" {
		return fmt.Errorf("cors: allowed origin is required")
	}
	if origin == "*" {
		return fmt.Errorf("cors: wildcard origin cannot be used with credentials")
	}
	u, err := url.Parse(origin)
	if err != nil {
		return fmt.Errorf("cors: invalid origin %q: %w", origin, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("cors: origin must be an absolute http(s) URL: %q", origin)
	}
	if (u.Path != "" && u.Path != "/") || u.RawQuery != "" || u.Fragment != "" {
		return fmt.Errorf("cors: origin must not contain a path: %q", origin)
	}
	return nil
}

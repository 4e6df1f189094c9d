// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/neon/tonari/internal/auth"
	"github.com/neon/tonari/internal/metrics"
	"github.com/neon/tonari/internal/model"
)

const (
	oauthStateCookie = "oauth_state"
	oauthStateMaxAge = 600 // 10分

	// LoginFailurePath はソーシャルログイン失敗時のリダイレクト先。
	LoginFailurePath = "/login?error=true"
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	LoginURL(provider model.ProviderType, state string) (string, error)
	Login(ctx context.Context, provider model.ProviderType, code, state string) (model.Principal, error)
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	CookieSecure bool
}

// AuthHandler はソーシャルログインのリダイレクトとコールバックを処理する。
type AuthHandler struct {
	service   AuthServiceInterface
	onSuccess auth.LoginSuccessHandler
	metrics   metrics.MetricsCollector
	config    AuthHandlerConfig
}

// NewAuthHandler はAuthHandlerを生成する。collectorがnilの場合はメトリクスを記録しない。
func NewAuthHandler(service AuthServiceInterface, onSuccess auth.LoginSuccessHandler, collector metrics.MetricsCollector, config AuthHandlerConfig) *AuthHandler {
	if collector == nil {
		collector = metrics.NopCollector{}
	}
	return &AuthHandler{
		service:   service,
		onSuccess: onSuccess,
		metrics:   collector,
		config:    config,
	}
}

// Authorize はプロバイダーの認可エンドポイントへリダイレクトする。
// GET /oauth2/authorization/{provider}
func (h *AuthHandler) Authorize(w http.ResponseWriter, r *http.Request) {
	provider, err := model.ParseProviderType(chi.URLParam(r, "provider"))
	if err != nil {
		slog.Warn("unknown oauth provider", slog.String("provider", chi.URLParam(r, "provider")))
		h.redirectFailure(w, r)
		return
	}

	state, err := generateState()
	if err != nil {
		slog.Error("failed to generate oauth state", slog.String("error", err.Error()))
		h.redirectFailure(w, r)
		return
	}

	loginURL, err := h.service.LoginURL(provider, state)
	if err != nil {
		slog.Warn("oauth provider not available",
			slog.String("provider", provider.String()),
			slog.String("error", err.Error()),
		)
		h.redirectFailure(w, r)
		return
	}

	// stateをCookieに保存（CSRF対策）
	http.SetCookie(w, h.stateCookie(state, oauthStateMaxAge))
	http.Redirect(w, r, loginURL, http.StatusFound)
}

// Callback はプロバイダーからのリダイレクトを処理する。
// 失敗時はすべて/login?error=trueへリダイレクトし、500は返さない。
// GET /login/oauth2/code/{provider}?code=xxx&state=yyy
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	rawProvider := chi.URLParam(r, "provider")
	provider, err := model.ParseProviderType(rawProvider)
	if err != nil {
		slog.Warn("unknown oauth provider", slog.String("provider", rawProvider))
		h.redirectFailure(w, r)
		return
	}

	// stateクッキーは成否に関わらず削除
	stateCookie, cookieErr := r.Cookie(oauthStateCookie)
	http.SetCookie(w, h.stateCookie("", -1))

	query := r.URL.Query()
	if providerErr := query.Get("error"); providerErr != "" {
		slog.Warn("oauth provider returned error",
			slog.String("provider", provider.String()),
			slog.String("error", providerErr),
			slog.String("error_description", query.Get("error_description")),
		)
		h.fail(w, r, provider)
		return
	}

	// 1. stateの検証（CSRF対策）
	state := query.Get("state")
	if cookieErr != nil || state == "" || subtle.ConstantTimeCompare([]byte(stateCookie.Value), []byte(state)) != 1 {
		slog.Warn("oauth state mismatch", slog.String("provider", provider.String()))
		h.fail(w, r, provider)
		return
	}

	// 2. 認可コードの取得
	code := query.Get("code")
	if code == "" {
		slog.Warn("missing authorization code", slog.String("provider", provider.String()))
		h.fail(w, r, provider)
		return
	}

	// 3. 認証処理
	principal, err := h.service.Login(r.Context(), provider, code, state)
	if err != nil {
		slog.Error("oauth login failed",
			slog.String("provider", provider.String()),
			slog.String("error", err.Error()),
		)
		h.fail(w, r, provider)
		return
	}

	// 4. リダイレクト先の決定(トークン発行)
	target, err := h.onSuccess.OnLoginSuccess(r.Context(), principal)
	if err != nil {
		slog.Error("login success handler failed",
			slog.String("user_id", principal.ID),
			slog.String("error", err.Error()),
		)
		h.fail(w, r, provider)
		return
	}

	h.metrics.RecordLogin(provider.String(), metrics.LoginSuccess)
	h.metrics.RecordTokenIssued("login")
	http.Redirect(w, r, target, http.StatusFound)
}

func (h *AuthHandler) fail(w http.ResponseWriter, r *http.Request, provider model.ProviderType) {
	h.metrics.RecordLogin(provider.String(), metrics.LoginFailure)
	h.redirectFailure(w, r)
}

func (h *AuthHandler) redirectFailure(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, LoginFailurePath, http.StatusFound)
}

func (h *AuthHandler) stateCookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     oauthStateCookie,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
}

// generateState はCSRF対策用のランダムなstate値を生成する。
func generateState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

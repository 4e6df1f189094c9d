package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/neon/tonari/internal/metrics"
	"github.com/neon/tonari/internal/middleware"
	"github.com/neon/tonari/internal/model"
	"github.com/neon/tonari/internal/token"
)

// TokenService はトークンの検証と発行を行う。token.Issuerが実装する。
type TokenService interface {
	Issue(p model.Principal) (string, time.Time, error)
	Verify(raw string) (model.Principal, error)
}

// UserFinder はユーザーの存在確認に使う。
type UserFinder interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
}

// tokenResponse は/api/auth/tokenのレスポンス。
type tokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// TokenHandler はbearer tokenの再発行を行う。
type TokenHandler struct {
	tokens  TokenService
	users   UserFinder
	metrics metrics.MetricsCollector
}

// NewTokenHandler はTokenHandlerを生成する。usersがnilの場合はユーザーの存在確認を省略する。
func NewTokenHandler(tokens TokenService, users UserFinder, collector metrics.MetricsCollector) *TokenHandler {
	if collector == nil {
		collector = metrics.NopCollector{}
	}
	return &TokenHandler{tokens: tokens, users: users, metrics: collector}
}

// Refresh は提示された有効なbearer tokenと同じPrincipalで新しいトークンを発行する。
// 公開パスに置かれるため、認証ミドルウェアを通らずここで検証する。
// POST /api/auth/token
func (h *TokenHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	raw, ok := middleware.BearerToken(r)
	if !ok {
		h.reject(w, middleware.ReasonMissing)
		return
	}

	principal, err := h.tokens.Verify(raw)
	if err != nil {
		h.reject(w, token.Reason(err))
		return
	}

	if h.users != nil {
		user, err := h.users.FindByID(r.Context(), principal.ID)
		if err != nil {
			handleServiceError(w, err)
			return
		}
		if user == nil {
			h.reject(w, "unknown_user")
			return
		}
	}

	tok, expiresAt, err := h.tokens.Issue(principal)
	if err != nil {
		slog.Error("failed to issue token",
			slog.String("user_id", principal.ID),
			slog.String("error", err.Error()),
		)
		middleware.WriteInternalServerError(w)
		return
	}
	h.metrics.RecordTokenIssued("refresh")

	w.Header().Set("Authorization", "Bearer "+tok)
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(tokenResponse{Token: tok, ExpiresAt: expiresAt.UTC()})
}

func (h *TokenHandler) reject(w http.ResponseWriter, reason string) {
	slog.Info("token refresh rejected", slog.String("reason", reason))
	h.metrics.RecordAuthFailure(reason)
	middleware.WriteUnauthorized(w)
}

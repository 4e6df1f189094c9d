package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/neon/tonari/internal/middleware"
	"github.com/neon/tonari/internal/user"
)

// UserServiceInterface はユーザーハンドラーが必要とするサービスインターフェース。
type UserServiceInterface interface {
	Profile(ctx context.Context, userID string) (*user.Profile, error)
	// Withdraw はユーザーの退会処理を実行する。identitiesはCASCADE削除される。
	Withdraw(ctx context.Context, userID string) error
}

type identityResponse struct {
	Provider  string    `json:"provider"`
	CreatedAt time.Time `json:"created_at"`
}

type meResponse struct {
	ID         string             `json:"id"`
	Email      string             `json:"email"`
	Name       string             `json:"name"`
	Provider   string             `json:"provider"`
	Identities []identityResponse `json:"identities"`
	CreatedAt  time.Time          `json:"created_at"`
}

// UserHandler はユーザー管理のHTTPハンドラー。
type UserHandler struct {
	service UserServiceInterface
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(service UserServiceInterface) *UserHandler {
	return &UserHandler{
		service: service,
	}
}

// Me はログイン中のユーザー情報を返す。
// GET /api/users/me
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	principal, err := middleware.PrincipalFromContext(r.Context())
	if err != nil {
		middleware.WriteUnauthorized(w)
		return
	}

	profile, err := h.service.Profile(r.Context(), principal.ID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	identities := make([]identityResponse, 0, len(profile.Identities))
	for _, ident := range profile.Identities {
		identities = append(identities, identityResponse{
			Provider:  ident.Provider.String(),
			CreatedAt: ident.CreatedAt,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(meResponse{
		ID:         profile.User.ID,
		Email:      profile.User.Email,
		Name:       profile.User.Name,
		Provider:   principal.Provider.String(),
		Identities: identities,
		CreatedAt:  profile.User.CreatedAt,
	})
}

// Withdraw はユーザーの退会処理を実行する。
// DELETE /api/users/me
func (h *UserHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		middleware.WriteUnauthorized(w)
		return
	}

	if err := h.service.Withdraw(r.Context(), userID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/neon/tonari/internal/model"
	"github.com/neon/tonari/internal/repository"
)

// ProfileSanitizer はプロバイダーから受け取ったプロフィール情報を保存前に正規化する。
type ProfileSanitizer interface {
	SanitizeName(name string) string
	SanitizeEmail(email string) string
}

// Service はソーシャルログインのビジネスロジックを提供する。
type Service struct {
	registry  *Registry
	userRepo  repository.UserRepository
	identRepo repository.IdentityRepository
	sanitizer ProfileSanitizer
	now       func() time.Time
}

// ServiceOption はServiceの生成オプション。
type ServiceOption func(*Service)

// WithProfileSanitizer はプロフィールの正規化処理を設定する。
func WithProfileSanitizer(s ProfileSanitizer) ServiceOption {
	return func(svc *Service) {
		svc.sanitizer = s
	}
}

// NewService はServiceを生成する。
func NewService(
	registry *Registry,
	userRepo repository.UserRepository,
	identRepo repository.IdentityRepository,
	opts ...ServiceOption,
) *Service {
	s := &Service{
		registry:  registry,
		userRepo:  userRepo,
		identRepo: identRepo,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Providers は利用可能なプロバイダー種別を返す。
func (s *Service) Providers() []model.ProviderType {
	return s.registry.Types()
}

// LoginURL は指定プロバイダーの認可URLを生成する。
// 未設定のプロバイダーの場合はUNSUPPORTED_PROVIDERエラーを返す。
func (s *Service) LoginURL(provider model.ProviderType, state string) (string, error) {
	p, ok := s.registry.Get(provider)
	if !ok {
		return "", model.NewUnsupportedProviderError(provider.String())
	}
	return p.AuthCodeURL(state), nil
}

// Login は認可コードを交換し、ログインしたユーザーのPrincipalを返す。
// 未登録ユーザーの場合はusersレコードとidentitiesレコードを同一トランザクションで作成する。
// 登録済みユーザーの場合はidentitiesテーブルで既存ユーザーを特定し、プロフィールを更新する。
func (s *Service) Login(ctx context.Context, provider model.ProviderType, code, state string) (model.Principal, error) {
	p, ok := s.registry.Get(provider)
	if !ok {
		return model.Principal{}, model.NewUnsupportedProviderError(provider.String())
	}

	// 1. 認可コードをトークンに交換し、ユーザー情報を取得
	userInfo, err := p.Exchange(ctx, code, state)
	if err != nil {
		return model.Principal{}, model.NewProviderFailureError(provider, err)
	}
	if s.sanitizer != nil {
		userInfo.Name = s.sanitizer.SanitizeName(userInfo.Name)
		userInfo.Email = s.sanitizer.SanitizeEmail(userInfo.Email)
	}

	// 2. identitiesテーブルで既存ユーザーを検索
	identity, err := s.identRepo.FindByProviderAndProviderUserID(ctx, provider, userInfo.ProviderUserID)
	if err != nil {
		return model.Principal{}, fmt.Errorf("failed to find identity: %w", err)
	}

	if identity != nil {
		// 3a. 既存ユーザー: プロフィール更新の失敗はログインを妨げない
		if err := s.userRepo.UpdateProfile(ctx, identity.UserID, userInfo.Email, userInfo.Name); err != nil {
			slog.Warn("failed to update user profile",
				slog.String("user_id", identity.UserID),
				slog.String("error", err.Error()),
			)
		}
		slog.Info("existing user logged in",
			slog.String("user_id", identity.UserID),
			slog.String("provider", provider.String()),
		)
		return model.Principal{ID: identity.UserID, Provider: provider}, nil
	}

	// 3b. 新規ユーザー
	userID, err := s.createUser(ctx, userInfo)
	if err != nil {
		return model.Principal{}, err
	}
	return model.Principal{ID: userID, Provider: provider}, nil
}

// createUser はusersとidentitiesを作成し、ユーザーIDを返す。
// 同一identityの初回ログインが競合した場合は、先に作成されたユーザーを返す。
func (s *Service) createUser(ctx context.Context, userInfo *OAuthUserInfo) (string, error) {
	now := s.now()
	newUser := &model.User{
		ID:        uuid.New().String(),
		Email:     userInfo.Email,
		Name:      userInfo.Name,
		CreatedAt: now,
		UpdatedAt: now,
	}
	newIdentity := &model.Identity{
		ID:             uuid.New().String(),
		UserID:         newUser.ID,
		Provider:       userInfo.Provider,
		ProviderUserID: userInfo.ProviderUserID,
		CreatedAt:      now,
	}

	err := s.userRepo.CreateWithIdentity(ctx, newUser, newIdentity)
	if errors.Is(err, repository.ErrDuplicateIdentity) {
		existing, findErr := s.identRepo.FindByProviderAndProviderUserID(ctx, userInfo.Provider, userInfo.ProviderUserID)
		if findErr != nil {
			return "", fmt.Errorf("failed to find identity after conflict: %w", findErr)
		}
		if existing == nil {
			return "", fmt.Errorf("identity conflict but no identity found")
		}
		return existing.UserID, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to create user and identity: %w", err)
	}

	slog.Info("new user created",
		slog.String("user_id", newUser.ID),
		slog.String("provider", userInfo.Provider.String()),
	)
	return newUser.ID, nil
}

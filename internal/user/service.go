// Package user はユーザー管理のドメインロジックを提供する。
package user

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/neon/tonari/internal/model"
	"github.com/neon/tonari/internal/repository"
)

// Profile は/api/users/meで返すユーザー情報。
type Profile struct {
	User       *model.User
	Identities []*model.Identity
}

// Service はユーザー管理のサービス層。
type Service struct {
	userRepo  repository.UserRepository
	identRepo repository.IdentityRepository
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(userRepo repository.UserRepository, identRepo repository.IdentityRepository) *Service {
	return &Service{
		userRepo:  userRepo,
		identRepo: identRepo,
	}
}

// Profile はユーザーと紐付くidentityの一覧を返す。
func (s *Service) Profile(ctx context.Context, userID string) (*Profile, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}

	identities, err := s.identRepo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("identityの取得に失敗しました: %w", err)
	}

	return &Profile{User: user, Identities: identities}, nil
}

// Withdraw はユーザーの退会処理を実行する。
// identitiesはCASCADE削除される。発行済みトークンは失効リストを持たないため有効期限まで検証を通るが、
// 保護APIはユーザー不在としてUSER_NOT_FOUNDを返す。
func (s *Service) Withdraw(ctx context.Context, userID string) error {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return model.NewUserNotFoundError()
	}

	if err := s.userRepo.DeleteByID(ctx, userID); err != nil {
		return fmt.Errorf("ユーザーの削除に失敗しました: %w", err)
	}

	slog.Info("退会処理が完了しました",
		slog.String("user_id", userID),
	)

	return nil
}

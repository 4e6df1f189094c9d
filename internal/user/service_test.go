package user

import (
	"context"
	"errors"
	"testing"

	"github.com/neon/tonari/internal/model"
	"github.com/neon/tonari/internal/repository"
)

// --- モック ---

type mockUserRepo struct {
	findByIDFn   func(ctx context.Context, id string) (*model.User, error)
	deleteByIDFn func(ctx context.Context, id string) error
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}
func (m *mockUserRepo) CreateWithIdentity(ctx context.Context, user *model.User, identity *model.Identity) error {
	return nil
}
func (m *mockUserRepo) UpdateProfile(ctx context.Context, id, email, name string) error {
	return nil
}
func (m *mockUserRepo) DeleteByID(ctx context.Context, id string) error {
	return m.deleteByIDFn(ctx, id)
}

type mockIdentityRepo struct {
	listByUserIDFn func(ctx context.Context, userID string) ([]*model.Identity, error)
}

func (m *mockIdentityRepo) FindByProviderAndProviderUserID(ctx context.Context, provider model.ProviderType, providerUserID string) (*model.Identity, error) {
	return nil, nil
}
func (m *mockIdentityRepo) ListByUserID(ctx context.Context, userID string) ([]*model.Identity, error) {
	if m.listByUserIDFn != nil {
		return m.listByUserIDFn(ctx, userID)
	}
	return nil, nil
}

var (
	_ repository.UserRepository     = (*mockUserRepo)(nil)
	_ repository.IdentityRepository = (*mockIdentityRepo)(nil)
)

// --- テスト ---

// TestService_Profile はユーザーとidentity一覧が返ることを検証する。
func TestService_Profile(t *testing.T) {
	userRepo := &mockUserRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.User, error) {
			return &model.User{ID: id, Email: "test@example.com"}, nil
		},
	}
	identRepo := &mockIdentityRepo{
		listByUserIDFn: func(ctx context.Context, userID string) ([]*model.Identity, error) {
			return []*model.Identity{
				{UserID: userID, Provider: model.ProviderGoogle, ProviderUserID: "g-1"},
				{UserID: userID, Provider: model.ProviderNaver, ProviderUserID: "n-1"},
			}, nil
		},
	}

	svc := NewService(userRepo, identRepo)
	profile, err := svc.Profile(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("Profile returned error: %v", err)
	}
	if profile.User.ID != "user-1" {
		t.Errorf("User.ID = %q, want user-1", profile.User.ID)
	}
	if len(profile.Identities) != 2 {
		t.Errorf("len(Identities) = %d, want 2", len(profile.Identities))
	}
}

// TestService_Profile_UserNotFound は存在しないユーザーでUSER_NOT_FOUNDになることを検証する。
func TestService_Profile_UserNotFound(t *testing.T) {
	svc := NewService(&mockUserRepo{}, &mockIdentityRepo{})

	_, err := svc.Profile(context.Background(), "ghost")
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeUserNotFound {
		t.Fatalf("expected USER_NOT_FOUND, got %v", err)
	}
}

// TestService_Withdraw は退会処理でユーザーが削除されることを検証する。
func TestService_Withdraw(t *testing.T) {
	var deletedID string

	userRepo := &mockUserRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.User, error) {
			return &model.User{ID: id, Email: "test@example.com"}, nil
		},
		deleteByIDFn: func(ctx context.Context, id string) error {
			deletedID = id
			return nil
		},
	}

	svc := NewService(userRepo, &mockIdentityRepo{})

	if err := svc.Withdraw(context.Background(), "user-1"); err != nil {
		t.Fatalf("Withdraw returned error: %v", err)
	}
	if deletedID != "user-1" {
		t.Errorf("DeleteByID called with %q, want user-1", deletedID)
	}
}

// TestService_Withdraw_UserNotFound は存在しないユーザーの退会がエラーになることを検証する。
func TestService_Withdraw_UserNotFound(t *testing.T) {
	userRepo := &mockUserRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.User, error) {
			return nil, nil
		},
		deleteByIDFn: func(ctx context.Context, id string) error {
			t.Error("DeleteByID should not be called")
			return nil
		},
	}

	svc := NewService(userRepo, &mockIdentityRepo{})

	if err := svc.Withdraw(context.Background(), "nonexistent-user"); err == nil {
		t.Fatal("expected error for nonexistent user, got nil")
	}
}

// TestService_Withdraw_DeleteError は削除失敗がエラーとして返ることを検証する。
func TestService_Withdraw_DeleteError(t *testing.T) {
	userRepo := &mockUserRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.User, error) {
			return &model.User{ID: id}, nil
		},
		deleteByIDFn: func(ctx context.Context, id string) error {
			return errors.New("db error")
		},
	}

	svc := NewService(userRepo, &mockIdentityRepo{})

	if err := svc.Withdraw(context.Background(), "user-1"); err == nil {
		t.Fatal("expected error when delete fails")
	}
}

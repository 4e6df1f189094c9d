// Package repository はデータ永続化のインターフェースとPostgreSQL実装を提供する。
package repository

import (
	"context"
	"errors"

	"github.com/neon/tonari/internal/model"
)

// ErrDuplicateIdentity は同じ(provider, provider_user_id)のidentityが既に存在する場合のエラー。
// 同一ユーザーの初回ログインが並行した場合に発生しうる。
var ErrDuplicateIdentity = errors.New("identity already exists")

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// CreateWithIdentity はユーザーとidentityを同一トランザクションで作成する。
	// identityが既に存在する場合はErrDuplicateIdentityを返す。
	CreateWithIdentity(ctx context.Context, user *model.User, identity *model.Identity) error

	// UpdateProfile はプロバイダーから取得したメールアドレスと表示名を更新する。
	UpdateProfile(ctx context.Context, id, email, name string) error

	// DeleteByID は指定IDのユーザーを削除する。
	// 関連するidentitiesはCASCADE削除される。
	DeleteByID(ctx context.Context, id string) error
}

// IdentityRepository はソーシャルログイン紐付け情報の永続化インターフェース。
type IdentityRepository interface {
	// FindByProviderAndProviderUserID はproviderとprovider_user_idでidentityを検索する。
	// 見つからない場合はnilを返す。
	FindByProviderAndProviderUserID(ctx context.Context, provider model.ProviderType, providerUserID string) (*model.Identity, error)

	// ListByUserID はユーザーに紐付く全identityを作成順に返す。
	ListByUserID(ctx context.Context, userID string) ([]*model.Identity, error)
}

package auth

import "github.com/neon/tonari/internal/model"

// Registry は設定済みのOAuthプロバイダーを種別ごとに保持する。
// 生成後は読み取り専用のため、並行アクセスに対して安全。
type Registry struct {
	providers map[model.ProviderType]OAuthProvider
}

// NewRegistry はRegistryを生成する。同じ種別が複数渡された場合は後勝ち。
func NewRegistry(providers ...OAuthProvider) *Registry {
	r := &Registry{providers: make(map[model.ProviderType]OAuthProvider, len(providers))}
	for _, p := range providers {
		if p == nil {
			continue
		}
		r.providers[p.Type()] = p
	}
	return r
}

// Get は指定種別のプロバイダーを返す。
func (r *Registry) Get(p model.ProviderType) (OAuthProvider, bool) {
	provider, ok := r.providers[p]
	return provider, ok
}

// Types は登録済みのプロバイダー種別をGOOGLE, KAKAO, NAVERの順で返す。
func (r *Registry) Types() []model.ProviderType {
	types := make([]model.ProviderType, 0, len(r.providers))
	for _, p := range model.ProviderTypes() {
		if _, ok := r.providers[p]; ok {
			types = append(types, p)
		}
	}
	return types
}

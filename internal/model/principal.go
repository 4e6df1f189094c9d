package model

// Principal はリクエストの認証済みアイデンティティを表す。
// IDはusers.idに対応する安定した識別子。
type Principal struct {
	ID       string
	Provider ProviderType
}

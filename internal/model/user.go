// Package model はドメインモデルを定義する。
package model

import "time"

// User はサービス利用ユーザーを表す。
type User struct {
	ID        string
	Email     string
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Identity はソーシャルログインプロバイダーとの紐付け情報を表す。
// 1ユーザーに対して複数のプロバイダー（Google, Kakao, Naver）を紐付けられる構造。
type Identity struct {
	ID             string
	UserID         string
	Provider       ProviderType
	ProviderUserID string
	CreatedAt      time.Time
}

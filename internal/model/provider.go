package model

import (
	"fmt"
	"strings"
)

// ProviderType はソーシャルログインプロバイダーの種別を表す。
type ProviderType string

const (
	ProviderGoogle ProviderType = "GOOGLE"
	ProviderKakao  ProviderType = "KAKAO"
	ProviderNaver  ProviderType = "NAVER"
)

// ProviderTypes は対応している全プロバイダーを定義順で返す。
func ProviderTypes() []ProviderType {
	return []ProviderType{ProviderGoogle, ProviderKakao, ProviderNaver}
}

// ParseProviderType は文字列をProviderTypeに変換する。大文字小文字は区別しない。
// 未対応のプロバイダー名の場合はエラーを返す。
func ParseProviderType(s string) (ProviderType, error) {
	switch ProviderType(strings.ToUpper(strings.TrimSpace(s))) {
	case ProviderGoogle:
		return ProviderGoogle, nil
	case ProviderKakao:
		return ProviderKakao, nil
	case ProviderNaver:
		return ProviderNaver, nil
	default:
		return "", fmt.Errorf("unsupported provider: %q", s)
	}
}

// Valid は定義済みのプロバイダーかどうかを返す。
func (p ProviderType) Valid() bool {
	_, err := ParseProviderType(string(p))
	return err == nil
}

// Lower はURLパスに使う小文字表記を返す（例: "google"）。
func (p ProviderType) Lower() string {
	return strings.ToLower(string(p))
}

// String はfmt.Stringerを実装する。
func (p ProviderType) String() string {
	return string(p)
}

// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeUserNotFound        = "USER_NOT_FOUND"
	ErrCodeUnsupportedProvider = "UNSUPPORTED_PROVIDER"
	ErrCodeProviderFailure     = "AUTH_PROVIDER_FAILURE"
)

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "ユーザーが見つかりません。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}

// NewUnsupportedProviderError は未対応または未設定のプロバイダーが指定された場合のエラーを生成する。
func NewUnsupportedProviderError(provider string) *APIError {
	return &APIError{
		Code:     ErrCodeUnsupportedProvider,
		Message:  fmt.Sprintf("対応していないログインプロバイダーです: %s", provider),
		Category: "auth",
		Action:   "Google、Kakao、Naverのいずれかでログインしてください。",
	}
}

// NewProviderFailureError はプロバイダーとの認証連携に失敗した場合のエラーを生成する。
func NewProviderFailureError(provider ProviderType, cause error) *APIError {
	msg := fmt.Sprintf("%sでの認証に失敗しました。", provider)
	if cause != nil {
		msg = fmt.Sprintf("%sでの認証に失敗しました: %v", provider, cause)
	}
	return &APIError{
		Code:     ErrCodeProviderFailure,
		Message:  msg,
		Category: "auth",
		Action:   "しばらく待ってから再度ログインしてください。",
	}
}

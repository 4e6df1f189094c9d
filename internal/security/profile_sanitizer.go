// Package security はプロバイダーとの通信とプロバイダーから受け取るデータの安全対策を提供する。
package security

import (
	"html"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

const (
	// MaxNameRunes はusers.nameに保存する表示名の最大文字数。
	MaxNameRunes = 255
	// MaxEmailRunes はusers.emailに保存するメールアドレスの最大文字数。
	MaxEmailRunes = 320
)

// ProfileSanitizer はOAuthプロバイダーから受け取った表示名やメールアドレスを
// 保存前にプレーンテキストへ正規化する。
// Kakaoのニックネームなどはユーザーが自由に設定できるため、HTMLタグや制御文字を含みうる。
type ProfileSanitizer struct {
	policy *bluemonday.Policy
}

// NewProfileSanitizer はタグをすべて除去するポリシーでProfileSanitizerを生成する。
func NewProfileSanitizer() *ProfileSanitizer {
	return &ProfileSanitizer{policy: bluemonday.StrictPolicy()}
}

// SanitizeName は表示名からHTMLタグと制御文字を除去し、空白を詰めてMaxNameRunes文字に切り詰める。
func (s *ProfileSanitizer) SanitizeName(name string) string {
	return truncateRunes(s.plainText(name), MaxNameRunes)
}

// SanitizeEmail はメールアドレスを正規化する。空白や制御文字を含む値、
// @を含まない値、MaxEmailRunesを超える値は空文字列にする。
func (s *ProfileSanitizer) SanitizeEmail(email string) string {
	email = strings.TrimSpace(email)
	if email == "" || utf8.RuneCountInString(email) > MaxEmailRunes {
		return ""
	}
	if strings.IndexFunc(email, func(r rune) bool { return unicode.IsSpace(r) || unicode.IsControl(r) }) >= 0 {
		return ""
	}
	if s.plainText(email) != email || !strings.Contains(email, "@") {
		return ""
	}
	return email
}

// plainText はタグを除去し、bluemondayがエスケープした文字を元に戻して空白を正規化する。
// 出力はHTMLではなくJSONやDBに渡すテキストとして扱う。
func (s *ProfileSanitizer) plainText(v string) string {
	stripped := html.UnescapeString(s.policy.Sanitize(v))
	stripped = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return ' '
		}
		return r
	}, stripped)
	return strings.Join(strings.Fields(stripped), " ")
}

func truncateRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:max]))
}

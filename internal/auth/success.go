package auth

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/neon/tonari/internal/model"
)

// LoginSuccessHandler はログイン成功時に呼ばれ、リダイレクト先を決定する。
type LoginSuccessHandler interface {
	OnLoginSuccess(ctx context.Context, principal model.Principal) (string, error)
}

// LoginSuccessFunc は関数をLoginSuccessHandlerとして扱うためのアダプタ。
type LoginSuccessFunc func(ctx context.Context, principal model.Principal) (string, error)

// OnLoginSuccess はf(ctx, principal)を呼び出す。
func (f LoginSuccessFunc) OnLoginSuccess(ctx context.Context, principal model.Principal) (string, error) {
	return f(ctx, principal)
}

// TokenIssuer はPrincipalに対してbearer tokenを発行する。
type TokenIssuer interface {
	Issue(p model.Principal) (string, time.Time, error)
}

// TokenRedirect はトークンを発行し、クライアントの/loginにトークン付きでリダイレクトさせる。
type TokenRedirect struct {
	issuer       TokenIssuer
	clientOrigin string
}

// NewTokenRedirect はTokenRedirectを生成する。
func NewTokenRedirect(issuer TokenIssuer, clientOrigin string) *TokenRedirect {
	return &TokenRedirect{issuer: issuer, clientOrigin: clientOrigin}
}

// OnLoginSuccess は{clientOrigin}/login?token={token}を返す。
func (t *TokenRedirect) OnLoginSuccess(_ context.Context, principal model.Principal) (string, error) {
	tok, _, err := t.issuer.Issue(principal)
	if err != nil {
		return "", fmt.Errorf("failed to issue token: %w", err)
	}
	return t.clientOrigin + "/login?token=" + url.QueryEscape(tok), nil
}

// compile-time interface check
var _ LoginSuccessHandler = (*TokenRedirect)(nil)

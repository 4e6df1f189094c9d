package auth

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"

	"github.com/neon/tonari/internal/model"
)

const (
	defaultNaverAuthURL     = "https://nid.naver.com/oauth2.0/authorize"
	defaultNaverTokenURL    = "https://nid.naver.com/oauth2.0/token"
	defaultNaverUserInfoURL = "https://openapi.naver.com/v1/nid/me"

	naverResultSuccess = "00"
)

// NaverProvider はNaverログインによる認証を提供する。
type NaverProvider struct {
	*oauth2Client
}

// naverUserInfo は/v1/nid/meのレスポンス。
type naverUserInfo struct {
	ResultCode string `json:"resultcode"`
	Message    string `json:"message"`
	Response   struct {
		ID    string `json:"id"`
		Email string `json:"email"`
		Name  string `json:"name"`
	} `json:"response"`
}

// NewNaverProvider はNaverProviderを生成する。
func NewNaverProvider(cfg ProviderConfig) *NaverProvider {
	if cfg.AuthURL == "" {
		cfg.AuthURL = defaultNaverAuthURL
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = defaultNaverTokenURL
	}
	if cfg.UserInfoURL == "" {
		cfg.UserInfoURL = defaultNaverUserInfoURL
	}
	return &NaverProvider{
		oauth2Client: newOAuth2Client(model.ProviderNaver, cfg, nil),
	}
}

// Exchange は認可コードをトークンに交換し、ユーザー情報を取得する。
// Naverはトークン交換時にもstateを要求する。
func (p *NaverProvider) Exchange(ctx context.Context, code, state string) (*OAuthUserInfo, error) {
	tok, err := p.exchange(ctx, code, oauth2.SetAuthURLParam("state", state))
	if err != nil {
		return nil, err
	}

	var info naverUserInfo
	if err := p.fetchUserInfo(ctx, tok, &info); err != nil {
		return nil, err
	}
	if info.ResultCode != naverResultSuccess {
		return nil, fmt.Errorf("naver user info returned resultcode %q: %s", info.ResultCode, info.Message)
	}
	if info.Response.ID == "" {
		return nil, fmt.Errorf("empty id in naver user info")
	}

	return &OAuthUserInfo{
		ProviderUserID: info.Response.ID,
		Email:          info.Response.Email,
		Name:           info.Response.Name,
		Provider:       model.ProviderNaver,
	}, nil
}

// compile-time interface check
var _ OAuthProvider = (*NaverProvider)(nil)

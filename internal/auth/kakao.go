package auth

import (
	"context"
	"fmt"
	"strconv"

	"github.com/neon/tonari/internal/model"
)

const (
	defaultKakaoAuthURL     = "https://kauth.kakao.com/oauth/authorize"
	defaultKakaoTokenURL    = "https://kauth.kakao.com/oauth/token"
	defaultKakaoUserInfoURL = "https://kapi.kakao.com/v2/user/me"
)

// KakaoProvider はKakaoログインによる認証を提供する。
type KakaoProvider struct {
	*oauth2Client
}

// kakaoUserInfo は/v2/user/meのレスポンス。
type kakaoUserInfo struct {
	ID           int64 `json:"id"`
	KakaoAccount struct {
		Email   string `json:"email"`
		Profile struct {
			Nickname string `json:"nickname"`
		} `json:"profile"`
	} `json:"kakao_account"`
}

// NewKakaoProvider はKakaoProviderを生成する。
func NewKakaoProvider(cfg ProviderConfig) *KakaoProvider {
	if cfg.AuthURL == "" {
		cfg.AuthURL = defaultKakaoAuthURL
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = defaultKakaoTokenURL
	}
	if cfg.UserInfoURL == "" {
		cfg.UserInfoURL = defaultKakaoUserInfoURL
	}
	return &KakaoProvider{
		oauth2Client: newOAuth2Client(model.ProviderKakao, cfg, []string{"profile_nickname", "account_email"}),
	}
}

// Exchange は認可コードをトークンに交換し、ユーザー情報を取得する。
func (p *KakaoProvider) Exchange(ctx context.Context, code, _ string) (*OAuthUserInfo, error) {
	tok, err := p.exchange(ctx, code)
	if err != nil {
		return nil, err
	}

	var info kakaoUserInfo
	if err := p.fetchUserInfo(ctx, tok, &info); err != nil {
		return nil, err
	}
	if info.ID == 0 {
		return nil, fmt.Errorf("empty id in kakao user info")
	}

	return &OAuthUserInfo{
		ProviderUserID: strconv.FormatInt(info.ID, 10),
		Email:          info.KakaoAccount.Email,
		Name:           info.KakaoAccount.Profile.Nickname,
		Provider:       model.ProviderKakao,
	}, nil
}

// compile-time interface check
var _ OAuthProvider = (*KakaoProvider)(nil)

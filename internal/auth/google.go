package auth

import (
	"context"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"

	"github.com/neon/tonari/internal/model"
)

const (
	defaultGoogleAuthURL     = "https://accounts.google.com/o/oauth2/auth"
	defaultGoogleTokenURL    = "https://oauth2.googleapis.com/token"
	defaultGoogleUserInfoURL = "https://openidconnect.googleapis.com/v1/userinfo"

	// GoogleIssuer はGoogleが発行するid_tokenのiss。
	GoogleIssuer = "https://accounts.google.com"
	// GoogleJWKSURL はGoogleのid_token署名鍵の公開先。
	GoogleJWKSURL = "https://www.googleapis.com/oauth2/v3/certs"
)

// GoogleProvider はGoogle OAuth 2.0 / OpenID Connectによる認証を提供する。
type GoogleProvider struct {
	*oauth2Client
	verifier *oidc.IDTokenVerifier
}

// googleClaims はid_tokenおよびuserinfoレスポンスの共通項目。
type googleClaims struct {
	Sub   string `json:"sub"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// NewGoogleProvider はGoogleProviderを生成する。
// verifierがnilの場合、id_tokenは検証せずuserinfoエンドポイントからユーザー情報を取得する。
func NewGoogleProvider(cfg ProviderConfig, verifier *oidc.IDTokenVerifier) *GoogleProvider {
	if cfg.AuthURL == "" {
		cfg.AuthURL = defaultGoogleAuthURL
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = defaultGoogleTokenURL
	}
	if cfg.UserInfoURL == "" {
		cfg.UserInfoURL = defaultGoogleUserInfoURL
	}
	return &GoogleProvider{
		oauth2Client: newOAuth2Client(model.ProviderGoogle, cfg, []string{oidc.ScopeOpenID, "email", "profile"}),
		verifier:     verifier,
	}
}

// NewGoogleIDTokenVerifier はGoogleの公開鍵(JWKS)でid_tokenを検証するverifierを生成する。
// 鍵は初回検証時に取得され、以降はキャッシュされる。
func NewGoogleIDTokenVerifier(ctx context.Context, clientID string) *oidc.IDTokenVerifier {
	keySet := oidc.NewRemoteKeySet(ctx, GoogleJWKSURL)
	return oidc.NewVerifier(GoogleIssuer, keySet, &oidc.Config{ClientID: clientID})
}

// Exchange は認可コードをトークンに交換し、ユーザー情報を取得する。
func (p *GoogleProvider) Exchange(ctx context.Context, code, _ string) (*OAuthUserInfo, error) {
	tok, err := p.exchange(ctx, code)
	if err != nil {
		return nil, err
	}

	var claims googleClaims
	rawIDToken, _ := tok.Extra("id_token").(string)
	if p.verifier != nil && rawIDToken != "" {
		idToken, err := p.verifier.Verify(ctx, rawIDToken)
		if err != nil {
			return nil, fmt.Errorf("failed to verify id_token: %w", err)
		}
		if err := idToken.Claims(&claims); err != nil {
			return nil, fmt.Errorf("failed to parse id_token claims: %w", err)
		}
	} else {
		if err := p.fetchUserInfo(ctx, tok, &claims); err != nil {
			return nil, err
		}
	}

	if claims.Sub == "" {
		return nil, fmt.Errorf("empty sub in google user info")
	}

	return &OAuthUserInfo{
		ProviderUserID: claims.Sub,
		Email:          claims.Email,
		Name:           claims.Name,
		Provider:       model.ProviderGoogle,
	}, nil
}

// compile-time interface check
var _ OAuthProvider = (*GoogleProvider)(nil)

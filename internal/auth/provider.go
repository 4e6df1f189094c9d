// Package auth はソーシャルログイン(Google, Kakao, Naver)のOAuth2フローと、
// ログイン成功時のユーザー解決を提供する。
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/oauth2"

	"github.com/neon/tonari/internal/model"
)

// maxUserInfoBytes はユーザー情報レスポンスの読み取り上限。
const maxUserInfoBytes = 1 << 20

// OAuthUserInfo はOAuthプロバイダーから取得したユーザー情報を表す。
type OAuthUserInfo struct {
	ProviderUserID string
	Email          string
	Name           string
	Provider       model.ProviderType
}

// OAuthProvider はOAuth認証プロバイダーのインターフェース。
type OAuthProvider interface {
	// Type はプロバイダー種別を返す。
	Type() model.ProviderType
	// AuthCodeURL は認可エンドポイントへのリダイレクトURLを生成する。
	AuthCodeURL(state string) string
	// Exchange は認可コードをトークンに交換し、ユーザー情報を取得する。
	// stateは認可リクエスト時の値をそのまま渡す(Naverはトークン交換時にも要求する)。
	Exchange(ctx context.Context, code, state string) (*OAuthUserInfo, error)
}

// ProviderConfig はOAuthプロバイダー共通の設定。
type ProviderConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string

	// テスト用にオーバーライド可能なURL
	AuthURL     string
	TokenURL    string
	UserInfoURL string

	// HTTPClient はトークン交換とユーザー情報取得に使うクライアント。nilならhttp.DefaultClient。
	HTTPClient *http.Client
}

// oauth2Client はx/oauth2の設定とユーザー情報取得をまとめたプロバイダー共通部分。
type oauth2Client struct {
	providerType model.ProviderType
	config       *oauth2.Config
	userInfoURL  string
	httpClient   *http.Client
}

func newOAuth2Client(p model.ProviderType, cfg ProviderConfig, scopes []string) *oauth2Client {
	return &oauth2Client{
		providerType: p,
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   cfg.AuthURL,
				TokenURL:  cfg.TokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		userInfoURL: cfg.UserInfoURL,
		httpClient:  cfg.HTTPClient,
	}
}

// Type はプロバイダー種別を返す。
func (c *oauth2Client) Type() model.ProviderType {
	return c.providerType
}

// AuthCodeURL は認可エンドポイントへのリダイレクトURLを生成する。
func (c *oauth2Client) AuthCodeURL(state string) string {
	return c.config.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// withClient はx/oauth2が参照するHTTPクライアントをcontextに載せる。
func (c *oauth2Client) withClient(ctx context.Context) context.Context {
	if c.httpClient == nil {
		return ctx
	}
	return context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
}

// exchange は認可コードをトークンに交換する。
func (c *oauth2Client) exchange(ctx context.Context, code string, opts ...oauth2.AuthCodeOption) (*oauth2.Token, error) {
	if code == "" {
		return nil, fmt.Errorf("authorization code is required")
	}
	tok, err := c.config.Exchange(c.withClient(ctx), code, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange token: %w", err)
	}
	if tok.AccessToken == "" {
		return nil, fmt.Errorf("empty access token in response")
	}
	return tok, nil
}

// fetchUserInfo はアクセストークンでユーザー情報エンドポイントを呼び出し、JSONをdstにデコードする。
func (c *oauth2Client) fetchUserInfo(ctx context.Context, tok *oauth2.Token, dst any) error {
	ctx = c.withClient(ctx)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.userInfoURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create user info request: %w", err)
	}

	resp, err := c.config.Client(ctx, tok).Do(req)
	if err != nil {
		return fmt.Errorf("user info request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxUserInfoBytes))
	if err != nil {
		return fmt.Errorf("failed to read user info response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("user info fetch failed with status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("failed to parse user info response: %w", err)
	}
	return nil
}

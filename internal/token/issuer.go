// Package token はBearerトークン（JWT）の発行と検証を提供する。
//
// トークンはサーバー側で状態を持たない。検証結果は署名鍵と現在時刻と
// トークン文字列だけで決まり、失効リストは存在しない。
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/neon/tonari/internal/model"
)

const (
	// DefaultTTL はトークンの既定の有効期間。
	DefaultTTL = 24 * time.Hour

	// DefaultIssuer はissクレームの既定値。
	DefaultIssuer = "tonari"

	// MinSecretLength はHS256署名鍵の最小バイト長。
	MinSecretLength = 32
)

// 検証エラー。Verifyが返すエラーは必ずこの3種類のいずれかをラップする。
var (
	ErrInvalidSignature = errors.New("token: invalid signature")
	ErrExpired          = errors.New("token: expired")
	ErrMalformed        = errors.New("token: malformed")
)

// Claims はトークンに埋め込むクレーム。
type Claims struct {
	jwt.RegisteredClaims

	// Provider はログインに使ったソーシャルログインプロバイダー（GOOGLE, KAKAO, NAVER）。
	Provider string `json:"provider,omitempty"`
}

// Config はIssuerの設定。
type Config struct {
	Secret []byte
	TTL    time.Duration
	Issuer string
}

// Option はIssuerの生成オプション。
type Option func(*Issuer)

// WithClock は現在時刻の取得関数を差し替える。テスト用。
func WithClock(now func() time.Time) Option {
	return func(i *Issuer) {
		i.now = now
	}
}

// Issuer は認証済みPrincipalから署名付きトークンを発行し、検証する。
// 生成後は読み取り専用のため、複数のgoroutineから安全に利用できる。
type Issuer struct {
	secret []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time
	parser *jwt.Parser
}

// NewIssuer はIssuerを生成する。
// 署名鍵がMinSecretLengthバイト未満の場合はエラーを返す。
func NewIssuer(cfg Config, opts ...Option) (*Issuer, error) {
	if len(cfg.Secret) < MinSecretLength {
		return nil, fmt.Errorf("token: signing secret must be at least %d bytes, got %d", MinSecretLength, len(cfg.Secret))
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.Issuer == "" {
		cfg.Issuer = DefaultIssuer
	}

	secret := make([]byte, len(cfg.Secret))
	copy(secret, cfg.Secret)

	i := &Issuer{
		secret: secret,
		ttl:    cfg.TTL,
		issuer: cfg.Issuer,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(i)
	}

	i.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(i.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithStrictDecoding(),
		jwt.WithTimeFunc(i.now),
	)

	return i, nil
}

// TTL はトークンの有効期間を返す。
func (i *Issuer) TTL() time.Duration {
	return i.ttl
}

// Issue はPrincipalのトークンを発行し、トークン文字列と有効期限を返す。
func (i *Issuer) Issue(p model.Principal) (string, time.Time, error) {
	if p.ID == "" {
		return "", time.Time{}, fmt.Errorf("token: principal ID is required")
	}

	now := i.now()
	expiresAt := now.Add(i.ttl)

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.issuer,
			Subject:   p.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.NewString(),
		},
		Provider: string(p.Provider),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("token: failed to sign: %w", err)
	}

	// NumericDateは秒精度のため、実際に埋め込まれた値を返す
	return signed, claims.ExpiresAt.Time, nil
}

// Verify はトークンを検証し、埋め込まれたPrincipalを返す。
// 失敗時のエラーはErrInvalidSignature、ErrExpired、ErrMalformedのいずれかをラップする。
func (i *Issuer) Verify(raw string) (model.Principal, error) {
	if raw == "" {
		return model.Principal{}, fmt.Errorf("%w: empty token", ErrMalformed)
	}

	claims := &Claims{}
	_, err := i.parser.ParseWithClaims(raw, claims, func(_ *jwt.Token) (any, error) {
		return i.secret, nil
	})
	if err != nil {
		return model.Principal{}, classify(err)
	}

	if claims.Subject == "" {
		return model.Principal{}, fmt.Errorf("%w: missing subject", ErrMalformed)
	}

	p := model.Principal{ID: claims.Subject}
	if claims.Provider != "" {
		provider, err := model.ParseProviderType(claims.Provider)
		if err != nil {
			return model.Principal{}, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		p.Provider = provider
	}

	return p, nil
}

// classify はjwtライブラリのエラーを3種類の検証エラーに分類する。
// 署名不一致を期限切れより優先する。
func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: %v", ErrExpired, err)
	default:
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
}

// Reason はメトリクスやログ用に検証エラーの種別を短い文字列で返す。
func Reason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidSignature):
		return "invalid_signature"
	case errors.Is(err, ErrExpired):
		return "expired"
	default:
		return "malformed"
	}
}

// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/neon/tonari/internal/model"
	"github.com/neon/tonari/internal/token"
)

// unauthorizedBody は401応答の本文。失敗理由はログとメトリクスにのみ残す。
const unauthorizedBody = "Unauthorized"

// ReasonMissing はAuthorizationヘッダーにbearer tokenがない場合の失敗理由。
const ReasonMissing = "missing"

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// principalContextKey はリクエストコンテキストにPrincipalを格納するためのキー。
var principalContextKey = contextKey("principal")

// TokenVerifier はbearer tokenを検証しPrincipalを返す。
type TokenVerifier interface {
	Verify(raw string) (model.Principal, error)
}

// AuthFailureRecorder は認証失敗を理由別に記録する。
type AuthFailureRecorder interface {
	RecordAuthFailure(reason string)
}

// NewAuthenticationMiddleware はAuthorization: Bearerヘッダーのトークンを検証するミドルウェアを返す。
//
// OPTIONSリクエストはCORSヘッダー付与後に本文なしの200で応答する。
// 公開パスは検証せずに通す。それ以外でトークンがない、または検証に失敗した場合は
// 本文"Unauthorized"の401を返す。成功時はPrincipalをコンテキストに注入する。
func NewAuthenticationMiddleware(verifier TokenVerifier, public *PathMatcher, recorder AuthFailureRecorder) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}

			if public.Match(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			raw, ok := BearerToken(r)
			if !ok {
				rejectUnauthorized(w, r, recorder, ReasonMissing)
				return
			}

			principal, err := verifier.Verify(raw)
			if err != nil {
				rejectUnauthorized(w, r, recorder, token.Reason(err))
				return
			}

			setLoggedUserID(r.Context(), principal.ID)
			next.ServeHTTP(w, r.WithContext(ContextWithPrincipal(r.Context(), principal)))
		})
	}
}

// BearerToken はAuthorizationヘッダーからbearer tokenを取り出す。スキーム名は大文字小文字を区別しない。
func BearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, raw, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	return raw, true
}

// WriteUnauthorized は本文"Unauthorized"の401レスポンスを書き込む。
func WriteUnauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("WWW-Authenticate", "Bearer")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(unauthorizedBody))
}

func rejectUnauthorized(w http.ResponseWriter, r *http.Request, recorder AuthFailureRecorder, reason string) {
	slog.Info("authentication failed",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("reason", reason),
	)
	if recorder != nil {
		recorder.RecordAuthFailure(reason)
	}
	WriteUnauthorized(w)
}

// PrincipalFromContext はリクエストコンテキストからPrincipalを取得する。
// 認証ミドルウェアを通過したリクエストでのみ有効。
func PrincipalFromContext(ctx context.Context) (model.Principal, error) {
	p, ok := ctx.Value(principalContextKey).(model.Principal)
	if !ok || p.ID == "" {
		return model.Principal{}, fmt.Errorf("principal not found in context")
	}
	return p, nil
}

// UserIDFromContext はリクエストコンテキストから認証済みユーザーIDを取得する。
func UserIDFromContext(ctx context.Context) (string, error) {
	p, err := PrincipalFromContext(ctx)
	if err != nil {
		return "", err
	}
	return p.ID, nil
}

// ContextWithPrincipal はコンテキストにPrincipalを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithPrincipal(ctx context.Context, p model.Principal) context.Context {
	return context.WithValue(ctx, principalContextKey, p)
}

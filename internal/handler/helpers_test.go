package handler

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/neon/tonari/internal/middleware"
	"github.com/neon/tonari/internal/model"
)

// --- テストヘルパー ---

// withPrincipal はテスト用にリクエストコンテキストにPrincipalを注入するヘルパー。
func withPrincipal(r *http.Request, id string, provider model.ProviderType) *http.Request {
	ctx := middleware.ContextWithPrincipal(r.Context(), model.Principal{ID: id, Provider: provider})
	return r.WithContext(ctx)
}

// withChiURLParam はテスト用にchiのURLパラメータを注入するヘルパー。
func withChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	ctx := context.WithValue(r.Context(), chi.RouteCtxKey, rctx)
	return r.WithContext(ctx)
}

// fakeCollector はメトリクス呼び出しを記録するテスト用実装。
type fakeCollector struct {
	mu           sync.Mutex
	logins       []string
	tokens       []string
	authFailures []string
}

func (f *fakeCollector) RecordLogin(provider, result string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logins = append(f.logins, provider+":"+result)
}

func (f *fakeCollector) RecordTokenIssued(kind string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens = append(f.tokens, kind)
}

func (f *fakeCollector) RecordAuthFailure(reason string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.authFailures = append(f.authFailures, reason)
}

func (f *fakeCollector) RecordHTTPStatus(int)               {}
func (f *fakeCollector) RecordRequestLatency(time.Duration) {}

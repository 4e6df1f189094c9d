package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/neon/tonari/internal/auth"
	"github.com/neon/tonari/internal/model"
)

// --- モック定義 ---

type mockAuthService struct {
	loginURLFn func(provider model.ProviderType, state string) (string, error)
	loginFn    func(ctx context.Context, provider model.ProviderType, code, state string) (model.Principal, error)
}

func (m *mockAuthService) LoginURL(provider model.ProviderType, state string) (string, error) {
	if m.loginURLFn != nil {
		return m.loginURLFn(provider, state)
	}
	return "", errors.New("not configured")
}

func (m *mockAuthService) Login(ctx context.Context, provider model.ProviderType, code, state string) (model.Principal, error) {
	if m.loginFn != nil {
		return m.loginFn(ctx, provider, code, state)
	}
	return model.Principal{}, errors.New("not configured")
}

func successTo(target string) auth.LoginSuccessHandler {
	return auth.LoginSuccessFunc(func(_ context.Context, p model.Principal) (string, error) {
		return target + "?user=" + p.ID, nil
	})
}

func callbackRequest(provider, query, cookieState string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/login/oauth2/code/"+provider+"?"+query, nil)
	if cookieState != "" {
		req.AddCookie(&http.Cookie{Name: oauthStateCookie, Value: cookieState})
	}
	return withChiURLParam(req, "provider", provider)
}

// --- テスト ---

func TestAuthHandler_Authorize_RedirectsWithStateCookie(t *testing.T) {
	var gotProvider model.ProviderType
	var gotState string
	svc := &mockAuthService{
		loginURLFn: func(provider model.ProviderType, state string) (string, error) {
			gotProvider, gotState = provider, state
			return "https://kauth.kakao.com/oauth/authorize?state=" + state, nil
		},
	}
	h := NewAuthHandler(svc, successTo("/"), nil, AuthHandlerConfig{CookieSecure: true})

	req := withChiURLParam(httptest.NewRequest(http.MethodGet, "/oauth2/authorization/kakao", nil), "provider", "kakao")
	w := httptest.NewRecorder()

	h.Authorize(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusFound {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusFound)
	}
	if gotProvider != model.ProviderKakao {
		t.Errorf("provider = %q, want KAKAO", gotProvider)
	}
	if loc := resp.Header.Get("Location"); !strings.HasPrefix(loc, "https://kauth.kakao.com/") {
		t.Errorf("Location = %q, want kakao authorize URL", loc)
	}

	var stateCookie *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == oauthStateCookie {
			stateCookie = c
		}
	}
	if stateCookie == nil {
		t.Fatal("expected oauth_state cookie")
	}
	if stateCookie.Value == "" || stateCookie.Value != gotState {
		t.Errorf("cookie state = %q, service state = %q", stateCookie.Value, gotState)
	}
	if !stateCookie.HttpOnly || !stateCookie.Secure {
		t.Error("state cookie should be HttpOnly and Secure")
	}
}

func TestAuthHandler_Authorize_FailuresRedirectToLoginError(t *testing.T) {
	tests := []struct {
		name     string
		provider string
		svc      *mockAuthService
	}{
		{"unknown provider", "github", &mockAuthService{}},
		{"unconfigured provider", "naver", &mockAuthService{
			loginURLFn: func(provider model.ProviderType, _ string) (string, error) {
				return "", model.NewUnsupportedProviderError(provider.String())
			},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewAuthHandler(tt.svc, successTo("/"), nil, AuthHandlerConfig{})
			req := withChiURLParam(httptest.NewRequest(http.MethodGet, "/oauth2/authorization/"+tt.provider, nil), "provider", tt.provider)
			w := httptest.NewRecorder()

			h.Authorize(w, req)

			resp := w.Result()
			if resp.StatusCode != http.StatusFound {
				t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusFound)
			}
			if loc := resp.Header.Get("Location"); loc != LoginFailurePath {
				t.Errorf("Location = %q, want %q", loc, LoginFailurePath)
			}
		})
	}
}

func TestAuthHandler_Callback_Success_RedirectsToTarget(t *testing.T) {
	var gotCode, gotState string
	svc := &mockAuthService{
		loginFn: func(_ context.Context, provider model.ProviderType, code, state string) (model.Principal, error) {
			gotCode, gotState = code, state
			return model.Principal{ID: "user-1", Provider: provider}, nil
		},
	}
	collector := &fakeCollector{}
	h := NewAuthHandler(svc, successTo("https://app.example.com/login"), collector, AuthHandlerConfig{})

	w := httptest.NewRecorder()
	h.Callback(w, callbackRequest("naver", "code=auth-code&state=s1", "s1"))

	resp := w.Result()
	if resp.StatusCode != http.StatusFound {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusFound)
	}
	if loc := resp.Header.Get("Location"); loc != "https://app.example.com/login?user=user-1" {
		t.Errorf("Location = %q", loc)
	}
	if gotCode != "auth-code" || gotState != "s1" {
		t.Errorf("Login called with code=%q state=%q", gotCode, gotState)
	}
	if len(collector.logins) != 1 || collector.logins[0] != "NAVER:success" {
		t.Errorf("logins = %v, want [NAVER:success]", collector.logins)
	}
	if len(collector.tokens) != 1 || collector.tokens[0] != "login" {
		t.Errorf("tokens = %v, want [login]", collector.tokens)
	}

	// stateクッキーは削除される
	for _, c := range resp.Cookies() {
		if c.Name == oauthStateCookie && c.MaxAge >= 0 {
			t.Errorf("state cookie should be cleared, got MaxAge=%d", c.MaxAge)
		}
	}
}

func TestAuthHandler_Callback_FailuresRedirectToLoginError(t *testing.T) {
	okLogin := func(_ context.Context, provider model.ProviderType, _, _ string) (model.Principal, error) {
		return model.Principal{ID: "user-1", Provider: provider}, nil
	}

	tests := []struct {
		name      string
		provider  string
		query     string
		cookie    string
		loginFn   func(ctx context.Context, provider model.ProviderType, code, state string) (model.Principal, error)
		onSuccess auth.LoginSuccessHandler
	}{
		{"unknown provider", "github", "code=c&state=s", "s", okLogin, nil},
		{"state mismatch", "google", "code=c&state=other", "s", okLogin, nil},
		{"missing state cookie", "google", "code=c&state=s", "", okLogin, nil},
		{"empty state", "google", "code=c&state=", "", okLogin, nil},
		{"provider error", "kakao", "error=access_denied&state=s", "s", okLogin, nil},
		{"missing code", "kakao", "state=s", "s", okLogin, nil},
		{"exchange failure", "kakao", "code=c&state=s", "s",
			func(_ context.Context, provider model.ProviderType, _, _ string) (model.Principal, error) {
				return model.Principal{}, model.NewProviderFailureError(provider, errors.New("invalid_grant"))
			}, nil},
		{"token issue failure", "google", "code=c&state=s", "s", okLogin,
			auth.LoginSuccessFunc(func(context.Context, model.Principal) (string, error) {
				return "", errors.New("signing failed")
			})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			onSuccess := tt.onSuccess
			if onSuccess == nil {
				onSuccess = successTo("https://app.example.com/login")
			}
			h := NewAuthHandler(&mockAuthService{loginFn: tt.loginFn}, onSuccess, nil, AuthHandlerConfig{})

			w := httptest.NewRecorder()
			h.Callback(w, callbackRequest(tt.provider, tt.query, tt.cookie))

			resp := w.Result()
			if resp.StatusCode != http.StatusFound {
				t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusFound)
			}
			if loc := resp.Header.Get("Location"); loc != LoginFailurePath {
				t.Errorf("Location = %q, want %q", loc, LoginFailurePath)
			}
		})
	}
}

func TestAuthHandler_Callback_FailureRecordsMetric(t *testing.T) {
	collector := &fakeCollector{}
	h := NewAuthHandler(&mockAuthService{}, successTo("/"), collector, AuthHandlerConfig{})

	h.Callback(httptest.NewRecorder(), callbackRequest("google", "code=c&state=s", "s"))

	if len(collector.logins) != 1 || collector.logins[0] != "GOOGLE:failure" {
		t.Errorf("logins = %v, want [GOOGLE:failure]", collector.logins)
	}
	if len(collector.tokens) != 0 {
		t.Errorf("tokens = %v, want none", collector.tokens)
	}
}

func TestGenerateState_IsRandomHex(t *testing.T) {
	a, err := generateState()
	if err != nil {
		t.Fatalf("generateState failed: %v", err)
	}
	b, _ := generateState()
	if len(a) != 32 || a == b {
		t.Errorf("unexpected states %q, %q", a, b)
	}
}

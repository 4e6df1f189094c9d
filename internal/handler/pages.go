package handler

import (
	"bytes"
	"embed"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"strings"

	"github.com/neon/tonari/internal/model"
)

//go:embed web/templates/*.html
var templateFS embed.FS

//go:embed web/static
var staticFS embed.FS

var loginTemplate = template.Must(template.ParseFS(templateFS, "web/templates/login.html"))

type providerLink struct {
	Slug  string
	Label string
}

type loginPage struct {
	Title     string
	Failed    bool
	Providers []providerLink
}

var providerLabels = map[model.ProviderType]string{
	model.ProviderGoogle: "Google",
	model.ProviderKakao:  "Kakao",
	model.ProviderNaver:  "Naver",
}

// PageHandler はトップページとログインページを描画する。
type PageHandler struct {
	providers []providerLink
}

// NewPageHandler は有効なプロバイダーのログインリンクを持つPageHandlerを生成する。
func NewPageHandler(providers []model.ProviderType) *PageHandler {
	links := make([]providerLink, 0, len(providers))
	for _, p := range providers {
		links = append(links, providerLink{Slug: p.Lower(), Label: providerLabels[p]})
	}
	return &PageHandler{providers: links}
}

// Index はトップページを返す。
// GET /
func (h *PageHandler) Index(w http.ResponseWriter, r *http.Request) {
	h.render(w, loginPage{Title: "tonari", Providers: h.providers})
}

// Login はログインページを返す。?error=trueの場合は失敗メッセージを表示する。
// GET /login
func (h *PageHandler) Login(w http.ResponseWriter, r *http.Request) {
	h.render(w, loginPage{
		Title:     "로그인",
		Failed:    r.URL.Query().Get("error") == "true",
		Providers: h.providers,
	})
}

func (h *PageHandler) render(w http.ResponseWriter, page loginPage) {
	var buf bytes.Buffer
	if err := loginTemplate.Execute(&buf, page); err != nil {
		slog.Error("failed to render page", slog.String("error", err.Error()))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = buf.WriteTo(w)
}

// StaticHandler は埋め込みの/css/*と/js/*を配信するハンドラーを返す。ディレクトリ一覧は返さない。
func StaticHandler() http.Handler {
	sub, err := fs.Sub(staticFS, "web/static")
	if err != nil {
		panic(err)
	}
	files := http.FileServer(http.FS(sub))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		files.ServeHTTP(w, r)
	})
}

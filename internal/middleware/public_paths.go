package middleware

import "strings"

// DefaultPublicPatterns は認証なしでアクセスできるパス。
// 末尾の"**"はそれより前の部分で始まるすべてのパスに一致する。
var DefaultPublicPatterns = []string{
	"/",
	"/login**",
	"/css/**",
	"/js/**",
	"/api/auth/token",
	"/oauth2/**",
	"/health",
	"/metrics",
}

// PathMatcher は完全一致と前方一致のパターン集合でパスを判定する。
type PathMatcher struct {
	exact    map[string]struct{}
	prefixes []string
}

// NewPathMatcher はパターンからPathMatcherを生成する。
func NewPathMatcher(patterns ...string) *PathMatcher {
	m := &PathMatcher{exact: make(map[string]struct{}, len(patterns))}
	for _, p := range patterns {
		if prefix, ok := strings.CutSuffix(p, "**"); ok {
			m.prefixes = append(m.prefixes, prefix)
			continue
		}
		m.exact[p] = struct{}{}
	}
	return m
}

// DefaultPublicPaths は既定の公開パスのPathMatcherを返す。
func DefaultPublicPaths() *PathMatcher {
	return NewPathMatcher(DefaultPublicPatterns...)
}

// Match はpathがいずれかのパターンに一致するかを返す。
func (m *PathMatcher) Match(path string) bool {
	if _, ok := m.exact[path]; ok {
		return true
	}
	for _, prefix := range m.prefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

package security

import (
	"net/http"
	"time"

	"github.com/doyensec/safeurl"
)

// NewEgressClient はOAuthプロバイダーとの通信に使うHTTPクライアントを生成する。
// safeurlにより、httpsの443番ポート以外と、プライベートIP・ループバック・
// リンクローカル(メタデータIPを含む)への接続が拒否される。
// 検証はDNS解決後のIPアドレスに対して行われるため、DNS再バインディングも防げる。
func NewEgressClient(timeout time.Duration) *http.Client {
	config := safeurl.GetConfigBuilder().
		SetTimeout(timeout).
		SetAllowedSchemes("https").
		SetAllowedPorts(443).
		Build()

	return safeurl.Client(config).Client
}

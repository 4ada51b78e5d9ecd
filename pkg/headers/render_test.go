package headers

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestResponseHeadersRefusesUnvalidated(t *testing.T) {
	p := Policy{Mode: ModeCustom, Directives: customDefaults}
	_, err := p.ResponseHeaders()
	assert.Error(t, err)

	_, err = p.TraefikMiddlewares()
	assert.Error(t, err)

	_, err = RenderNginxFragment(p)
	assert.Error(t, err)
}

func TestTraefikMiddlewares(t *testing.T) {
	policy, err := Resolve(ModeCustom, nil)
	require.NoError(t, err)

	middlewares, err := policy.TraefikMiddlewares()
	require.NoError(t, err)

	mw, ok := middlewares[MiddlewareName]
	require.True(t, ok)
	assert.Equal(t, map[string]string{
		"Server":       "Apache/2.4.41",
		"X-Powered-By": "PHP/8.1.0",
		"X-Framework":  "Laravel/9.0",
	}, mw.Headers.CustomResponseHeaders)

	// 序列化后的字段名必须命中 traefik 的配置键
	out, err := yaml.Marshal(middlewares)
	require.NoError(t, err)
	assert.Contains(t, string(out), "customResponseHeaders")
}

func TestRenderNginxFragment(t *testing.T) {
	policy, err := Resolve(ModeNginx, nil)
	require.NoError(t, err)

	out, err := RenderNginxFragment(policy)
	require.NoError(t, err)
	text := string(out)

	assert.Contains(t, text, "server_tokens off;")
	assert.Contains(t, text, `add_header X-Powered-By "PHP/8.2.4" always;`)
	// Server 头由边缘代理统一改写，nginx 片段不输出
	assert.NotContains(t, text, `add_header Server`)
	for _, line := range strings.Split(strings.TrimSpace(text), "\n") {
		assert.True(t, strings.HasSuffix(line, ";"), "line %q", line)
	}
}

package headers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMode(t *testing.T) {
	for _, input := range []string{"traefik", "Traefik", " NGINX ", "custom"} {
		_, err := ParseMode(input)
		assert.NoError(t, err, "input %q", input)
	}
	_, err := ParseMode("apache")
	assert.Error(t, err)
}

func TestResolveTraefik(t *testing.T) {
	policy, err := Resolve(ModeTraefik, nil)
	require.NoError(t, err)
	assert.True(t, policy.Validated)

	names := directiveNames(policy)
	assert.Equal(t, []string{
		"Server",
		"X-Frame-Options",
		"X-Content-Type-Options",
		"X-XSS-Protection",
		"Strict-Transport-Security",
	}, names)
	assert.Equal(t, "Traefik", policy.Directives[0].Value)
}

func TestResolveTraefikIgnoresOverrides(t *testing.T) {
	// 透明模式的安全姿态不允许调整，覆盖项整体忽略
	policy, err := Resolve(ModeTraefik, map[string]string{"Server": "Apache", "Bogus": "x"})
	require.NoError(t, err)
	for _, d := range policy.Directives {
		assert.Equal(t, OriginBuiltin, d.Origin)
	}
	assert.Equal(t, "Traefik", policy.Directives[0].Value)
}

func TestResolveCustomDefaults(t *testing.T) {
	policy, err := Resolve(ModeCustom, nil)
	require.NoError(t, err)
	require.Len(t, policy.Directives, 3)
	assert.Equal(t, Directive{Name: "Server", Value: "Apache/2.4.41", Origin: OriginBuiltin}, policy.Directives[0])
	assert.Equal(t, Directive{Name: "X-Powered-By", Value: "PHP/8.1.0", Origin: OriginBuiltin}, policy.Directives[1])
	assert.Equal(t, Directive{Name: "X-Framework", Value: "Laravel/9.0", Origin: OriginBuiltin}, policy.Directives[2])
}

func TestResolveNginxDefaults(t *testing.T) {
	policy, err := Resolve(ModeNginx, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"Server", "X-Powered-By", "X-Served-By"}, directiveNames(policy))
}

func TestResolveOverrideKeepsOrder(t *testing.T) {
	policy, err := Resolve(ModeCustom, map[string]string{"X-Powered-By": "ASP.NET"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Server", "X-Powered-By", "X-Framework"}, directiveNames(policy))
	assert.Equal(t, "ASP.NET", policy.Directives[1].Value)
	assert.Equal(t, OriginOverride, policy.Directives[1].Origin)
	// 未覆盖的指令保持内置来源
	assert.Equal(t, OriginBuiltin, policy.Directives[0].Origin)
}

func TestResolveRejectsUnknownOverride(t *testing.T) {
	_, err := Resolve(ModeCustom, map[string]string{"X-Unknown": "v"})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestResolveRejectsEmptyValue(t *testing.T) {
	_, err := Resolve(ModeNginx, map[string]string{"Server": ""})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestResolveRejectsCRLF(t *testing.T) {
	// 响应头值里的 CR/LF 可用于注入额外的头，必须拒绝
	for _, bad := range []string{"evil\r\nX-Inject: 1", "line\nbreak", "cr\rhere"} {
		_, err := Resolve(ModeCustom, map[string]string{"Server": bad})
		var verr *ValidationError
		require.ErrorAs(t, err, &verr, "value %q", bad)
	}
}

func TestValidateRejectsDuplicates(t *testing.T) {
	err := validate(ModeCustom, []Directive{
		{Name: "Server", Value: "a"},
		{Name: "Server", Value: "b"},
	}, nil)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestValidateRequiresSingleServer(t *testing.T) {
	err := validate(ModeCustom, []Directive{
		{Name: "X-Powered-By", Value: "PHP"},
	}, nil)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestResolveDeterministic(t *testing.T) {
	a, err := Resolve(ModeCustom, map[string]string{"Server": "nginx"})
	require.NoError(t, err)
	b, err := Resolve(ModeCustom, map[string]string{"Server": "nginx"})
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func directiveNames(p Policy) []string {
	names := make([]string, 0, len(p.Directives))
	for _, d := range p.Directives {
		names = append(names, d.Name)
	}
	return names
}

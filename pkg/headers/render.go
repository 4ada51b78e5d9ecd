package headers

import (
	"fmt"
	"strings"
)

// MiddlewareName 是 traefik 动态配置里响应头中间件的名字
// compose 模板中的路由 labels 按这个名字引用中间件
const MiddlewareName = "header-posture"

// ResponseHeaders 返回指令集的 name -> value 映射，供配置渲染层消费
// 未通过校验的 Policy 拒绝导出
func (p Policy) ResponseHeaders() (map[string]string, error) {
	if !p.Validated {
		return nil, fmt.Errorf("refusing to export unvalidated policy")
	}
	out := make(map[string]string, len(p.Directives))
	for _, d := range p.Directives {
		out[d.Name] = d.Value
	}
	return out, nil
}

// TraefikMiddleware traefik 动态配置中响应头中间件的结构
// 配置渲染层把它嵌进完整的动态配置一并序列化
type TraefikMiddleware struct {
	Headers struct {
		CustomResponseHeaders map[string]string `yaml:"customResponseHeaders"`
	} `yaml:"headers"`
}

// TraefikMiddlewares 把校验过的 Policy 变成动态配置的中间件段
// 键为 MiddlewareName，路由层按这个名字挂载中间件。
// 边缘代理对响应头有最终决定权，全部指令都在中间件里下发，
// 保证外部观察到的响应头和 Policy 逐字节一致
func (p Policy) TraefikMiddlewares() (map[string]TraefikMiddleware, error) {
	hdrs, err := p.ResponseHeaders()
	if err != nil {
		return nil, err
	}
	mw := TraefikMiddleware{}
	mw.Headers.CustomResponseHeaders = hdrs
	return map[string]TraefikMiddleware{MiddlewareName: mw}, nil
}

// RenderNginxFragment 渲染内部 nginx 的响应头配置片段
// nginx 无法在不加第三方模块的情况下改写 Server 头，
// 所以这里只关闭版本号并下发其余指令；Server 头由边缘代理统一改写
func RenderNginxFragment(policy Policy) ([]byte, error) {
	if !policy.Validated {
		return nil, fmt.Errorf("refusing to render unvalidated policy")
	}

	var b strings.Builder
	b.WriteString("server_tokens off;\n")
	for _, d := range policy.Directives {
		if d.Name == "Server" {
			continue
		}
		fmt.Fprintf(&b, "add_header %s %q always;\n", d.Name, d.Value)
	}
	return []byte(b.String()), nil
}

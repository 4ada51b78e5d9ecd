package deploy

import (
	"bytes"
	"fmt"
	"text/template"

	"example.com/StealthStack/pkg/headers"
	"gopkg.in/yaml.v3"
)

// StackVars 渲染远端配置树需要的全部变量
type StackVars struct {
	Domain         string
	StackDir       string
	HTTPPort       string
	HTTPSPort      string
	TraefikVersion string
	NginxVersion   string
}

// DefaultVars 内置默认值，优先级最低
func DefaultVars() StackVars {
	return StackVars{
		Domain:         "example.com",
		StackDir:       "/opt/sstack",
		HTTPPort:       "80",
		HTTPSPort:      "443",
		TraefikVersion: "v3.1",
		NginxVersion:   "1.24-alpine",
	}
}

// MergeVars 按优先级合并变量: 命令行覆盖 > 节点清单变量 > 内置默认值
func MergeVars(nodeVars, cliVars map[string]string) StackVars {
	v := DefaultVars()
	for _, m := range []map[string]string{nodeVars, cliVars} {
		for key, val := range m {
			if val == "" {
				continue
			}
			switch key {
			case "domain":
				v.Domain = val
			case "stack_dir":
				v.StackDir = val
			case "http_port":
				v.HTTPPort = val
			case "https_port":
				v.HTTPSPort = val
			case "traefik_version":
				v.TraefikVersion = val
			case "nginx_version":
				v.NginxVersion = val
			}
		}
	}
	return v
}

// Artifacts 渲染好的配置树: 相对路径 -> 内容
type Artifacts map[string][]byte

// RenderArtifacts 渲染一个节点的完整远端配置树
// 相同的 vars 和 policy 必定产出相同的内容
func RenderArtifacts(vars StackVars, policy headers.Policy) (Artifacts, error) {
	a := make(Artifacts, 5)

	for name, tmpl := range map[string]string{
		"docker-compose.yml":  composeTemplate,
		"traefik/traefik.yml": traefikStaticTemplate,
		"nginx/nginx.conf":    nginxConfTemplate,
		"sstack.service":      unitTemplate,
	} {
		out, err := renderTemplate(name, tmpl, vars)
		if err != nil {
			return nil, err
		}
		a[name] = out
	}

	dynamic, err := renderTraefikDynamic(vars, policy)
	if err != nil {
		return nil, err
	}
	a["traefik/dynamic.yml"] = dynamic

	fragment, err := headers.RenderNginxFragment(policy)
	if err != nil {
		return nil, err
	}
	a["nginx/headers.conf"] = fragment

	return a, nil
}

// RenderHeaderArtifacts 只渲染响应头相关的配置单元 (headers 操作下发的子集)
func RenderHeaderArtifacts(vars StackVars, policy headers.Policy) (Artifacts, error) {
	dynamic, err := renderTraefikDynamic(vars, policy)
	if err != nil {
		return nil, err
	}
	fragment, err := headers.RenderNginxFragment(policy)
	if err != nil {
		return nil, err
	}
	return Artifacts{
		"traefik/dynamic.yml": dynamic,
		"nginx/headers.conf":  fragment,
	}, nil
}

func renderTemplate(name, text string, vars StackVars) ([]byte, error) {
	tmpl, err := template.New(name).Parse(text)
	if err != nil {
		return nil, fmt.Errorf("parse template %s failed: %w", name, err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, vars); err != nil {
		return nil, fmt.Errorf("render %s failed: %w", name, err)
	}
	return buf.Bytes(), nil
}

// traefik 动态配置：响应头中间件 + 路由
// 所有进入边缘代理的流量都挂响应头中间件，
// 保证外部观察到的响应头和已下发的 Policy 逐字节一致
type dynamicConfig struct {
	HTTP struct {
		Middlewares map[string]headers.TraefikMiddleware `yaml:"middlewares"`
		Routers     map[string]dynamicRouter             `yaml:"routers"`
		Services    map[string]dynamicService            `yaml:"services"`
	} `yaml:"http"`
}

type dynamicRouter struct {
	Rule        string   `yaml:"rule"`
	EntryPoints []string `yaml:"entryPoints"`
	Middlewares []string `yaml:"middlewares"`
	Service     string   `yaml:"service"`
}

type dynamicService struct {
	LoadBalancer struct {
		Servers []map[string]string `yaml:"servers"`
	} `yaml:"loadBalancer"`
}

func renderTraefikDynamic(vars StackVars, policy headers.Policy) ([]byte, error) {
	middlewares, err := policy.TraefikMiddlewares()
	if err != nil {
		return nil, err
	}

	var cfg dynamicConfig
	cfg.HTTP.Middlewares = middlewares

	cfg.HTTP.Routers = map[string]dynamicRouter{
		"web": {
			Rule:        fmt.Sprintf("Host(`%s`)", vars.Domain),
			EntryPoints: []string{"web", "websecure"},
			Middlewares: []string{headers.MiddlewareName},
			Service:     "nginx",
		},
	}

	svc := dynamicService{}
	svc.LoadBalancer.Servers = []map[string]string{{"url": "http://nginx:80"}}
	cfg.HTTP.Services = map[string]dynamicService{"nginx": svc}

	return yaml.Marshal(&cfg)
}

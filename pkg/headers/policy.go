package headers

import (
	"fmt"
	"strings"
)

// Mode 表示对外暴露的响应头姿态
type Mode string

const (
	// ModeTraefik 透明模式：如实标识边缘代理，并附加一组安全响应头
	ModeTraefik Mode = "traefik"
	// ModeNginx 标准模式：标识内部 web 服务器
	ModeNginx Mode = "nginx"
	// ModeCustom 伪装模式：对外伪装成另一套技术栈
	ModeCustom Mode = "custom"
)

// ParseMode 解析用户输入的模式名称
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeTraefik:
		return ModeTraefik, nil
	case ModeNginx:
		return ModeNginx, nil
	case ModeCustom:
		return ModeCustom, nil
	}
	return "", fmt.Errorf("未知的响应头模式: %q (可选: traefik, nginx, custom)", s)
}

// Origin 标记指令值的来源
type Origin int

const (
	OriginBuiltin Origin = iota
	OriginOverride
)

// Directive 一条响应头指令
type Directive struct {
	Name   string
	Value  string
	Origin Origin
}

// Policy 一组经过校验的响应头指令
// Validated 为 true 的 Policy 才允许进入渲染/下发流程
type Policy struct {
	Mode       Mode
	Directives []Directive
	Validated  bool
}

// Traefik 模式的固定指令集，安全姿态不允许用户调整
const (
	traefikServerValue = "Traefik"
	traefikHSTSValue   = "max-age=31536000; includeSubDomains"
)

// Nginx 模式的内置默认值，可按名覆盖
var nginxDefaults = []Directive{
	{Name: "Server", Value: "nginx/1.24.0", Origin: OriginBuiltin},
	{Name: "X-Powered-By", Value: "PHP/8.2.4", Origin: OriginBuiltin},
	{Name: "X-Served-By", Value: "nginx", Origin: OriginBuiltin},
}

// Custom 模式的内置默认值：伪装成 Apache + PHP + Laravel
var customDefaults = []Directive{
	{Name: "Server", Value: "Apache/2.4.41", Origin: OriginBuiltin},
	{Name: "X-Powered-By", Value: "PHP/8.1.0", Origin: OriginBuiltin},
	{Name: "X-Framework", Value: "Laravel/9.0", Origin: OriginBuiltin},
}

// ValidationError 表示指令集违反不变量，校验失败时不产出 Policy，
// 也绝不会触达任何远程渲染/下发步骤
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "header policy validation failed: " + e.Reason
}

// Resolve 把模式和覆盖项解析成一组校验过的响应头指令
// 相同输入必定产出相同结果；除校验失败外没有其他失败路径
func Resolve(mode Mode, overrides map[string]string) (Policy, error) {
	var directives []Directive
	switch mode {
	case ModeTraefik:
		// 覆盖项在该模式下整体忽略
		directives = []Directive{
			{Name: "Server", Value: traefikServerValue, Origin: OriginBuiltin},
			{Name: "X-Frame-Options", Value: "DENY", Origin: OriginBuiltin},
			{Name: "X-Content-Type-Options", Value: "nosniff", Origin: OriginBuiltin},
			{Name: "X-XSS-Protection", Value: "1; mode=block", Origin: OriginBuiltin},
			{Name: "Strict-Transport-Security", Value: traefikHSTSValue, Origin: OriginBuiltin},
		}
	case ModeNginx:
		directives = applyOverrides(nginxDefaults, overrides)
	case ModeCustom:
		directives = applyOverrides(customDefaults, overrides)
	default:
		// CommandRouter 层已经解析过模式，这里按约定不可达
		return Policy{}, fmt.Errorf("未知的响应头模式: %q", mode)
	}

	if err := validate(mode, directives, overrides); err != nil {
		return Policy{}, err
	}
	return Policy{Mode: mode, Directives: directives, Validated: true}, nil
}

// applyOverrides 按指令名套用覆盖值，保持内置顺序不变
// 覆盖只能替换已有指令，不能新增指令名
func applyOverrides(defaults []Directive, overrides map[string]string) []Directive {
	out := make([]Directive, len(defaults))
	for i, d := range defaults {
		if v, ok := overrides[d.Name]; ok {
			out[i] = Directive{Name: d.Name, Value: v, Origin: OriginOverride}
			continue
		}
		out[i] = d
	}
	return out
}

// validate 校验指令集的不变量：
// 恰好一条 Server；指令名不重复；值非空；值中不含 CR/LF
func validate(mode Mode, directives []Directive, overrides map[string]string) error {
	if mode != ModeTraefik {
		for name := range overrides {
			if !knownDirective(directives, name) {
				return &ValidationError{Reason: fmt.Sprintf("未识别的覆盖项 %q", name)}
			}
		}
	}

	seen := make(map[string]bool, len(directives))
	serverCount := 0
	for _, d := range directives {
		if d.Name == "" {
			return &ValidationError{Reason: "指令名为空"}
		}
		if d.Value == "" {
			return &ValidationError{Reason: fmt.Sprintf("指令 %q 的值为空", d.Name)}
		}
		if strings.ContainsAny(d.Value, "\r\n") {
			return &ValidationError{Reason: fmt.Sprintf("指令 %q 的值包含回车/换行符", d.Name)}
		}
		if seen[d.Name] {
			return &ValidationError{Reason: fmt.Sprintf("指令 %q 重复", d.Name)}
		}
		seen[d.Name] = true
		if d.Name == "Server" {
			serverCount++
		}
	}
	if serverCount != 1 {
		return &ValidationError{Reason: fmt.Sprintf("必须恰好有一条 Server 指令, 实际 %d 条", serverCount)}
	}
	return nil
}

func knownDirective(directives []Directive, name string) bool {
	for _, d := range directives {
		if d.Name == name {
			return true
		}
	}
	return false
}

package plan

import (
	"fmt"
	"strings"
)

// Operation 操作员一次调用要做的事情
type Operation int

const (
	OpFullDeploy Operation = iota
	OpDockerOnly
	OpWebOnly
	OpUpdate
	OpStatus
	OpConfigureHeaders
	OpInfo
	OpRemove
)

var opNames = map[Operation]string{
	OpFullDeploy:       "full",
	OpDockerOnly:       "docker",
	OpWebOnly:          "web",
	OpUpdate:           "update",
	OpStatus:           "status",
	OpConfigureHeaders: "headers",
	OpInfo:             "info",
	OpRemove:           "remove",
}

func (op Operation) String() string {
	if name, ok := opNames[op]; ok {
		return name
	}
	return fmt.Sprintf("operation(%d)", int(op))
}

// PhaseFlags 标记一次 apply 要执行哪些安装阶段
// 单节点内的阶段顺序固定: docker -> compose -> traefik/nginx
type PhaseFlags struct {
	Docker  bool
	Compose bool
	Traefik bool
	Nginx   bool
}

// Request 一次 apply 的完整计划，构建后在单次命令执行内消费、用完即弃
type Request struct {
	Op     Operation
	Phases PhaseFlags
	// Tags 限制本次 apply 触达哪些远端配置单元，空集表示全部
	Tags []string
	// Vars 调用时的 key=value 覆盖，优先级高于节点清单变量
	Vars map[string]string
}

// HasTag 判断标签过滤器是否放行某配置单元
// 过滤器为空时放行一切；配置单元可以带多个标签，命中任意一个即放行
func (r Request) HasTag(unitTags ...string) bool {
	if len(r.Tags) == 0 {
		return true
	}
	for _, ft := range r.Tags {
		for _, ut := range unitTags {
			if ft == ut {
				return true
			}
		}
	}
	return false
}

// Build 把 Operation 映射成具体的 apply 计划
// 纯函数，映射表是固定策略，不提供配置入口
//
// 注意: web 操作假设 docker 阶段已经应用过，这里不做前置校验，
// 这是为拆阶段操作流程有意保留的行为
func Build(op Operation, vars map[string]string) (Request, error) {
	req := Request{Op: op, Vars: vars}
	switch op {
	case OpFullDeploy:
		req.Phases = PhaseFlags{Docker: true, Compose: true, Traefik: true, Nginx: true}
		req.Tags = nil // 空过滤器，应用一切
	case OpDockerOnly:
		req.Phases = PhaseFlags{Docker: true, Compose: true}
		req.Tags = []string{"docker"}
	case OpWebOnly:
		req.Phases = PhaseFlags{Traefik: true, Nginx: true}
		req.Tags = []string{"traefik", "nginx", "compose"}
	case OpUpdate:
		// 阶段开关保持"上次 apply 的样子"：四个阶段全开，
		// 实际触达范围完全由标签过滤器收窄到配置和 compose 单元
		req.Phases = PhaseFlags{Docker: true, Compose: true, Traefik: true, Nginx: true}
		req.Tags = []string{"config", "compose"}
	case OpConfigureHeaders:
		// 响应头下发不走安装阶段，由执行器的 ApplyConfig 能力处理
		req.Phases = PhaseFlags{}
		req.Tags = []string{"config", "compose"}
	default:
		// CommandRouter 只会传入上面五种 apply 类操作，这里按约定不可达
		return Request{}, fmt.Errorf("operation %s has no apply plan", op)
	}
	return req, nil
}

// 可识别的部署变量名，未列出的 key 一律拒绝而不是静默透传
var knownVars = map[string]bool{
	"domain":          true,
	"stack_dir":       true,
	"http_port":       true,
	"https_port":      true,
	"traefik_version": true,
	"nginx_version":   true,
}

// ParseOverrides 解析命令行的 key=value 覆盖项
// known 为 nil 时使用内置部署变量集
func ParseOverrides(pairs []string, known map[string]bool) (map[string]string, error) {
	if known == nil {
		known = knownVars
	}
	vars := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("覆盖项 %q 不是 key=value 格式", pair)
		}
		key = strings.TrimSpace(key)
		if !known[key] {
			return nil, fmt.Errorf("未识别的覆盖项 %q", key)
		}
		if _, dup := vars[key]; dup {
			return nil, fmt.Errorf("覆盖项 %q 重复", key)
		}
		vars[key] = value
	}
	return vars, nil
}

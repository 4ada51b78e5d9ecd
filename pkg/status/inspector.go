package status

import (
	"context"
	"fmt"
	"net"
	"sort"
	"strings"
	"time"

	"example.com/StealthStack/pkg/config"
	"example.com/StealthStack/pkg/executor"
	"example.com/StealthStack/pkg/models"
	"example.com/StealthStack/pkg/runner"
	ping "github.com/prometheus-community/pro-bing"
)

// RunState 服务的运行状态
type RunState string

const (
	StateRunning RunState = "running"
	StateStopped RunState = "stopped"
	// StateUnknown 节点不可达或查询失败时使用，查询本身不会因此失败
	StateUnknown RunState = "unknown"
)

// Row 一条 节点 x 服务 的状态记录
type Row struct {
	NodeId   string
	Service  string
	RunState RunState
	Healthy  bool
}

// Report 整个 Fleet 的状态汇总
type Report struct {
	Rows []Row
}

// 状态查询关注的服务集合
var watchedServices = []string{"docker", "sstack-traefik", "sstack-nginx"}

// ConnectFunc 为节点建立执行通道
type ConnectFunc func(ctx context.Context, nodeId string, node models.Node) (executor.Executor, error)

// Inspector 只读地查询每个节点的服务管理器和容器运行时状态
// 绝不改动远端状态
type Inspector struct {
	Connect     ConnectFunc
	Provider    config.Provider
	Concurrency uint
	// ProbeTimeout 可达性探测的超时
	ProbeTimeout time.Duration
}

// Query 查询 Fleet 状态并聚合成报告
// 不可达的节点产出 RunState=unknown 的行，而不是让整个查询失败
func (i *Inspector) Query(ctx context.Context, fleet map[string]models.Node) Report {
	timeout := i.ProbeTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	type hostRows struct {
		rows []Row
	}
	collected := make(chan hostRows, len(fleet))
	done := runner.RunParallel(ctx, fleet, i.Concurrency, func(nodeId string, node models.Node) error {
		collected <- hostRows{rows: i.queryHost(ctx, nodeId, node, timeout)}
		return nil
	})
	for range done {
	}
	close(collected)

	var report Report
	for hr := range collected {
		report.Rows = append(report.Rows, hr.rows...)
	}
	sort.Slice(report.Rows, func(a, b int) bool {
		if report.Rows[a].NodeId != report.Rows[b].NodeId {
			return report.Rows[a].NodeId < report.Rows[b].NodeId
		}
		return report.Rows[a].Service < report.Rows[b].Service
	})
	return report
}

// queryHost 单节点查询：先探测可达性，再经 SSH 查服务状态
func (i *Inspector) queryHost(ctx context.Context, nodeId string, node models.Node, timeout time.Duration) []Row {
	if host, ok := i.Provider.GetHost(nodeId); ok {
		if !i.reachable(host, timeout) {
			return unknownRows(nodeId)
		}
	}

	exec, err := i.Connect(ctx, nodeId, node)
	if err != nil {
		return unknownRows(nodeId)
	}

	rows := make([]Row, 0, len(watchedServices))

	// 容器运行时走服务管理器
	// is-active 对停止的服务以非零码退出，但照样输出 inactive/failed，
	// 所以出错时也要看输出，否则可达节点的停止服务会被误报成 unknown
	out, err := exec.Run(ctx, "systemctl is-active docker")
	unitState := strings.TrimSpace(out)
	dockerState := StateUnknown
	switch {
	case unitState == "active":
		dockerState = StateRunning
	case unitState != "":
		dockerState = StateStopped
	}
	rows = append(rows, Row{NodeId: nodeId, Service: "docker", RunState: dockerState, Healthy: dockerState == StateRunning})

	// 栈容器走容器运行时
	out, err = exec.Run(ctx, `docker ps --format '{{.Names}} {{.State}}'`)
	containers := map[string]RunState{}
	if err == nil {
		for _, line := range strings.Split(out, "\n") {
			fields := strings.Fields(line)
			if len(fields) < 2 {
				continue
			}
			state := StateStopped
			if fields[1] == "running" {
				state = StateRunning
			}
			containers[fields[0]] = state
		}
	}
	for _, svc := range watchedServices[1:] {
		state, ok := containers[svc]
		if !ok {
			if err != nil {
				state = StateUnknown
			} else {
				state = StateStopped
			}
		}
		rows = append(rows, Row{NodeId: nodeId, Service: svc, RunState: state, Healthy: state == StateRunning})
	}
	return rows
}

// reachable 先 ICMP ping，失败时退回 TCP 探测 SSH 端口
// 很多云环境屏蔽 ICMP，TCP 兜底避免误报不可达
func (i *Inspector) reachable(host models.Host, timeout time.Duration) bool {
	pinger, err := ping.NewPinger(host.Address)
	if err == nil {
		pinger.Count = 1
		pinger.Timeout = timeout
		pinger.SetPrivileged(true)
		if err := pinger.Run(); err == nil && pinger.Statistics().PacketsRecv > 0 {
			return true
		}
	}

	addr := net.JoinHostPort(host.Address, fmt.Sprintf("%d", host.Port))
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

func unknownRows(nodeId string) []Row {
	rows := make([]Row, 0, len(watchedServices))
	for _, svc := range watchedServices {
		rows = append(rows, Row{NodeId: nodeId, Service: svc, RunState: StateUnknown, Healthy: false})
	}
	return rows
}

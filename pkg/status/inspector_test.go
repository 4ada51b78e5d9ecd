package status

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"

	"example.com/StealthStack/pkg/executor"
	"example.com/StealthStack/pkg/models"
)

// stubProvider 没有主机记录，让 Query 跳过可达性探测直连假执行器
type stubProvider struct{}

func (stubProvider) GetNode(string) (models.Node, bool)         { return models.Node{}, false }
func (stubProvider) GetHost(string) (models.Host, bool)         { return models.Host{}, false }
func (stubProvider) GetIdentity(string) (models.Identity, bool) { return models.Identity{}, false }
func (stubProvider) AddHost(string, models.Host)                {}
func (stubProvider) AddIdentity(string, models.Identity)        {}
func (stubProvider) AddNode(string, models.Node)                {}
func (stubProvider) DeleteNode(string)                          {}
func (stubProvider) ListNodes() map[string]models.Node          { return nil }
func (stubProvider) GetNodesByTag(string) map[string]models.Node {
	return nil
}
func (stubProvider) Find(string) string { return "" }

// probeExec 模拟远端的服务管理器和容器运行时
type probeExec struct {
	dockerActive bool
	psOutput     string
	mutated      []string
}

func (p *probeExec) Run(ctx context.Context, cmd string) (string, error) {
	switch {
	case strings.HasPrefix(cmd, "systemctl is-active"):
		if p.dockerActive {
			return "active\n", nil
		}
		return "inactive\n", fmt.Errorf("exit status 3")
	case strings.HasPrefix(cmd, "docker ps"):
		return p.psOutput, nil
	}
	return "", nil
}

func (p *probeExec) RunWithSudo(ctx context.Context, cmd string) (string, error) {
	p.mutated = append(p.mutated, cmd)
	return "", nil
}

func (p *probeExec) RunScriptWithSudo(ctx context.Context, script string) (string, error) {
	p.mutated = append(p.mutated, script)
	return "", nil
}

func (p *probeExec) Upload(ctx context.Context, content []byte, remotePath string, mode os.FileMode) error {
	p.mutated = append(p.mutated, remotePath)
	return nil
}

func (p *probeExec) UploadTree(ctx context.Context, root string, files map[string][]byte, mode os.FileMode) error {
	p.mutated = append(p.mutated, root)
	return nil
}

func TestQueryHealthyHost(t *testing.T) {
	pe := &probeExec{
		dockerActive: true,
		psOutput:     "sstack-traefik running\nsstack-nginx running\n",
	}
	i := &Inspector{
		Provider: stubProvider{},
		Connect: func(ctx context.Context, nodeId string, node models.Node) (executor.Executor, error) {
			return pe, nil
		},
	}

	report := i.Query(context.Background(), map[string]models.Node{
		"root@10.0.0.1:22": {},
	})
	if len(report.Rows) != 3 {
		t.Fatalf("got %d rows, want 3", len(report.Rows))
	}
	for _, row := range report.Rows {
		if row.RunState != StateRunning || !row.Healthy {
			t.Errorf("%s/%s: state=%s healthy=%t", row.NodeId, row.Service, row.RunState, row.Healthy)
		}
	}
	if len(pe.mutated) != 0 {
		t.Errorf("status query must be read-only, got %v", pe.mutated)
	}
}

func TestQueryStoppedContainer(t *testing.T) {
	pe := &probeExec{
		dockerActive: true,
		psOutput:     "sstack-traefik running\n",
	}
	i := &Inspector{
		Provider: stubProvider{},
		Connect: func(ctx context.Context, nodeId string, node models.Node) (executor.Executor, error) {
			return pe, nil
		},
	}

	report := i.Query(context.Background(), map[string]models.Node{"n1": {}})
	states := map[string]RunState{}
	for _, row := range report.Rows {
		states[row.Service] = row.RunState
	}
	if states["sstack-traefik"] != StateRunning {
		t.Errorf("traefik = %s", states["sstack-traefik"])
	}
	// 没出现在 docker ps 输出里的容器按 stopped 处理
	if states["sstack-nginx"] != StateStopped {
		t.Errorf("nginx = %s, want stopped", states["sstack-nginx"])
	}
}

// 可达节点上停止的 docker 服务要报 stopped 而不是 unknown:
// is-active 对停止的服务以非零码退出，但输出里带着 inactive
func TestQueryStoppedDockerService(t *testing.T) {
	pe := &probeExec{dockerActive: false}
	i := &Inspector{
		Provider: stubProvider{},
		Connect: func(ctx context.Context, nodeId string, node models.Node) (executor.Executor, error) {
			return pe, nil
		},
	}

	report := i.Query(context.Background(), map[string]models.Node{"n1": {}})
	states := map[string]RunState{}
	for _, row := range report.Rows {
		states[row.Service] = row.RunState
		if row.Healthy {
			t.Errorf("%s: healthy=true on a stopped stack", row.Service)
		}
	}
	if states["docker"] != StateStopped {
		t.Errorf("docker = %s, want stopped", states["docker"])
	}
}

func TestQueryUnreachableHostIsUnknown(t *testing.T) {
	i := &Inspector{
		Provider: stubProvider{},
		Connect: func(ctx context.Context, nodeId string, node models.Node) (executor.Executor, error) {
			return nil, fmt.Errorf("connection refused")
		},
	}

	report := i.Query(context.Background(), map[string]models.Node{"n1": {}, "n2": {}})
	if len(report.Rows) != 6 {
		t.Fatalf("got %d rows, want 6", len(report.Rows))
	}
	for _, row := range report.Rows {
		if row.RunState != StateUnknown || row.Healthy {
			t.Errorf("%s/%s: state=%s healthy=%t, want unknown", row.NodeId, row.Service, row.RunState, row.Healthy)
		}
	}
}

func TestQueryRowsAreSorted(t *testing.T) {
	i := &Inspector{
		Provider: stubProvider{},
		Connect: func(ctx context.Context, nodeId string, node models.Node) (executor.Executor, error) {
			return &probeExec{dockerActive: true}, nil
		},
	}

	report := i.Query(context.Background(), map[string]models.Node{"b": {}, "a": {}, "c": {}})
	for idx := 1; idx < len(report.Rows); idx++ {
		prev, cur := report.Rows[idx-1], report.Rows[idx]
		if prev.NodeId > cur.NodeId || (prev.NodeId == cur.NodeId && prev.Service > cur.Service) {
			t.Fatalf("rows not sorted at %d: %+v", idx, report.Rows)
		}
	}
}

package deploy

import (
	"context"
	"fmt"
	"os"
	"path"
	"strings"
	"sync"
	"testing"
	"time"

	"example.com/StealthStack/pkg/executor"
	"example.com/StealthStack/pkg/headers"
	"example.com/StealthStack/pkg/models"
	"example.com/StealthStack/pkg/plan"
)

// fakeExec 记录所有远程调用，按前缀模拟命令结果
type fakeExec struct {
	mu      sync.Mutex
	cmds    []string
	uploads map[string][]byte
	// failCmd 非空时，包含该子串的命令返回错误
	failCmd string
}

func newFakeExec() *fakeExec {
	return &fakeExec{uploads: make(map[string][]byte)}
}

func (f *fakeExec) Run(ctx context.Context, cmd string) (string, error) {
	f.record(cmd)
	// 防火墙探测: 不存在
	if strings.HasPrefix(cmd, "command -v") {
		return "", fmt.Errorf("not found")
	}
	return "", nil
}

func (f *fakeExec) RunWithSudo(ctx context.Context, cmd string) (string, error) {
	f.record(cmd)
	if f.failCmd != "" && strings.Contains(cmd, f.failCmd) {
		return "", fmt.Errorf("command failed: %s", cmd)
	}
	return "", nil
}

func (f *fakeExec) RunScriptWithSudo(ctx context.Context, script string) (string, error) {
	return f.RunWithSudo(ctx, script)
}

func (f *fakeExec) Upload(ctx context.Context, content []byte, remotePath string, mode os.FileMode) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploads[remotePath] = content
	return nil
}

func (f *fakeExec) UploadTree(ctx context.Context, root string, files map[string][]byte, mode os.FileMode) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for rel, content := range files {
		f.uploads[path.Join(root, rel)] = content
	}
	return nil
}

func (f *fakeExec) record(cmd string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cmds = append(f.cmds, cmd)
}

func (f *fakeExec) ran(substr string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.cmds {
		if strings.Contains(c, substr) {
			return true
		}
	}
	return false
}

func testFleet(n int) map[string]models.Node {
	fleet := make(map[string]models.Node, n)
	for i := 0; i < n; i++ {
		fleet[fmt.Sprintf("root@10.0.0.%d:22", i+1)] = models.Node{Tags: []string{models.RoleWebserver}}
	}
	return fleet
}

func mustPolicy(t *testing.T) headers.Policy {
	t.Helper()
	policy, err := headers.Resolve(headers.ModeTraefik, nil)
	if err != nil {
		t.Fatal(err)
	}
	return policy
}

func TestApplyFullDeploy(t *testing.T) {
	execs := make(map[string]*fakeExec)
	var mu sync.Mutex
	r := &Runner{
		Connect: func(ctx context.Context, nodeId string, node models.Node) (executor.Executor, error) {
			mu.Lock()
			defer mu.Unlock()
			fe := newFakeExec()
			execs[nodeId] = fe
			return fe, nil
		},
	}

	req, err := plan.Build(plan.OpFullDeploy, nil)
	if err != nil {
		t.Fatal(err)
	}
	fleet := testFleet(3)
	results := r.Apply(context.Background(), req, fleet, mustPolicy(t))

	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}
	if agg := Aggregate(results); agg != AggregateSuccess {
		t.Errorf("aggregate = %s, want success", agg)
	}
	for nodeId, fe := range execs {
		if !fe.ran("systemctl enable --now docker") {
			t.Errorf("%s: docker phase not applied", nodeId)
		}
		if !fe.ran("docker compose -f /opt/sstack/docker-compose.yml up -d") {
			t.Errorf("%s: compose phase not applied", nodeId)
		}
		if _, ok := fe.uploads["/opt/sstack/traefik/dynamic.yml"]; !ok {
			t.Errorf("%s: traefik dynamic config not uploaded", nodeId)
		}
		if _, ok := fe.uploads["/etc/systemd/system/sstack.service"]; !ok {
			t.Errorf("%s: systemd unit not uploaded", nodeId)
		}
	}
}

func TestApplyHostsAreIsolated(t *testing.T) {
	// 一个节点连接失败，其余节点照常完成
	var mu sync.Mutex
	connected := 0
	r := &Runner{
		Connect: func(ctx context.Context, nodeId string, node models.Node) (executor.Executor, error) {
			mu.Lock()
			defer mu.Unlock()
			if strings.Contains(nodeId, "10.0.0.2") {
				return nil, fmt.Errorf("connection refused")
			}
			connected++
			return newFakeExec(), nil
		},
	}

	req, err := plan.Build(plan.OpFullDeploy, nil)
	if err != nil {
		t.Fatal(err)
	}
	results := r.Apply(context.Background(), req, testFleet(4), mustPolicy(t))

	if len(results) != 4 {
		t.Fatalf("got %d results, want 4", len(results))
	}
	succeeded := 0
	for _, res := range results {
		if res.Status == StatusSuccess {
			succeeded++
		}
	}
	if succeeded != 3 {
		t.Errorf("succeeded = %d, want 3", succeeded)
	}
	if agg := Aggregate(results); agg != AggregateDegraded {
		t.Errorf("aggregate = %s, want degraded", agg)
	}
}

func TestApplyUpdateSkipsDockerInstall(t *testing.T) {
	fe := newFakeExec()
	r := &Runner{
		Connect: func(ctx context.Context, nodeId string, node models.Node) (executor.Executor, error) {
			return fe, nil
		},
	}

	req, err := plan.Build(plan.OpUpdate, nil)
	if err != nil {
		t.Fatal(err)
	}
	results := r.Apply(context.Background(), req, testFleet(1), mustPolicy(t))

	if agg := Aggregate(results); agg != AggregateSuccess {
		t.Fatalf("aggregate = %s: %+v", agg, results)
	}
	// update 的标签过滤器排除 docker 单元
	if fe.ran("get.docker.com") || fe.ran("systemctl enable --now docker") {
		t.Error("update must not touch the docker unit")
	}
	if _, ok := fe.uploads["/opt/sstack/traefik/dynamic.yml"]; !ok {
		t.Error("update should push refreshed config")
	}
}

func TestApplyStopsHostOnFirstError(t *testing.T) {
	fe := newFakeExec()
	fe.failCmd = "daemon-reload"
	r := &Runner{
		Connect: func(ctx context.Context, nodeId string, node models.Node) (executor.Executor, error) {
			return fe, nil
		},
	}

	req, err := plan.Build(plan.OpFullDeploy, nil)
	if err != nil {
		t.Fatal(err)
	}
	results := r.Apply(context.Background(), req, testFleet(1), mustPolicy(t))

	if results[0].Status != StatusFailure {
		t.Fatalf("status = %s, want failure", results[0].Status)
	}
	if !strings.Contains(results[0].Message, "compose-definition") {
		t.Errorf("message should name the failed unit: %s", results[0].Message)
	}
	// compose 阶段失败后，同节点的 traefik/nginx 阶段不再尝试
	if fe.ran("force-recreate") {
		t.Error("later phases must not run after a failure")
	}
}

func TestApplyTimeout(t *testing.T) {
	r := &Runner{
		HostTimeout: 20 * time.Millisecond,
		Connect: func(ctx context.Context, nodeId string, node models.Node) (executor.Executor, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}

	req, err := plan.Build(plan.OpFullDeploy, nil)
	if err != nil {
		t.Fatal(err)
	}
	results := r.Apply(context.Background(), req, testFleet(1), mustPolicy(t))

	if results[0].Status != StatusTimeout {
		t.Errorf("status = %s, want timeout", results[0].Status)
	}
}

func TestApplyHeadersPushesOnlyHeaderUnits(t *testing.T) {
	fe := newFakeExec()
	r := &Runner{
		Connect: func(ctx context.Context, nodeId string, node models.Node) (executor.Executor, error) {
			return fe, nil
		},
	}

	policy, err := headers.Resolve(headers.ModeCustom, nil)
	if err != nil {
		t.Fatal(err)
	}
	results := r.ApplyHeaders(context.Background(), policy, testFleet(1), nil)

	if agg := Aggregate(results); agg != AggregateSuccess {
		t.Fatalf("aggregate = %s: %+v", agg, results)
	}
	if _, ok := fe.uploads["/opt/sstack/traefik/dynamic.yml"]; !ok {
		t.Error("dynamic config not uploaded")
	}
	if _, ok := fe.uploads["/opt/sstack/nginx/headers.conf"]; !ok {
		t.Error("nginx fragment not uploaded")
	}
	if _, ok := fe.uploads["/opt/sstack/docker-compose.yml"]; ok {
		t.Error("compose file must not be touched by a headers push")
	}
	if !fe.ran("up -d --force-recreate nginx") {
		t.Error("nginx should be recreated to pick up the fragment")
	}
}

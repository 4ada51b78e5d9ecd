package removal

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"example.com/StealthStack/pkg/executor"
	"example.com/StealthStack/pkg/models"
)

// recordingExec 记录收到的破坏性命令
type recordingExec struct {
	mu   sync.Mutex
	cmds []string
	// failCmd 非空时，包含该子串的命令返回错误
	failCmd string
	// gate 非空时，包含 gateCmd 的命令阻塞到 gate 关闭才返回
	gate    chan struct{}
	gateCmd string
}

func (r *recordingExec) Run(ctx context.Context, cmd string) (string, error) {
	return r.RunWithSudo(ctx, cmd)
}

func (r *recordingExec) RunWithSudo(ctx context.Context, cmd string) (string, error) {
	r.mu.Lock()
	r.cmds = append(r.cmds, cmd)
	fail := r.failCmd != "" && strings.Contains(cmd, r.failCmd)
	gated := r.gate != nil && strings.Contains(cmd, r.gateCmd)
	r.mu.Unlock()

	if gated {
		<-r.gate
	}
	if fail {
		return "", fmt.Errorf("command failed")
	}
	return "", nil
}

func (r *recordingExec) RunScriptWithSudo(ctx context.Context, script string) (string, error) {
	return r.RunWithSudo(ctx, script)
}

func (r *recordingExec) Upload(ctx context.Context, content []byte, remotePath string, mode os.FileMode) error {
	return nil
}

func (r *recordingExec) UploadTree(ctx context.Context, root string, files map[string][]byte, mode os.FileMode) error {
	return nil
}

func (r *recordingExec) calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.cmds...)
}

func removalFleet(n int) map[string]models.Node {
	fleet := make(map[string]models.Node, n)
	for i := 0; i < n; i++ {
		fleet[fmt.Sprintf("root@10.0.0.%d:22", i+1)] = models.Node{Tags: []string{models.RoleWebserver}}
	}
	return fleet
}

func TestRunDeclinedMakesNoRemoteCalls(t *testing.T) {
	connects := 0
	c := &Coordinator{
		Connect: func(ctx context.Context, nodeId string, node models.Node) (executor.Executor, error) {
			connects++
			return &recordingExec{}, nil
		},
		Confirm: func() (bool, error) { return false, nil },
	}

	_, err := c.Run(context.Background(), removalFleet(3))
	if !errors.Is(err, ErrConfirmationDeclined) {
		t.Fatalf("err = %v, want ErrConfirmationDeclined", err)
	}
	if connects != 0 {
		t.Errorf("declined removal must not touch any node, got %d connects", connects)
	}
}

func TestRunCompletesAllStates(t *testing.T) {
	var mu sync.Mutex
	execs := make(map[string]*recordingExec)
	c := &Coordinator{
		Connect: func(ctx context.Context, nodeId string, node models.Node) (executor.Executor, error) {
			mu.Lock()
			defer mu.Unlock()
			if execs[nodeId] == nil {
				execs[nodeId] = &recordingExec{}
			}
			return execs[nodeId], nil
		},
		Confirm: func() (bool, error) { return true, nil },
	}

	report, err := c.Run(context.Background(), removalFleet(3))
	if err != nil {
		t.Fatal(err)
	}
	if report.Failed() != 0 {
		t.Fatalf("failed = %d: %+v", report.Failed(), report.Hosts)
	}
	for nodeId, re := range execs {
		cmds := re.calls()
		if len(cmds) != 3 {
			t.Fatalf("%s: got %d commands, want 3: %v", nodeId, len(cmds), cmds)
		}
		// 固定顺序: 停服务 -> 取消自启 -> 删除持久化状态
		if !strings.Contains(cmds[0], "docker compose") || !strings.Contains(cmds[0], "down") {
			t.Errorf("%s: first command should stop services: %s", nodeId, cmds[0])
		}
		if !strings.Contains(cmds[1], "systemctl disable sstack.service") {
			t.Errorf("%s: second command should disable autostart: %s", nodeId, cmds[1])
		}
		if !strings.Contains(cmds[2], "rm -rf /opt/sstack") {
			t.Errorf("%s: third command should delete persisted state: %s", nodeId, cmds[2])
		}
	}
}

func TestRunFailedHostHaltsAtItsState(t *testing.T) {
	var mu sync.Mutex
	execs := make(map[string]*recordingExec)
	c := &Coordinator{
		Connect: func(ctx context.Context, nodeId string, node models.Node) (executor.Executor, error) {
			mu.Lock()
			defer mu.Unlock()
			if execs[nodeId] == nil {
				re := &recordingExec{}
				if strings.Contains(nodeId, "10.0.0.2") {
					re.failCmd = "systemctl disable"
				}
				execs[nodeId] = re
			}
			return execs[nodeId], nil
		},
		Confirm: func() (bool, error) { return true, nil },
	}

	report, err := c.Run(context.Background(), removalFleet(3))
	if err != nil {
		t.Fatal(err)
	}
	if report.Failed() != 1 {
		t.Fatalf("failed = %d: %+v", report.Failed(), report.Hosts)
	}

	for _, h := range report.Hosts {
		if strings.Contains(h.NodeId, "10.0.0.2") {
			if h.State != StateDisableAutostart {
				t.Errorf("failed host should halt at disable-autostart, got %s", h.State)
			}
			if h.Err == nil {
				t.Error("failed host should carry its error")
			}
		} else if h.State != StateDone {
			t.Errorf("%s: state = %s, want done", h.NodeId, h.State)
		}
	}

	// 失败的节点不再进入后续状态: 它的持久化状态不能被删除
	failed := execs["root@10.0.0.2:22"]
	for _, cmd := range failed.calls() {
		if strings.Contains(cmd, "rm -rf") {
			t.Error("failed host must not reach delete-persisted-state")
		}
	}
}

// 状态之间是 Fleet 级屏障:
// 慢节点还停在 stop-services 时，快节点不能提前进入 disable-autostart
func TestRunStatesAreFleetBarriered(t *testing.T) {
	release := make(chan struct{})
	var mu sync.Mutex
	execs := make(map[string]*recordingExec)
	c := &Coordinator{
		Confirm: func() (bool, error) { return true, nil },
		Connect: func(ctx context.Context, nodeId string, node models.Node) (executor.Executor, error) {
			mu.Lock()
			defer mu.Unlock()
			if execs[nodeId] == nil {
				re := &recordingExec{}
				if strings.Contains(nodeId, "10.0.0.1") {
					re.gate = release
					re.gateCmd = "down"
				}
				execs[nodeId] = re
			}
			return execs[nodeId], nil
		},
	}

	done := make(chan Report, 1)
	go func() {
		report, err := c.Run(context.Background(), removalFleet(3))
		if err != nil {
			t.Error(err)
		}
		done <- report
	}()

	// 等两个快节点都执行完 stop-services
	deadline := time.After(2 * time.Second)
	for {
		mu.Lock()
		fastDone := 0
		for nodeId, re := range execs {
			if strings.Contains(nodeId, "10.0.0.1") {
				continue
			}
			if len(re.calls()) >= 1 {
				fastDone++
			}
		}
		mu.Unlock()
		if fastDone == 2 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("fast hosts never finished stop-services")
		case <-time.After(5 * time.Millisecond):
		}
	}

	// 慢节点放行前，任何节点都不能出现下一个状态的命令
	time.Sleep(20 * time.Millisecond)
	mu.Lock()
	for nodeId, re := range execs {
		for _, cmd := range re.calls() {
			if strings.Contains(cmd, "systemctl disable") {
				t.Errorf("%s advanced past the barrier early: %s", nodeId, cmd)
			}
		}
	}
	mu.Unlock()

	close(release)
	report := <-done
	if report.Failed() != 0 {
		t.Fatalf("failed = %d: %+v", report.Failed(), report.Hosts)
	}
}

func TestRunConfirmError(t *testing.T) {
	c := &Coordinator{
		Connect: func(ctx context.Context, nodeId string, node models.Node) (executor.Executor, error) {
			t.Fatal("must not connect when confirmation fails")
			return nil, nil
		},
		Confirm: func() (bool, error) { return false, fmt.Errorf("stdin closed") },
	}
	_, err := c.Run(context.Background(), removalFleet(1))
	if err == nil || errors.Is(err, ErrConfirmationDeclined) {
		t.Fatalf("err = %v, want wrapped read error", err)
	}
}

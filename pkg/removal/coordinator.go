package removal

import (
	"context"
	"errors"
	"fmt"

	"example.com/StealthStack/pkg/executor"
	"example.com/StealthStack/pkg/models"
	"example.com/StealthStack/pkg/runner"
)

// State 移除流程的状态机
// AwaitConfirmation -> StopServices -> DisableAutostart -> DeletePersistedState -> Done
type State int

const (
	StateAwaitConfirmation State = iota
	StateStopServices
	StateDisableAutostart
	StateDeletePersistedState
	StateDone
)

func (s State) String() string {
	switch s {
	case StateAwaitConfirmation:
		return "await-confirmation"
	case StateStopServices:
		return "stop-services"
	case StateDisableAutostart:
		return "disable-autostart"
	case StateDeletePersistedState:
		return "delete-persisted-state"
	case StateDone:
		return "done"
	}
	return "unknown"
}

// ErrConfirmationDeclined 操作员拒绝确认
// 拒绝是正常流程的一部分：零破坏性调用，进程退出码为 0
var ErrConfirmationDeclined = errors.New("removal declined by operator")

// HostProgress 单节点在状态机里走到了哪一步
type HostProgress struct {
	NodeId string
	// State 节点最终停在的状态；全部成功时为 Done
	State State
	Err   error
}

// Report 整个 Fleet 的移除结果
type Report struct {
	Hosts []HostProgress
}

// Failed 返回未走完状态机的节点数
func (r Report) Failed() int {
	n := 0
	for _, h := range r.Hosts {
		if h.State != StateDone {
			n++
		}
	}
	return n
}

// ConnectFunc 为节点建立执行通道
type ConnectFunc func(ctx context.Context, nodeId string, node models.Node) (executor.Executor, error)

// ConfirmFunc 向操作员要一次明确的确认
type ConfirmFunc func() (bool, error)

// Coordinator 按显式多步序列拆除整个栈
//
// 状态之间是 Fleet 级屏障：所有节点完成 StopServices 之后，
// 任何节点才会开始 DisableAutostart；状态内部跨节点并行。
// 某节点在某状态失败后停在该状态，不重试也不回滚已完成的状态
// (跨移除步骤不做事务性撤销，这是明确的设计决定)
type Coordinator struct {
	Connect     ConnectFunc
	Confirm     ConfirmFunc
	Concurrency uint
	// StackDir 远端持久化状态的根目录，DeletePersistedState 删除的就是它
	StackDir string
}

// Run 执行移除流程
// 未确认时不发出任何破坏性远程调用，返回 ErrConfirmationDeclined
func (c *Coordinator) Run(ctx context.Context, fleet map[string]models.Node) (Report, error) {
	ok, err := c.Confirm()
	if err != nil {
		return Report{}, fmt.Errorf("read confirmation failed: %w", err)
	}
	if !ok {
		return Report{}, ErrConfirmationDeclined
	}

	stackDir := c.StackDir
	if stackDir == "" {
		stackDir = "/opt/sstack"
	}

	// 节点 -> 已停在的状态；初始都通过了确认
	progress := make(map[string]HostProgress, len(fleet))
	for nodeId := range fleet {
		progress[nodeId] = HostProgress{NodeId: nodeId, State: StateStopServices}
	}

	transitions := []struct {
		state State
		cmd   string
	}{
		{StateStopServices, fmt.Sprintf("docker compose -f %s/docker-compose.yml down", stackDir)},
		{StateDisableAutostart, "systemctl disable sstack.service && rm -f /etc/systemd/system/sstack.service && systemctl daemon-reload"},
		{StateDeletePersistedState, fmt.Sprintf("rm -rf %s", stackDir)},
	}

	remaining := fleet
	for _, tr := range transitions {
		if len(remaining) == 0 {
			break
		}
		// Fleet 屏障：RunParallel 的结果通道关闭后才进入下一个状态
		next := make(map[string]models.Node, len(remaining))
		results := runner.RunParallel(ctx, remaining, c.Concurrency, func(nodeId string, node models.Node) error {
			exec, err := c.Connect(ctx, nodeId, node)
			if err != nil {
				return fmt.Errorf("connect failed: %w", err)
			}
			_, err = exec.RunWithSudo(ctx, tr.cmd)
			return err
		})
		for res := range results {
			if res.Error != nil {
				// 停在当前状态并记录，不影响其他节点
				progress[res.NodeId] = HostProgress{NodeId: res.NodeId, State: tr.state, Err: res.Error}
				continue
			}
			nextState := tr.state + 1
			progress[res.NodeId] = HostProgress{NodeId: res.NodeId, State: nextState}
			next[res.NodeId] = res.Node
		}
		remaining = next
	}

	var report Report
	for _, p := range progress {
		report.Hosts = append(report.Hosts, p)
	}
	return report, nil
}

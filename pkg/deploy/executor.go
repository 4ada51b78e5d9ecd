package deploy

import (
	"context"
	"errors"
	"fmt"
	"time"

	"example.com/StealthStack/pkg/executor"
	"example.com/StealthStack/pkg/headers"
	"example.com/StealthStack/pkg/models"
	"example.com/StealthStack/pkg/plan"
	"example.com/StealthStack/pkg/runner"
)

// ConnectFunc 为节点建立执行通道
type ConnectFunc func(ctx context.Context, nodeId string, node models.Node) (executor.Executor, error)

// DefaultHostTimeout 单节点远程调用的默认上限
// docker 安装和镜像拉取都可能很慢，给一个宽松的默认值
const DefaultHostTimeout = 10 * time.Minute

// Runner 把一份 apply 计划推到整个 Fleet 上
// 节点之间互相独立：一个节点失败不会阻塞或中止其他节点
type Runner struct {
	Connect ConnectFunc
	// Concurrency 为 0 时等于 Fleet 大小
	Concurrency uint
	// HostTimeout 单节点超时，超时的节点记为 Timeout，不影响其他节点
	HostTimeout time.Duration
	// OnResult 每个节点完成时回调 (进度条等)，可以为 nil
	OnResult func(Result)
}

// Apply 对 Fleet 中每个节点执行计划选中的阶段，返回每节点一条结果
//
// ctx 只约束派发：取消后不再派发新节点，已派发节点的远程调用
// 使用独立的超时上下文跑到完成，避免把节点留在半途状态
func (r *Runner) Apply(ctx context.Context, req plan.Request, fleet map[string]models.Node, policy headers.Policy) []Result {
	return r.collect(ctx, fleet, func(hostCtx context.Context, nodeId string, node models.Node) error {
		exec, err := r.Connect(hostCtx, nodeId, node)
		if err != nil {
			return fmt.Errorf("connect failed: %w", err)
		}
		vars := MergeVars(node.Vars, req.Vars)
		artifacts, err := RenderArtifacts(vars, policy)
		if err != nil {
			// 渲染失败属于本地错误，按节点记录但不会触达远端
			return err
		}
		for _, s := range steps {
			if !s.enabled(req.Phases) || !req.HasTag(s.tags...) {
				continue
			}
			if err := s.run(hostCtx, exec, vars, artifacts); err != nil {
				// 同节点内后续阶段不再尝试
				return fmt.Errorf("%s: %w", s.name, err)
			}
		}
		return nil
	})
}

// ApplyHeaders 只下发响应头相关的配置单元 (headers 操作)
// Policy 必须已通过校验，校验失败在进入这里之前就已经拦截
func (r *Runner) ApplyHeaders(ctx context.Context, policy headers.Policy, fleet map[string]models.Node, cliVars map[string]string) []Result {
	return r.collect(ctx, fleet, func(hostCtx context.Context, nodeId string, node models.Node) error {
		exec, err := r.Connect(hostCtx, nodeId, node)
		if err != nil {
			return fmt.Errorf("connect failed: %w", err)
		}
		vars := MergeVars(node.Vars, cliVars)
		artifacts, err := RenderHeaderArtifacts(vars, policy)
		if err != nil {
			return err
		}
		return runHeaderConfig(hostCtx, exec, vars, artifacts)
	})
}

// collect 扇出单节点任务并聚合结果
func (r *Runner) collect(ctx context.Context, fleet map[string]models.Node, task func(hostCtx context.Context, nodeId string, node models.Node) error) []Result {
	timeout := r.HostTimeout
	if timeout <= 0 {
		timeout = DefaultHostTimeout
	}

	resultCh := runner.RunParallel(ctx, fleet, r.Concurrency, func(nodeId string, node models.Node) error {
		// 单节点上下文独立于派发上下文：操作员中断后在途节点跑完
		hostCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return task(hostCtx, nodeId, node)
	})

	results := make([]Result, 0, len(fleet))
	for res := range resultCh {
		entry := Result{NodeId: res.NodeId, Status: StatusSuccess, Message: "ok"}
		if res.Error != nil {
			entry.Status = StatusFailure
			entry.Message = res.Error.Error()
			if errors.Is(res.Error, context.DeadlineExceeded) {
				entry.Status = StatusTimeout
			}
		}
		if r.OnResult != nil {
			r.OnResult(entry)
		}
		results = append(results, entry)
	}
	return results
}

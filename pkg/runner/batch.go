package runner

import (
	"context"

	"example.com/StealthStack/pkg/models"
	"example.com/StealthStack/pkg/utils"
)

// TaskFunc 对单个节点执行的任务
type TaskFunc func(nodeId string, node models.Node) error

// Result 单个节点的执行结果
type Result struct {
	NodeId string
	Node   models.Node
	Error  error
}

// RunParallel 把任务扇出到一组节点上并发执行，返回结果通道
// concurrency 为 0 时默认等于节点数量 (每个节点一个 worker)
//
// 取消语义：ctx 取消后不再派发新节点，已经在执行的节点任务会跑完，
// 避免把节点留在半途状态。被跳过的节点不会出现在结果通道里。
func RunParallel(ctx context.Context, nodes map[string]models.Node, concurrency uint, task TaskFunc) <-chan Result {
	if concurrency == 0 {
		concurrency = uint(len(nodes))
	}
	wp := utils.NewWorkerPool(concurrency)
	// 缓冲区大小设为节点数量，防止阻塞 worker
	results := make(chan Result, len(nodes))
	go func() {
		for nodeId, node := range nodes {
			wp.Execute(func() {
				// 取消后尚未启动的任务直接放弃，不产出结果
				if ctx.Err() != nil {
					return
				}
				err := task(nodeId, node)
				results <- Result{NodeId: nodeId, Node: node, Error: err}
			})
		}
		wp.Wait()
		close(results)
	}()
	return results
}

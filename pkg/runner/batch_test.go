package runner

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"example.com/StealthStack/pkg/models"
)

func TestRunParallelReturnsAllResults(t *testing.T) {
	nodes := map[string]models.Node{}
	for i := 0; i < 8; i++ {
		nodes[fmt.Sprintf("n%d", i)] = models.Node{}
	}

	var ran atomic.Int32
	results := RunParallel(context.Background(), nodes, 3, func(nodeId string, node models.Node) error {
		ran.Add(1)
		if nodeId == "n3" {
			return fmt.Errorf("boom")
		}
		return nil
	})

	failed := 0
	total := 0
	for res := range results {
		total++
		if res.Error != nil {
			if res.NodeId != "n3" {
				t.Errorf("unexpected error on %s: %v", res.NodeId, res.Error)
			}
			failed++
		}
	}
	if total != 8 || failed != 1 {
		t.Errorf("total=%d failed=%d, want 8/1", total, failed)
	}
	if ran.Load() != 8 {
		t.Errorf("ran=%d, want 8", ran.Load())
	}
}

func TestRunParallelCancelSkipsUndispatched(t *testing.T) {
	nodes := map[string]models.Node{}
	for i := 0; i < 16; i++ {
		nodes[fmt.Sprintf("n%d", i)] = models.Node{}
	}

	ctx, cancel := context.WithCancel(context.Background())
	started := make(chan struct{})
	var once atomic.Bool
	results := RunParallel(ctx, nodes, 1, func(nodeId string, node models.Node) error {
		if once.CompareAndSwap(false, true) {
			close(started)
		}
		<-ctx.Done()
		return nil
	})

	<-started
	cancel()

	total := 0
	for range results {
		total++
	}
	// 取消后不再派发新节点，已派发的正常产出结果
	if total >= 16 {
		t.Errorf("total=%d, cancellation should skip undispatched nodes", total)
	}
	if total == 0 {
		t.Error("in-flight nodes should still report results")
	}
}

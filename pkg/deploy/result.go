package deploy

// HostStatus 单节点 apply 的结局
type HostStatus int

const (
	StatusSuccess HostStatus = iota
	StatusFailure
	StatusTimeout
)

func (s HostStatus) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusFailure:
		return "failure"
	case StatusTimeout:
		return "timeout"
	}
	return "unknown"
}

// Result 单节点的 apply 结果，每个被触达的节点恰好产出一条
type Result struct {
	NodeId  string
	Status  HostStatus
	Message string
}

// AggregateStatus 整次操作跨节点的汇总状态
type AggregateStatus int

const (
	AggregateSuccess AggregateStatus = iota
	// AggregateDegraded 部分节点失败，操作继续完成了其余节点
	AggregateDegraded
	AggregateFailed
	// AggregateInterrupted 操作员中断，部分节点未派发
	AggregateInterrupted
)

func (s AggregateStatus) String() string {
	switch s {
	case AggregateSuccess:
		return "success"
	case AggregateDegraded:
		return "degraded"
	case AggregateFailed:
		return "failed"
	case AggregateInterrupted:
		return "interrupted"
	}
	return "unknown"
}

// Aggregate 汇总每节点结果
// 全部成功 -> Success；全部失败 -> Failed；其余 -> Degraded
// 空结果集视为成功 (空 Fleet 上无事可做)
func Aggregate(results []Result) AggregateStatus {
	if len(results) == 0 {
		return AggregateSuccess
	}
	succeeded := 0
	for _, r := range results {
		if r.Status == StatusSuccess {
			succeeded++
		}
	}
	switch succeeded {
	case len(results):
		return AggregateSuccess
	case 0:
		return AggregateFailed
	default:
		return AggregateDegraded
	}
}

// ExitCode 把汇总状态映射成进程退出码
// 0=成功 2=部分失败 3=全部失败 4=被中断 (1 留给用法/前置错误)
func (s AggregateStatus) ExitCode() int {
	switch s {
	case AggregateSuccess:
		return 0
	case AggregateDegraded:
		return 2
	case AggregateFailed:
		return 3
	case AggregateInterrupted:
		return 4
	}
	return 1
}

package route

import (
	"fmt"
	"time"

	"github.com/tsinghua-fib-lab/gridroute-sim/schema"
)

// Stage 寻路任务所处阶段
type Stage int

const (
	StageNotInitialized  Stage = iota // 尚未激活
	StageCalculateRoute               // 计算路径
	StageSolutionReady                // 路径已就绪，待裁剪
	StageWalkingSolution              // 沿路径行走
)

func (s Stage) String() string {
	switch s {
	case StageNotInitialized:
		return "NOT_INITIALIZED"
	case StageCalculateRoute:
		return "CALCULATE_ROUTE"
	case StageSolutionReady:
		return "ROUTE_SOLUTION_READY"
	case StageWalkingSolution:
		return "WALK_ROUTE_SOLUTION"
	default:
		return fmt.Sprintf("Stage(%d)", int(s))
	}
}

// Status 寻路任务的生命周期状态
type Status int

const (
	StatusInactive    Status = iota // 已创建，未激活
	StatusRunning                   // 运行中
	StatusInterrupted               // 被中断
	StatusDone                      // 成功结束
	StatusFailed                    // 失败结束
)

func (s Status) String() string {
	switch s {
	case StatusInactive:
		return "INACTIVE"
	case StatusRunning:
		return "RUNNING"
	case StatusInterrupted:
		return "INTERRUPTED"
	case StatusDone:
		return "DONE"
	case StatusFailed:
		return "FAILED"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Terminal 是否为终止状态
func (s Status) Terminal() bool {
	return s == StatusDone || s == StatusFailed
}

// Constraints 寻路约束
type Constraints struct {
	MaxDistance       float64       // >=1为路点数，(0,1)为路径长度的比例，0为不限制
	MaxTime           time.Duration // 0为不限制
	DistFromGoal      int           // 在终点前多少个路点停下
	PyDistFromGoal    float64       // 在距终点多远（欧氏距离）处停下，优先于DistFromGoal
	AvoidWalls        bool
	NotifyUponArrival bool
}

// RouteState 寻路任务状态
type RouteState struct {
	Destination schema.Position // 构造后不变
	Constraints Constraints

	Stage Stage
	// 当前路径，最早的路点在前，行走过程中从头部裁剪
	Solution []schema.Coordinate
	// 单次移动的步长下标，调度的目标路点为Solution[StepIndex+1]
	StepIndex int
	// 最近一次调度时的对齐点与目标点，未调度过时为nil
	LastPos *schema.Coordinate
	NextPos *schema.Coordinate

	TimeStart time.Time // 任务开始时间，中断恢复后顺延
	TimeStep  time.Time // 对齐点最近一次变化的时间，中断恢复后顺延

	LastStartPos schema.Coordinate // 最近一次计算路径时的起点
}

// TaskInfo 寻路任务的对外展示
type TaskInfo struct {
	ID          string             `json:"id"`
	AgentID     string             `json:"agent_id"`
	Destination schema.Position    `json:"destination"`
	Stage       string             `json:"stage"`
	Status      string             `json:"status"`
	Error       string             `json:"error,omitempty"`
	StepsLeft   int                `json:"steps_left"`
	StepIndex   int                `json:"step_index"`
	NextPos     *schema.Coordinate `json:"next_pos,omitempty"`
	Dispatches  int                `json:"dispatches"`
}

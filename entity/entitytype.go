package entity

import (
	"time"

	"github.com/tsinghua-fib-lab/gridroute-sim/schema"
)

// 栅格地图
type IField interface {
	Name() string
	Width() int
	Height() int
	// 坐标是否在地图内
	InBounds(c schema.Coordinate) bool
	// 坐标是否可行走
	IsWalkable(c schema.Coordinate) bool
	// 坐标上是否有其他智能体（上一步快照）
	IsCellOccupied(c schema.Coordinate) bool
	// 在radius范围内查找离c最近的可行走格子
	ClosestWalkableSpot(c schema.Coordinate, radius int) (schema.Coordinate, bool)
	// c周围8邻域内不可行走格子的数量（地图外视为墙）
	WallCount(c schema.Coordinate) int
	// 所有可行走的格子
	WalkableCells() []schema.Coordinate
}

// StepStatus 单步移动子任务的状态
type StepStatus int

const (
	StepRunning StepStatus = iota // 进行中
	StepDone                      // 已完成
	StepFailed                    // 失败
)

// 单步移动子任务，向一个路点发出一次移动指令并跟踪其完成
type IStepMover interface {
	Target() schema.Coordinate
	// 每个tick调用一次，第一次调用时发出移动指令
	Iterate(now time.Time) StepStatus
}

// AgentConfig 智能体生效的寻路配置（已合并全局默认值）
type AgentConfig struct {
	RouteAvoidWalls     bool // route_avoidWalls
	RouteStep           int  // route_step
	TeleportAutoUnstuck bool // teleportAuto_unstuck
}

// 被寻路控制器驱动的智能体
type IAgent interface {
	ID() string
	// 当前所在地图名
	FieldName() string
	// 是否已经拥有确定的位置
	Ready() bool
	// 最近一次确认的位置（按行走时间插值）
	Position() schema.Coordinate
	// 当前移动的起点
	PosFrom() schema.Coordinate
	// 当前移动的终点
	PosTo() schema.Coordinate
	// 最近一次移动开始的时间
	TimeMove() time.Time
	// 行走速度（秒/格）
	WalkSpeed() float64
	Config() AgentConfig
	// 紧急脱困：瞬移到随机位置
	Teleport() bool
	// 创建向target移动一步的子任务
	NewStepMover(target schema.Coordinate) IStepMover
}

// 寻路事件接收方
type IEventSink interface {
	Publish(ev schema.RouteEvent)
}

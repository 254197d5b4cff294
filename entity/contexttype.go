package entity

import (
	"github.com/tsinghua-fib-lab/gridroute-sim/clock"
	"github.com/tsinghua-fib-lab/gridroute-sim/schema"
	"github.com/tsinghua-fib-lab/gridroute-sim/utils/config"
)

// 导航模块接口
type IRouter interface {
	// 栅格路径规划（同步版本），返回的路径不包含起点
	FindPath(f IField, start, goal schema.Coordinate, avoidWalls bool) ([]schema.Coordinate, bool)
}

type ITaskContext interface {
	Clock() *clock.Clock
	FieldManager() IFieldManager
	AgentManager() IAgentManager
	RouteManager() IRouteManager
	RuntimeConfig() *config.RuntimeConfig
	Router() IRouter
	EventSink() IEventSink
}

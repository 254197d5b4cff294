package entity

import (
	"git.fiblab.net/sim/syncer/v3"
	"github.com/tsinghua-fib-lab/gridroute-sim/schema"
)

// Manager依赖倒置

// 地图变化的订阅句柄
type ChangeHandle uint64

// 地图变化的接收方，由订阅时登记的ID解析得到
type IMapChangeListener interface {
	OnMapChanged()
}

// entity/field/manager.go的依赖倒置
type IFieldManager interface {
	Init(pbs []*schema.Field) // 初始化
	Register(sidecar *syncer.Sidecar)

	// 输入地图名，查找Field，如果不存在则panic
	Get(name string) IField
	// 输入地图名，查找Field，如果不存在则返回error
	GetOrError(name string) (IField, error)
	// 替换地图内容（等到Prepare时才会真正替换），替换后通知所有订阅者
	Reload(pb *schema.Field) error

	// 以任务ID订阅地图变化，不持有订阅者本身
	Subscribe(id string) ChangeHandle
	// 取消订阅
	Unsubscribe(h ChangeHandle)

	Prepare() // 准备阶段
}

// entity/agent/manager.go的依赖倒置
type IAgentManager interface {
	Init(pbs []*schema.Agent) // 初始化
	Register(sidecar *syncer.Sidecar)

	// 输入Agent ID，查找Agent，如果不存在则panic
	Get(id string) IAgent
	// 输入Agent ID，查找Agent，如果不存在则返回error
	GetOrError(id string) (IAgent, error)
	// 所有智能体上一步快照中的位置
	Positions() []schema.Position

	Prepare()          // 准备阶段：snapshot更新
	Update(dt float64) // 更新阶段
}

// entity/route/manager.go的依赖倒置
type IRouteManager interface {
	Register(sidecar *syncer.Sidecar) // 注册到Sidecar

	// 为智能体创建寻路任务（等到Prepare时才会真正加入），返回任务ID
	Add(agentID string, dest schema.Position, opts schema.RouteOptions) (string, error)
	// 智能体是否有尚未结束的寻路任务
	Busy(agentID string) bool
	// 根据任务ID解析地图变化的接收方，任务已结束时返回nil
	Listener(id string) IMapChangeListener

	Prepare()          // 准备阶段
	Update(dt float64) // 更新阶段
}

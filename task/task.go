package task

import (
	"sync/atomic"

	"git.fiblab.net/sim/syncer/v3"
	"github.com/sirupsen/logrus"
	"github.com/tsinghua-fib-lab/gridroute-sim/clock"
	"github.com/tsinghua-fib-lab/gridroute-sim/entity"
	"github.com/tsinghua-fib-lab/gridroute-sim/entity/agent"
	"github.com/tsinghua-fib-lab/gridroute-sim/entity/field"
	"github.com/tsinghua-fib-lab/gridroute-sim/entity/field/router"
	"github.com/tsinghua-fib-lab/gridroute-sim/entity/route"
	"github.com/tsinghua-fib-lab/gridroute-sim/output"
	"github.com/tsinghua-fib-lab/gridroute-sim/utils/config"
	"github.com/tsinghua-fib-lab/gridroute-sim/utils/input"
)

var log = logrus.WithField("module", "task")

// Context 仿真任务上下文
// 功能：包含一次仿真任务的所有变量和状态，替代全局变量
// 说明：管理时钟、地图、智能体、寻路任务与事件输出
type Context struct {
	// 任务名
	job string
	// 关闭指令
	closed atomic.Bool

	// 时钟
	clock *clock.Clock

	// 辅助程序，处理分布式模式下相关调用，包括与syncer、其他服务的交互
	sidecar *syncer.Sidecar
	// sidecar close channel
	sidecarCloseCh chan struct{}
	serving        bool

	// Field管理器
	fieldManager *field.FieldManager
	// Agent管理器
	agentManager *agent.AgentManager
	// 寻路任务管理器
	routeManager *route.RouteManager

	// 运行时配置文件
	runtimeConfig *config.RuntimeConfig
	// 导航服务
	router entity.IRouter
	// 寻路事件输出
	sink    output.MultiSink
	eventDB *output.EventDB

	// 用于初始化的输入
	initRes *input.Input
}

// NewContext 创建新的仿真任务上下文
// 参数：
//   - job: 任务名称
//   - c: 配置对象
//   - in: 输入数据
//   - sidecar: sidecar实例，为nil时不提供RPC服务
//   - startSidecarServe: 是否启动sidecar服务
//
// 返回：初始化完成的Context实例
// 算法说明：
// 1. 创建时钟与运行时配置
// 2. 打开事件数据库（如果配置了），与日志输出组成事件接收方
// 3. 创建地图、智能体、寻路任务管理器与导航服务
// 4. 注册RPC服务到sidecar，启动sidecar服务（如果需要）
func NewContext(job string, c config.Config, in *input.Input, sidecar *syncer.Sidecar, startSidecarServe bool) *Context {
	ctx := &Context{
		job:            job,
		sidecar:        sidecar,
		sidecarCloseCh: make(chan struct{}, 1),
		initRes:        in,
	}
	ctx.clock = clock.New(c.Control.Step)
	ctx.runtimeConfig = config.NewRuntimeConfig(c)

	ctx.sink = output.MultiSink{output.LogSink{Level: logrus.DebugLevel}}
	if c.Output.EventDB != "" {
		db, err := output.OpenEventDB(c.Output.EventDB)
		if err != nil {
			log.Panicf("failed to open event db: %v", err)
		}
		ctx.eventDB = db
		ctx.sink = append(ctx.sink, db)
	}

	ctx.router = router.NewLocalRouter()
	ctx.fieldManager = field.NewManager(ctx)
	ctx.agentManager = agent.NewManager(ctx)
	ctx.routeManager = route.NewManager(ctx)

	if ctx.sidecar != nil {
		ctx.clock.Register(ctx.sidecar)
		ctx.fieldManager.Register(ctx.sidecar)
		ctx.agentManager.Register(ctx.sidecar)
		ctx.routeManager.Register(ctx.sidecar)

		// sidecar协程，用于提供RPC服务
		if startSidecarServe {
			ctx.serving = true
			go func() {
				err := ctx.sidecar.Serve()
				if err != nil {
					log.Panicf("failed to serve: %v", err)
				}
				ctx.sidecarCloseCh <- struct{}{}
			}()
		}
	}
	return ctx
}

func (ctx *Context) Clock() *clock.Clock {
	return ctx.clock
}

func (ctx *Context) FieldManager() entity.IFieldManager {
	return ctx.fieldManager
}

func (ctx *Context) AgentManager() entity.IAgentManager {
	return ctx.agentManager
}

func (ctx *Context) RouteManager() entity.IRouteManager {
	return ctx.routeManager
}

func (ctx *Context) RuntimeConfig() *config.RuntimeConfig {
	return ctx.runtimeConfig
}

func (ctx *Context) Router() entity.IRouter {
	return ctx.router
}

func (ctx *Context) EventSink() entity.IEventSink {
	return ctx.sink
}

// Init 根据输入数据初始化地图与智能体
func (ctx *Context) Init() {
	ctx.clock.Init()
	log.Infof("job %s: Field: %v", ctx.job, len(ctx.initRes.Fields))
	log.Infof("Agent: %v", len(ctx.initRes.Agents))
	// 智能体的家需要吸附到地图上，地图必须先完成初始化
	ctx.fieldManager.Init(ctx.initRes.Fields)
	ctx.agentManager.Init(ctx.initRes.Agents)
}

// Close 关闭sidecar并提交剩余的寻路事件，可重复调用
func (ctx *Context) Close() {
	if ctx.closed.Swap(true) {
		return
	}
	if ctx.sidecar != nil {
		ctx.sidecar.Close()
	}
	if ctx.eventDB != nil {
		if err := ctx.eventDB.Close(); err != nil {
			log.Errorf("failed to close event db: %v", err)
		}
		if n := ctx.eventDB.Dropped(); n > 0 {
			log.Warnf("%d route events dropped", n)
		}
	}
	outcome := ctx.routeManager.Outcome()
	log.Infof("route tasks: %d done, %d failed %v", outcome.Done, outcome.FailedTotal(), outcome.Failed)
}

package task

import (
	"flag"
)

const (
	SelfName = "gridroute" // 本程序在模拟任务集群中的名字
)

var (
	heartBeatInterval = flag.Int("log.heartbeat_interval", 100, "心跳日志间隔步数")
)

// prepare 准备阶段，每步执行一次
// 算法说明：
// 1. 心跳日志：定期输出仿真时间
// 2. 智能体管理器：新智能体加入，位置快照更新
// 3. 地图管理器：应用地图替换并通知寻路任务，根据快照重建占用
// 4. 寻路任务管理器：新任务加入，按智能体调度中断与恢复
//
// 说明：三者有先后依赖，必须串行执行
func (ctx *Context) prepare() {
	if *heartBeatInterval > 0 && ctx.clock.InternalStep%int32(*heartBeatInterval) == 0 {
		hour, minute, second := ctx.clock.GetHourMinuteSecond()
		log.Infof(
			"STEP: %d(%d:%d:%.2f)",
			ctx.clock.InternalStep,
			hour, minute, second,
		)
	}
	ctx.agentManager.Prepare()
	ctx.fieldManager.Prepare()
	ctx.routeManager.Prepare()
}

// update 更新阶段，每步执行一次
// 算法说明：
// 1. 智能体：应用到期的移动指令，按时刻表出发
// 2. 寻路任务：推进所有正在运行的任务
// 3. 时钟推进一步
func (ctx *Context) update() {
	ctx.agentManager.Update(ctx.clock.DT)
	ctx.routeManager.Update(ctx.clock.DT)
	ctx.clock.Tick()
}

// Run 运行
func (ctx *Context) Run() {
	// 初始化
	ctx.Init()
	// init syncer
	ctx.sidecar.Step(false)
	for {
		ctx.prepare()
		// 通知准备阶段完成
		log.Debugf("step %d: prepare complete and call NotifyStepReady", ctx.clock.InternalStep)
		ctx.sidecar.NotifyStepReady()
		ctx.update()
		log.Debugf("step %d: update complete", ctx.clock.InternalStep)
		close := false
		if ctx.clock.InternalStep >= ctx.clock.END_STEP {
			close = ctx.sidecar.Step(true)
		} else {
			close = ctx.sidecar.Step(false)
		}
		if close || ctx.closed.Load() {
			break
		}
	}
	log.Infof("engine complete")
	ctx.Close()
	if ctx.serving {
		// wait for graceful stop
		<-ctx.sidecarCloseCh
	}
}

// RunLocal 不经过syncer运行到结束步，用于离线批量仿真
func (ctx *Context) RunLocal() {
	ctx.Init()
	for ctx.clock.InternalStep < ctx.clock.END_STEP && !ctx.closed.Load() {
		ctx.prepare()
		ctx.update()
	}
	log.Infof("engine complete at %s", ctx.clock)
	ctx.Close()
}

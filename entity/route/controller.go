package route

import (
	"fmt"
	"math"
	"slices"
	"sync/atomic"
	"time"

	"github.com/tsinghua-fib-lab/gridroute-sim/entity"
	"github.com/tsinghua-fib-lab/gridroute-sim/schema"
	"github.com/tsinghua-fib-lab/gridroute-sim/utils/container"
)

const (
	negligibleTime   = 10 * time.Millisecond // 同一tick内继续推进的耗时阈值
	maxContinuations = 8                     // 同一tick内最多推进的次数
	stepTimeout      = 3 * time.Second       // 对齐点不变超过该时长视为卡住
	lookaheadMisses  = 5                     // 对齐搜索连续不改善的候选数上限
	maxStepDistance  = 10                    // 调度目标离对齐点超过该距离（且超过route_step）时视为被强制移位
	stuckDecay       = 0.8                   // 卡住时步长的衰减系数
)

// wallNow 度量同一tick内耗时的时钟
var wallNow = time.Now

// Controller 寻路控制器
// 功能：计算到目的地的路径，并逐步驱动智能体沿路径行走，处理位置滞后、偏移、阻挡与中断
// 说明：单线程，每个tick由调度方调用一次Advance，Advance从不阻塞
type Controller struct {
	container.IncrementalItemBase
	ctx   entity.ITaskContext
	id    string
	actor entity.IAgent

	state      RouteState
	mapChanged atomic.Bool // 地图变化标志，由订阅通知置位

	status        Status
	err           *Error
	mover         entity.IStepMover // 当前单步移动子任务，至多一个
	interruptedAt time.Time
	dispatches    int // 累计调度的单步移动次数

	handle     entity.ChangeHandle
	subscribed bool
}

// New 创建寻路控制器
// 功能：校验参数，订阅地图变化
// 参数：ctx-任务上下文，id-任务ID，actor-智能体，dest-目的地，opts-约束
// 返回：控制器实例；参数非法时返回包装了ErrInvalidArgument的错误
// 说明：opts.AvoidWalls为空时取智能体的route_avoidWalls配置
func New(
	ctx entity.ITaskContext,
	id string,
	actor entity.IAgent,
	dest schema.Position,
	opts schema.RouteOptions,
) (*Controller, error) {
	if actor == nil {
		return nil, fmt.Errorf("%w: no actor", ErrInvalidArgument)
	}
	if dest.Field == "" {
		return nil, fmt.Errorf("%w: destination without field", ErrInvalidArgument)
	}
	if dest.X < 0 || dest.Y < 0 {
		return nil, fmt.Errorf("%w: negative destination %v", ErrInvalidArgument, dest.XY())
	}
	if opts.MaxDistance < 0 || opts.MaxTime < 0 || opts.DistFromGoal < 0 || opts.PyDistFromGoal < 0 {
		return nil, fmt.Errorf("%w: negative constraint %+v", ErrInvalidArgument, opts)
	}
	avoidWalls := actor.Config().RouteAvoidWalls
	if opts.AvoidWalls != nil {
		avoidWalls = *opts.AvoidWalls
	}
	c := &Controller{
		ctx:   ctx,
		id:    id,
		actor: actor,
		state: RouteState{
			Destination: dest,
			Constraints: Constraints{
				MaxDistance:       opts.MaxDistance,
				MaxTime:           time.Duration(opts.MaxTime * float64(time.Second)),
				DistFromGoal:      opts.DistFromGoal,
				PyDistFromGoal:    opts.PyDistFromGoal,
				AvoidWalls:        avoidWalls,
				NotifyUponArrival: opts.NotifyUponArrival,
			},
			Stage: StageNotInitialized,
		},
		status: StatusInactive,
	}
	c.handle = ctx.FieldManager().Subscribe(id)
	c.subscribed = true
	return c, nil
}

func (c *Controller) ID() string {
	return c.id
}

func (c *Controller) Actor() entity.IAgent {
	return c.actor
}

func (c *Controller) Status() Status {
	return c.status
}

func (c *Controller) Stage() Stage {
	return c.state.Stage
}

// Err 失败原因，未失败时为nil
func (c *Controller) Err() error {
	if c.err == nil {
		return nil
	}
	return c.err
}

// Solution 当前路径的副本
func (c *Controller) Solution() []schema.Coordinate {
	return slices.Clone(c.state.Solution)
}

func (c *Controller) StepIndex() int {
	return c.state.StepIndex
}

func (c *Controller) Destination() schema.Position {
	return c.state.Destination
}

func (c *Controller) Dispatches() int {
	return c.dispatches
}

// Info 任务状态的只读快照
func (c *Controller) Info() *TaskInfo {
	info := &TaskInfo{
		ID:          c.id,
		AgentID:     c.actor.ID(),
		Destination: c.state.Destination,
		Stage:       c.state.Stage.String(),
		Status:      c.status.String(),
		StepsLeft:   len(c.state.Solution),
		StepIndex:   c.state.StepIndex,
		Dispatches:  c.dispatches,
	}
	if c.err != nil {
		info.Error = c.err.Error()
	}
	if c.state.NextPos != nil {
		next := *c.state.NextPos
		info.NextPos = &next
	}
	return info
}

// OnMapChanged 地图变化通知，在下一次Advance时生效
func (c *Controller) OnMapChanged() {
	c.mapChanged.Store(true)
}

// Activate 激活任务，进入计算路径阶段
func (c *Controller) Activate() {
	if c.status != StatusInactive {
		return
	}
	c.status = StatusRunning
	c.state.Stage = StageCalculateRoute
	c.state.TimeStart = c.now()
}

// Interrupt 中断任务，丢弃当前单步移动子任务
func (c *Controller) Interrupt() {
	if c.status != StatusRunning {
		return
	}
	c.status = StatusInterrupted
	c.interruptedAt = c.now()
	c.mover = nil
}

// Resume 恢复任务
// 说明：TimeStart与TimeStep顺延中断的时长，使中断不计入maxTime与卡住判定
func (c *Controller) Resume() {
	if c.status != StatusInterrupted {
		return
	}
	d := c.now().Sub(c.interruptedAt)
	c.state.TimeStart = c.state.TimeStart.Add(d)
	c.state.TimeStep = c.state.TimeStep.Add(d)
	c.status = StatusRunning
}

// Close 取消地图变化订阅，可重复调用
func (c *Controller) Close() {
	if c.subscribed {
		c.ctx.FieldManager().Unsubscribe(c.handle)
		c.subscribed = false
	}
}

// Advance 推进一个tick
// 功能：先做每个tick的前置检查，再推进单步移动子任务，子任务结束后执行一次阶段逻辑
// 算法说明：
// 1. 非运行状态直接返回，终止状态不会再改变
// 2. 前置检查（就绪、超时、地图变化）不受子任务影响，任务结束时子任务一并丢弃
// 3. 子任务仍在进行中则返回
// 4. 执行阶段逻辑，若允许继续且本tick耗时可忽略（<10ms），则在同一tick内继续推进
func (c *Controller) Advance() {
	begin := wallNow()
	for range maxContinuations {
		if c.status != StatusRunning {
			return
		}
		now := c.now()
		f, ok := c.check(now)
		if !ok {
			return
		}
		if c.mover != nil {
			switch c.mover.Iterate(now) {
			case entity.StepRunning:
				return
			case entity.StepFailed:
				log.Debugf("route %s: step to %v failed", c.id, c.mover.Target())
			}
			c.mover = nil
		}
		if !c.iterate(now, f) {
			return
		}
		if wallNow().Sub(begin) >= negligibleTime {
			return
		}
	}
}

// check 每个tick的前置检查，返回智能体所在地图以及是否可以继续推进
// 说明：超时失败、地图变化结束时返回false
func (c *Controller) check(now time.Time) (entity.IField, bool) {
	if !c.actor.Ready() {
		return nil, false
	}
	f, err := c.ctx.FieldManager().GetOrError(c.actor.FieldName())
	if err != nil {
		return nil, false
	}
	if c.state.Constraints.MaxTime > 0 && now.Sub(c.state.TimeStart) > c.state.Constraints.MaxTime {
		log.Debugf("route %s: agent %s spent too much time, bailing out", c.id, c.actor.ID())
		c.fail(CodeTooMuchTime, "too much time spent on walking")
		return nil, false
	}
	if c.actor.FieldName() != c.state.Destination.Field || c.mapChanged.Load() {
		log.Debugf("route %s: map changed (%s, destination %s)", c.id, c.actor.FieldName(), c.state.Destination.Field)
		c.finish()
		return nil, false
	}
	return f, true
}

// iterate 执行一次阶段逻辑，返回是否允许在同一tick内继续推进
func (c *Controller) iterate(now time.Time, f entity.IField) bool {
	switch c.state.Stage {
	case StageCalculateRoute:
		return c.calculateRoute(f)
	case StageSolutionReady:
		return c.solutionReady(now)
	case StageWalkingSolution:
		return c.walkSolution(now, f)
	default:
		log.Errorf("route %s: unexpected stage %v", c.id, c.state.Stage)
		c.fail(CodeUnexpectedState, fmt.Sprintf("unexpected route stage %v", c.state.Stage))
		return false
	}
}

// calculateRoute 计算路径阶段
func (c *Controller) calculateRoute(f entity.IField) bool {
	pos := c.actor.Position()
	dest := c.state.Destination.XY()
	if pos == dest {
		log.Debugf("route %s: current position and destination are the same", c.id)
		c.finish()
		return false
	}
	solution, ok := GetRoute(c.ctx.Router(), f, pos, &dest, c.state.Constraints.AvoidWalls, c.snapRadius())
	if !ok {
		log.Debugf("route %s: failed to calculate a route from %v to %v on %s", c.id, pos, dest, f.Name())
		c.fail(CodeCannotCalculateRoute, "unable to calculate a route")
		return false
	}
	c.state.Solution = solution
	c.state.LastStartPos = pos
	c.state.Stage = StageSolutionReady
	log.Debugf("route %s: solution ready on %s from %v to %v, size %d", c.id, f.Name(), pos, dest, len(solution))
	return true
}

// solutionReady 按约束裁剪路径，进入行走阶段
// 算法说明：
// 1. maxDistance在(0,1)内时换算为路点数floor(maxDistance*len)
// 2. maxDistance小于路径长度时只保留前maxDistance+1个路点
// 3. 设置了pyDistFromGoal时去掉末尾离终点欧氏距离小于它的路点，否则去掉末尾distFromGoal个路点
// 4. 重置行走状态，路径为空时直接结束
func (c *Controller) solutionReady(now time.Time) bool {
	sol := c.state.Solution
	cons := &c.state.Constraints
	if cons.MaxDistance > 0 && cons.MaxDistance < 1 {
		cons.MaxDistance = math.Floor(cons.MaxDistance * float64(len(sol)))
	}
	if md := int(cons.MaxDistance); md > 0 && md < len(sol) {
		sol = sol[:md+1]
	}

	if cons.PyDistFromGoal > 0 && len(sol) > 0 {
		goal := sol[len(sol)-1]
		trim := 0
		for trim < len(sol) && euclidean(sol[len(sol)-1-trim], goal) < cons.PyDistFromGoal {
			trim++
		}
		log.Debugf("route %s: trimming %d steps for pyDistFromGoal %v", c.id, trim, cons.PyDistFromGoal)
		sol = sol[:len(sol)-trim]
	} else if cons.DistFromGoal > 0 {
		trim := min(cons.DistFromGoal, len(sol))
		log.Debugf("route %s: trimming %d steps for distFromGoal %d", c.id, trim, cons.DistFromGoal)
		sol = sol[:len(sol)-trim]
	}

	c.state.Solution = sol
	c.mapChanged.Store(false)
	c.state.StepIndex = 0
	c.state.LastPos = nil
	c.state.NextPos = nil
	c.state.TimeStep = now
	c.state.Stage = StageWalkingSolution

	if len(sol) == 0 {
		log.Debugf("route %s: solution is empty, finishing", c.id)
		c.finish()
		return false
	}
	return true
}

// reset 丢弃当前路径，重新计算
func (c *Controller) reset() {
	c.state.Solution = nil
	c.state.Stage = StageCalculateRoute
}

func (c *Controller) finish() {
	c.status = StatusDone
	c.mover = nil
}

func (c *Controller) fail(code ErrorCode, msg string) {
	c.status = StatusFailed
	c.err = &Error{Code: code, Message: msg}
	c.mover = nil
	log.Warnf("route %s of agent %s failed: %v", c.id, c.actor.ID(), c.err)
}

func (c *Controller) publish(status string) {
	sink := c.ctx.EventSink()
	if sink == nil {
		return
	}
	sink.Publish(schema.RouteEvent{
		TaskID:  c.id,
		AgentID: c.actor.ID(),
		Status:  status,
		Pos: schema.Position{
			Field: c.actor.FieldName(),
			X:     c.actor.Position().X,
			Y:     c.actor.Position().Y,
		},
		T: c.ctx.Clock().T,
	})
}

func (c *Controller) now() time.Time {
	return c.ctx.Clock().Now()
}

func (c *Controller) snapRadius() int {
	if rc := c.ctx.RuntimeConfig(); rc != nil && rc.C.Route.SnapRadius > 0 {
		return rc.C.Route.SnapRadius
	}
	return 1
}

package agent

import (
	"hash/fnv"
	"slices"
	"sync"
	"time"

	"github.com/tsinghua-fib-lab/gridroute-sim/entity"
	"github.com/tsinghua-fib-lab/gridroute-sim/entity/agent/schedule"
	"github.com/tsinghua-fib-lab/gridroute-sim/schema"
	"github.com/tsinghua-fib-lab/gridroute-sim/utils/container"
	"github.com/tsinghua-fib-lab/gridroute-sim/utils/randengine"
)

// Agent 智能体实体
// 功能：模拟一个由服务端裁决位置的角色，移动指令经过随机延迟后才生效，位置按行走时间插值
type Agent struct {
	container.IncrementalItemBase
	ctx entity.ITaskContext
	m   *AgentManager

	// 静态属性
	base  *schema.Agent
	id    string
	home  schema.Position
	speed float64 // 秒/格

	generator *randengine.Engine // 随机数生成器，以ID的哈希为seed

	runtime  runtime
	snapshot runtime
	pending  *command // 尚未生效的移动指令

	// 时刻表
	schedule          *schedule.Schedule
	newSchedule       []*schema.Trip // schedule修改buffer
	scheduleResetFlag bool
	scheduleMutex     sync.Mutex
	tripTask          string // 当前trip对应的寻路任务ID
}

// newAgent 创建并初始化一个新的Agent实例
// 说明：初始位置为home，home不可行走时吸附到附近的可行走格子
func newAgent(ctx entity.ITaskContext, m *AgentManager, base *schema.Agent) *Agent {
	h := fnv.New64a()
	h.Write([]byte(base.ID))
	a := &Agent{
		ctx:         ctx,
		m:           m,
		base:        base,
		id:          base.ID,
		home:        base.Home,
		speed:       base.WalkSpeed,
		generator:   randengine.New(h.Sum64()),
		schedule:    schedule.NewSchedule(ctx),
		newSchedule: make([]*schema.Trip, 0),
	}
	if a.speed <= 0 {
		a.speed = ctx.RuntimeConfig().C.Route.WalkSpeed
	}
	f, err := ctx.FieldManager().GetOrError(base.Home.Field)
	if err != nil {
		log.Panicf("agent %s: %v", a.id, err)
	}
	home, ok := f.ClosestWalkableSpot(base.Home.XY(), ctx.RuntimeConfig().C.Route.SnapRadius)
	if !ok {
		log.Panicf("agent %s: home %v on %s is not walkable", a.id, base.Home.XY(), f.Name())
	}
	a.runtime = runtime{
		Field:    f.Name(),
		Ready:    true,
		From:     home,
		To:       home,
		TimeMove: ctx.Clock().Now(),
	}
	a.snapshot = a.runtime
	a.schedule.Set(base.Trips, ctx.Clock().T)
	return a
}

func (a *Agent) ID() string {
	return a.id
}

func (a *Agent) FieldName() string {
	return a.runtime.Field
}

func (a *Agent) Ready() bool {
	return a.runtime.Ready
}

// Position 当前位置（按行走时间插值）
func (a *Agent) Position() schema.Coordinate {
	pos, _ := a.runtime.positionAt(a.ctx.Clock().Now(), a.speed)
	return pos
}

func (a *Agent) PosFrom() schema.Coordinate {
	return a.runtime.From
}

func (a *Agent) PosTo() schema.Coordinate {
	return a.runtime.To
}

func (a *Agent) TimeMove() time.Time {
	return a.runtime.TimeMove
}

func (a *Agent) WalkSpeed() float64 {
	return a.speed
}

// Config 生效的寻路配置
// 说明：智能体未显式设置的项取全局配置
func (a *Agent) Config() entity.AgentConfig {
	rc := a.ctx.RuntimeConfig()
	cfg := entity.AgentConfig{
		RouteAvoidWalls:     rc.AvoidWalls(),
		RouteStep:           rc.C.Route.Step,
		TeleportAutoUnstuck: rc.C.Route.TeleportUnstuck,
	}
	if v := a.base.Config.RouteAvoidWalls; v != nil {
		cfg.RouteAvoidWalls = *v
	}
	if v := a.base.Config.RouteStep; v > 0 {
		cfg.RouteStep = v
	}
	if v := a.base.Config.TeleportAutoUnstuck; v != nil {
		cfg.TeleportAutoUnstuck = *v
	}
	return cfg
}

// NewStepMover 创建向target移动一步的子任务
func (a *Agent) NewStepMover(target schema.Coordinate) entity.IStepMover {
	return newMover(a, target)
}

// MoveTo 发出移动指令，指令在0~command_lag步之后生效
// 说明：正在移动且目标与当前移动终点相同时忽略
func (a *Agent) MoveTo(target schema.Coordinate) {
	now := a.ctx.Clock().Now()
	if target == a.runtime.To && a.runtime.moving(now, a.speed) {
		return
	}
	lag := a.generator.Lag(a.ctx.RuntimeConfig().C.Route.CommandLag)
	a.pending = &command{target: target, step: a.ctx.Clock().InternalStep + int32(lag)}
}

// Teleport 瞬移到所在地图上随机的可行走格子
// 说明：瞬移后位置需要等待下一步确认，期间Ready()为false
func (a *Agent) Teleport() bool {
	f, err := a.ctx.FieldManager().GetOrError(a.runtime.Field)
	if err != nil {
		return false
	}
	cells := f.WalkableCells()
	if len(cells) == 0 {
		return false
	}
	pos := cells[a.generator.Pick(len(cells))]
	log.Infof("agent %s teleported from %v to %v", a.id, a.Position(), pos)
	a.runtime.From, a.runtime.To, a.runtime.Track = pos, pos, nil
	a.runtime.TimeMove = a.ctx.Clock().Now()
	a.runtime.Ready = false
	a.pending = nil
	return true
}

// SetSchedule 设置时刻表（等到update时才会真正替换）
func (a *Agent) SetSchedule(trips []*schema.Trip) {
	a.scheduleMutex.Lock()
	defer a.scheduleMutex.Unlock()
	a.newSchedule = slices.Clone(trips)
	a.scheduleResetFlag = true
}

// prepare 准备阶段：snapshot更新
func (a *Agent) prepare() {
	a.snapshot = a.runtime
}

// update 更新阶段
// 算法说明：
// 1. 确认瞬移后的位置
// 2. 到期的移动指令生效：从当前插值位置出发，沿直线走到能到达的最远处
// 3. 处理时刻表：当前trip的寻路任务结束后进入下一个trip，到达出发时间时创建寻路任务
func (a *Agent) update() {
	now := a.ctx.Clock().Now()
	a.runtime.Ready = true

	if cmd := a.pending; cmd != nil && a.ctx.Clock().InternalStep >= cmd.step {
		a.pending = nil
		a.applyMove(now, cmd.target)
	}

	a.updateSchedule()
}

func (a *Agent) applyMove(now time.Time, target schema.Coordinate) {
	f, err := a.ctx.FieldManager().GetOrError(a.runtime.Field)
	if err != nil {
		log.Warnf("agent %s: %v", a.id, err)
		return
	}
	cur, leftover := a.runtime.positionAt(now, a.speed)
	track := straightTrack(f, cur, target)
	to := cur
	if len(track) > 0 {
		to = track[len(track)-1]
	} else {
		leftover = 0
	}
	a.runtime.From, a.runtime.To, a.runtime.Track = cur, to, track
	a.runtime.TimeMove = now.Add(-leftover)
}

func (a *Agent) updateSchedule() {
	a.scheduleMutex.Lock()
	if a.scheduleResetFlag {
		a.schedule.Set(a.newSchedule, a.ctx.Clock().T)
		a.newSchedule = make([]*schema.Trip, 0)
		a.scheduleResetFlag = false
		a.tripTask = ""
	}
	a.scheduleMutex.Unlock()

	rm := a.ctx.RouteManager()
	if a.tripTask != "" {
		if rm.Busy(a.id) {
			return
		}
		a.tripTask = ""
		a.m.recordTripEnd()
		a.schedule.NextTrip(a.ctx.Clock().T)
	}
	trip := a.schedule.GetTrip()
	if trip == nil || a.ctx.Clock().T < a.schedule.GetDepartureTime() || rm.Busy(a.id) {
		return
	}
	id, err := rm.Add(a.id, trip.End, trip.Options)
	if err != nil {
		log.Warnf("agent %s: skip trip to %v: %v", a.id, trip.End, err)
		a.schedule.NextTrip(a.ctx.Clock().T)
		return
	}
	log.Debugf("agent %s departs to %v with route %s", a.id, trip.End, id)
	a.tripTask = id
}

// Info 智能体状态的只读快照
func (a *Agent) Info() *Info {
	rt := a.snapshot
	pos, _ := rt.positionAt(a.ctx.Clock().Now(), a.speed)
	return &Info{
		ID:        a.id,
		Position:  schema.Position{Field: rt.Field, X: pos.X, Y: pos.Y},
		From:      rt.From,
		To:        rt.To,
		Ready:     rt.Ready,
		TripIndex: a.schedule.TripIndex,
		Trips:     len(a.schedule.Base()),
		TripTask:  a.tripTask,
	}
}

// Info 智能体的对外展示
type Info struct {
	ID        string            `json:"id"`
	Position  schema.Position   `json:"position"`
	From      schema.Coordinate `json:"from"`
	To        schema.Coordinate `json:"to"`
	Ready     bool              `json:"ready"`
	TripIndex int32             `json:"trip_index"`
	Trips     int               `json:"trips"`
	TripTask  string            `json:"trip_task,omitempty"`
}

package route

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/tsinghua-fib-lab/gridroute-sim/clock"
	"github.com/tsinghua-fib-lab/gridroute-sim/entity"
	"github.com/tsinghua-fib-lab/gridroute-sim/entity/field"
	"github.com/tsinghua-fib-lab/gridroute-sim/entity/field/router"
	"github.com/tsinghua-fib-lab/gridroute-sim/schema"
	"github.com/tsinghua-fib-lab/gridroute-sim/utils/config"
)

// fakeAgent 由测试直接摆放位置的智能体
type fakeAgent struct {
	id       string
	field    string
	ready    bool
	pos      schema.Coordinate
	from, to schema.Coordinate
	timeMove time.Time
	speed    float64
	cfg      entity.AgentConfig

	// 单步移动子任务在第一次Iterate之后返回的状态
	stepStatus entity.StepStatus
	movers     []*fakeMover
	teleports  int
}

func newFakeAgent(id, fieldName string, pos schema.Coordinate) *fakeAgent {
	return &fakeAgent{
		id:         id,
		field:      fieldName,
		ready:      true,
		pos:        pos,
		from:       pos,
		to:         pos,
		timeMove:   clock.Epoch,
		speed:      0.15,
		cfg:        entity.AgentConfig{RouteAvoidWalls: true, RouteStep: 15},
		stepStatus: entity.StepRunning,
	}
}

func (a *fakeAgent) ID() string                      { return a.id }
func (a *fakeAgent) FieldName() string               { return a.field }
func (a *fakeAgent) Ready() bool                     { return a.ready }
func (a *fakeAgent) Position() schema.Coordinate     { return a.pos }
func (a *fakeAgent) PosFrom() schema.Coordinate      { return a.from }
func (a *fakeAgent) PosTo() schema.Coordinate        { return a.to }
func (a *fakeAgent) TimeMove() time.Time             { return a.timeMove }
func (a *fakeAgent) WalkSpeed() float64              { return a.speed }
func (a *fakeAgent) Config() entity.AgentConfig      { return a.cfg }
func (a *fakeAgent) Teleport() bool                  { a.teleports++; return true }
func (a *fakeAgent) NewStepMover(target schema.Coordinate) entity.IStepMover {
	m := &fakeMover{agent: a, target: target}
	a.movers = append(a.movers, m)
	return m
}

// moveTo 模拟一次完整的移动：从当前位置走到to，移动开始于at
func (a *fakeAgent) moveTo(to schema.Coordinate, at time.Time) {
	a.from, a.to, a.pos = a.pos, to, to
	a.timeMove = at
}

type fakeMover struct {
	agent   *fakeAgent
	target  schema.Coordinate
	started bool
}

func (m *fakeMover) Target() schema.Coordinate { return m.target }

func (m *fakeMover) Iterate(now time.Time) entity.StepStatus {
	if !m.started {
		m.started = true
		return entity.StepRunning
	}
	return m.agent.stepStatus
}

type fakeAgentManager struct {
	entity.IAgentManager
	agents    map[string]*fakeAgent
	positions []schema.Position
}

func (m *fakeAgentManager) GetOrError(id string) (entity.IAgent, error) {
	if a, ok := m.agents[id]; ok {
		return a, nil
	}
	return nil, fmt.Errorf("no id %s in agent data", id)
}

func (m *fakeAgentManager) Positions() []schema.Position { return m.positions }

type recordingSink struct {
	mtx    sync.Mutex
	events []schema.RouteEvent
}

func (s *recordingSink) Publish(ev schema.RouteEvent) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	s.events = append(s.events, ev)
}

func (s *recordingSink) statuses() []string {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	res := make([]string, 0, len(s.events))
	for _, ev := range s.events {
		res = append(res, ev.Status)
	}
	return res
}

type testContext struct {
	clock  *clock.Clock
	fm     *field.FieldManager
	am     *fakeAgentManager
	rm     *RouteManager
	rc     *config.RuntimeConfig
	router *router.LocalRouter
	sink   *recordingSink
}

func (c *testContext) Clock() *clock.Clock                  { return c.clock }
func (c *testContext) FieldManager() entity.IFieldManager   { return c.fm }
func (c *testContext) AgentManager() entity.IAgentManager   { return c.am }
func (c *testContext) RouteManager() entity.IRouteManager   { return c.rm }
func (c *testContext) RuntimeConfig() *config.RuntimeConfig { return c.rc }
func (c *testContext) Router() entity.IRouter               { return c.router }
func (c *testContext) EventSink() entity.IEventSink         { return c.sink }

// setT 设置仿真时间（秒）
func (c *testContext) setT(t float64) {
	c.clock.T = t
}

// newTestContext 以给定地图创建测试上下文，地图名为"f"
func newTestContext(t *testing.T, rows ...string) *testContext {
	t.Helper()
	frozen := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	old := wallNow
	wallNow = func() time.Time { return frozen }
	t.Cleanup(func() { wallNow = old })

	ctx := &testContext{
		clock:  clock.New(config.ControlStep{Start: 0, Total: 1000, Interval: 1}),
		am:     &fakeAgentManager{agents: map[string]*fakeAgent{}},
		rc:     config.NewRuntimeConfig(config.Config{}),
		router: router.NewLocalRouter(),
		sink:   &recordingSink{},
	}
	ctx.fm = field.NewManager(ctx)
	ctx.fm.Init([]*schema.Field{{Name: "f", Rows: rows}})
	ctx.rm = NewManager(ctx)
	return ctx
}

func (c *testContext) addAgent(id string, pos schema.Coordinate) *fakeAgent {
	a := newFakeAgent(id, "f", pos)
	c.am.agents[id] = a
	return a
}

// newController 直接创建并激活一个不经管理器调度的寻路任务
func (c *testContext) newController(t *testing.T, a *fakeAgent, dest schema.Coordinate, opts schema.RouteOptions) *Controller {
	t.Helper()
	ctrl, err := New(c, "task-"+a.id, a, schema.Position{Field: "f", X: dest.X, Y: dest.Y}, opts)
	require.NoError(t, err)
	ctrl.Activate()
	return ctrl
}

func xy(x, y int) schema.Coordinate {
	return schema.Coordinate{X: x, Y: y}
}

const corridor = ".........."

package route

import (
	"fmt"
	"sync"

	"git.fiblab.net/general/common/v2/parallel"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/gridroute-sim/entity"
	"github.com/tsinghua-fib-lab/gridroute-sim/schema"
	"github.com/tsinghua-fib-lab/gridroute-sim/utils/container"
)

// Outcome 寻路任务结束情况的统计
type Outcome struct {
	Done   int            `json:"done"`
	Failed map[string]int `json:"failed"` // 错误码 -> 数量
}

// FailedTotal 失败任务总数
func (o Outcome) FailedTotal() int {
	return lo.Sum(lo.Values(o.Failed))
}

// RouteManager 寻路任务管理器
// 功能：创建、调度、回收所有寻路任务，保证每个智能体同一时刻只有一个移动类任务在运行
// 说明：同一智能体的新任务会中断正在运行的任务，新任务结束后被中断的任务恢复
type RouteManager struct {
	ctx entity.ITaskContext

	data      map[string]*Controller // 所有任务（含已结束）
	dataMutex sync.RWMutex

	// 未结束的任务
	tasks *container.IncrementalArray[*Controller]
	// 每个智能体的任务栈，栈顶为正在运行的任务
	stacks map[string][]*Controller

	inserted      []*Controller
	insertedMutex sync.Mutex

	outcome Outcome
}

// NewManager 创建寻路任务管理器
func NewManager(ctx entity.ITaskContext) *RouteManager {
	return &RouteManager{
		ctx:      ctx,
		data:     make(map[string]*Controller),
		tasks:    container.NewIncrementalArray[*Controller](),
		stacks:   make(map[string][]*Controller),
		inserted: make([]*Controller, 0),
		outcome:  Outcome{Failed: make(map[string]int)},
	}
}

// Get 根据任务ID获取任务，如果不存在则panic
func (m *RouteManager) Get(id string) *Controller {
	if c, err := m.GetOrError(id); err != nil {
		log.Panic(err)
		return nil
	} else {
		return c
	}
}

// GetOrError 根据任务ID获取任务，如果不存在则返回错误
func (m *RouteManager) GetOrError(id string) (*Controller, error) {
	m.dataMutex.RLock()
	defer m.dataMutex.RUnlock()
	if c, ok := m.data[id]; !ok {
		return nil, fmt.Errorf("no id %s in route task data", id)
	} else {
		return c, nil
	}
}

// Add 为智能体创建寻路任务（等到Prepare时才会真正加入）
// 返回：任务ID；智能体不存在或参数非法时返回错误
func (m *RouteManager) Add(agentID string, dest schema.Position, opts schema.RouteOptions) (string, error) {
	agent, err := m.ctx.AgentManager().GetOrError(agentID)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	if _, err := m.ctx.FieldManager().GetOrError(dest.Field); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	id := uuid.NewString()
	c, err := New(m.ctx, id, agent, dest, opts)
	if err != nil {
		return "", err
	}
	m.insertedMutex.Lock()
	defer m.insertedMutex.Unlock()
	m.inserted = append(m.inserted, c)
	return id, nil
}

// Busy 智能体是否有尚未结束的寻路任务（含待加入的任务）
func (m *RouteManager) Busy(agentID string) bool {
	m.insertedMutex.Lock()
	pending := lo.ContainsBy(m.inserted, func(c *Controller) bool { return c.actor.ID() == agentID })
	m.insertedMutex.Unlock()
	if pending {
		return true
	}
	m.dataMutex.RLock()
	defer m.dataMutex.RUnlock()
	return len(m.stacks[agentID]) > 0
}

// Listener 根据任务ID解析地图变化的接收方，已结束或不存在的任务返回nil
func (m *RouteManager) Listener(id string) entity.IMapChangeListener {
	m.dataMutex.RLock()
	defer m.dataMutex.RUnlock()
	c, ok := m.data[id]
	if !ok || c.status.Terminal() {
		return nil
	}
	return c
}

// Outcome 已结束任务的统计
func (m *RouteManager) Outcome() Outcome {
	m.dataMutex.RLock()
	defer m.dataMutex.RUnlock()
	return Outcome{Done: m.outcome.Done, Failed: lo.Assign(m.outcome.Failed)}
}

// Prepare 准备阶段
// 算法说明：
// 1. 回收上一步结束的任务：取消订阅，出栈，恢复同一智能体被中断的任务
// 2. 加入新任务：中断同一智能体正在运行的任务，新任务入栈并激活
func (m *RouteManager) Prepare() {
	m.dataMutex.Lock()
	defer m.dataMutex.Unlock()

	for _, c := range m.tasks.Data() {
		if !c.status.Terminal() {
			continue
		}
		c.Close()
		m.tasks.Remove(c)
		agentID := c.actor.ID()
		stack := lo.Without(m.stacks[agentID], c)
		if len(stack) == 0 {
			delete(m.stacks, agentID)
		} else {
			m.stacks[agentID] = stack
			stack[len(stack)-1].Resume()
		}
		if c.status == StatusDone {
			m.outcome.Done++
		} else {
			m.outcome.Failed[c.err.Code.String()]++
		}
		log.Debugf("route %s of agent %s finished: %v", c.id, agentID, c.status)
	}

	m.insertedMutex.Lock()
	inserted := m.inserted
	m.inserted = make([]*Controller, 0)
	m.insertedMutex.Unlock()
	for _, c := range inserted {
		agentID := c.actor.ID()
		if stack := m.stacks[agentID]; len(stack) > 0 {
			top := stack[len(stack)-1]
			log.Debugf("route %s of agent %s interrupted by %s", top.id, agentID, c.id)
			top.Interrupt()
		}
		m.stacks[agentID] = append(m.stacks[agentID], c)
		m.data[c.id] = c
		m.tasks.Add(c)
		c.Activate()
	}
	m.tasks.Prepare()
}

// Update 更新阶段，不同智能体的任务并行推进
func (m *RouteManager) Update(dt float64) {
	parallel.GoFor(m.tasks.Data(), func(c *Controller) { c.Advance() })
}

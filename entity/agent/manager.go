package agent

import (
	"fmt"
	"sync"

	"git.fiblab.net/general/common/v2/parallel"
	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/gridroute-sim/entity"
	"github.com/tsinghua-fib-lab/gridroute-sim/schema"
	"github.com/tsinghua-fib-lab/gridroute-sim/utils/container"
)

// GlobalRuntime 全局运行时统计
type GlobalRuntime struct {
	NumCompletedTrips int32 `json:"num_completed_trips"` // 已完成的trip
}

// AgentManager Agent管理器
// 功能：管理所有Agent实体，提供创建、查找、更新与占用快照
type AgentManager struct {
	ctx entity.ITaskContext

	data      map[string]*Agent
	dataMutex sync.RWMutex

	agents *container.IncrementalArray[*Agent]

	agentInserted      []*Agent // 新加入的智能体
	agentInsertedMutex sync.Mutex

	snapshot, runtime GlobalRuntime
	runtimeMtx        sync.Mutex
}

// NewManager 创建Agent管理器实例
func NewManager(ctx entity.ITaskContext) *AgentManager {
	return &AgentManager{
		ctx:           ctx,
		data:          make(map[string]*Agent),
		agents:        container.NewIncrementalArray[*Agent](),
		agentInserted: make([]*Agent, 0),
	}
}

// Init 初始化所有Agent
// 功能：根据输入数据创建所有智能体，ID重复时panic
func (m *AgentManager) Init(pbs []*schema.Agent) {
	m.agents = container.NewIncrementalArray[*Agent]()
	agents := parallel.GoMap(pbs, func(pb *schema.Agent) *Agent {
		a := newAgent(m.ctx, m, pb)
		m.agents.Add(a)
		return a
	})
	m.data = lo.SliceToMap(agents, func(a *Agent) (string, *Agent) {
		return a.id, a
	})
	if len(m.data) != len(agents) {
		log.Panicf("agents have duplicated ids")
	}
	m.agents.Prepare()
}

// Get 根据ID获取Agent，如果不存在则panic
func (m *AgentManager) Get(id string) entity.IAgent {
	if a, err := m.get(id); err != nil {
		log.Panic(err)
		return nil
	} else {
		return a
	}
}

// GetOrError 根据ID获取Agent，如果不存在则返回错误
func (m *AgentManager) GetOrError(id string) (entity.IAgent, error) {
	if a, err := m.get(id); err != nil {
		return nil, err
	} else {
		return a, nil
	}
}

func (m *AgentManager) get(id string) (*Agent, error) {
	m.dataMutex.RLock()
	defer m.dataMutex.RUnlock()
	if a, ok := m.data[id]; !ok {
		return nil, fmt.Errorf("no id %s in agent data", id)
	} else {
		return a, nil
	}
}

// add 添加新的Agent（等到Prepare时才会真正加入）
func (m *AgentManager) add(pb *schema.Agent) (*Agent, error) {
	if pb.ID == "" {
		return nil, fmt.Errorf("agent without id")
	}
	if _, err := m.ctx.FieldManager().GetOrError(pb.Home.Field); err != nil {
		return nil, err
	}
	m.agentInsertedMutex.Lock()
	defer m.agentInsertedMutex.Unlock()
	if _, err := m.get(pb.ID); err == nil || lo.ContainsBy(m.agentInserted, func(a *Agent) bool { return a.id == pb.ID }) {
		return nil, fmt.Errorf("agent id %s already exists", pb.ID)
	}
	a := newAgent(m.ctx, m, pb)
	m.agentInserted = append(m.agentInserted, a)
	return a, nil
}

// Positions 所有智能体上一步快照中的位置
func (m *AgentManager) Positions() []schema.Position {
	return parallel.GoMap(m.agents.Data(), func(a *Agent) schema.Position {
		pos, _ := a.snapshot.positionAt(m.ctx.Clock().Now(), a.speed)
		return schema.Position{Field: a.snapshot.Field, X: pos.X, Y: pos.Y}
	})
}

// Prepare 准备阶段：新智能体加入，snapshot更新
func (m *AgentManager) Prepare() {
	m.agentInsertedMutex.Lock()
	inserted := m.agentInserted
	m.agentInserted = make([]*Agent, 0)
	m.agentInsertedMutex.Unlock()
	if len(inserted) > 0 {
		m.dataMutex.Lock()
		for _, a := range inserted {
			m.data[a.id] = a
			m.agents.Add(a)
		}
		m.dataMutex.Unlock()
	}
	m.agents.Prepare()

	parallel.GoFor(m.agents.Data(), func(a *Agent) { a.prepare() })
	m.runtimeMtx.Lock()
	m.snapshot = m.runtime
	m.runtimeMtx.Unlock()
	log.Debug("AgentManager: prepare done")
}

// Update 更新阶段
func (m *AgentManager) Update(dt float64) {
	parallel.GoFor(m.agents.Data(), func(a *Agent) { a.update() })
}

// Snapshot 上一步的全局统计
func (m *AgentManager) Snapshot() GlobalRuntime {
	m.runtimeMtx.Lock()
	defer m.runtimeMtx.Unlock()
	return m.snapshot
}

func (m *AgentManager) recordTripEnd() {
	m.runtimeMtx.Lock()
	defer m.runtimeMtx.Unlock()
	m.runtime.NumCompletedTrips++
}

package field

import (
	"fmt"
	"sync"

	"git.fiblab.net/general/common/v2/parallel"
	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/gridroute-sim/entity"
	"github.com/tsinghua-fib-lab/gridroute-sim/schema"
)

// FieldManager Field管理器
// 功能：管理所有栅格地图，提供查找、替换、占用快照与地图变化通知
type FieldManager struct {
	ctx entity.ITaskContext

	data   map[string]*Field
	fields []*Field

	reloaded    []*Field // 待替换的地图
	reloadMutex sync.Mutex

	hub *ChangeHub
}

// NewManager 创建Field管理器实例
// 参数：ctx-任务上下文
// 说明：地图变化的订阅者按任务ID登记，通知时经RouteManager解析
func NewManager(ctx entity.ITaskContext) *FieldManager {
	return &FieldManager{
		ctx:      ctx,
		data:     make(map[string]*Field),
		fields:   make([]*Field, 0),
		reloaded: make([]*Field, 0),
		hub: NewChangeHub(func(id string) entity.IMapChangeListener {
			rm := ctx.RouteManager()
			if rm == nil {
				return nil
			}
			return rm.Listener(id)
		}),
	}
}

// Init 初始化所有Field
// 功能：根据输入数据创建所有地图，地图数据错误时panic
func (m *FieldManager) Init(pbs []*schema.Field) {
	m.fields = parallel.GoMap(pbs, func(pb *schema.Field) *Field {
		f, err := New(pb)
		if err != nil {
			log.Panicf("bad field data: %v", err)
		}
		return f
	})
	m.data = lo.SliceToMap(m.fields, func(f *Field) (string, *Field) {
		return f.name, f
	})
	if len(m.data) != len(m.fields) {
		log.Panicf("fields have duplicated names")
	}
}

// Get 根据地图名获取Field，如果不存在则panic
func (m *FieldManager) Get(name string) entity.IField {
	if f, ok := m.data[name]; !ok {
		log.Panicf("no field %s in field data", name)
		return nil
	} else {
		return f
	}
}

// GetOrError 根据地图名获取Field，如果不存在则返回错误
func (m *FieldManager) GetOrError(name string) (entity.IField, error) {
	if f, ok := m.data[name]; !ok {
		return nil, fmt.Errorf("no field %s in field data", name)
	} else {
		return f, nil
	}
}

// Reload 替换地图内容（等到Prepare时才会真正替换）
func (m *FieldManager) Reload(pb *schema.Field) error {
	f, err := New(pb)
	if err != nil {
		return err
	}
	m.reloadMutex.Lock()
	defer m.reloadMutex.Unlock()
	m.reloaded = append(m.reloaded, f)
	return nil
}

func (m *FieldManager) Subscribe(id string) entity.ChangeHandle {
	return m.hub.Subscribe(id)
}

func (m *FieldManager) Unsubscribe(h entity.ChangeHandle) {
	m.hub.Unsubscribe(h)
}

// Prepare 准备阶段
// 算法说明：
// 1. 应用待替换的地图，有替换时通知所有订阅者
// 2. 根据智能体上一步快照位置重建每张地图的占用集合
func (m *FieldManager) Prepare() {
	m.reloadMutex.Lock()
	reloaded := m.reloaded
	m.reloaded = make([]*Field, 0)
	m.reloadMutex.Unlock()
	if len(reloaded) > 0 {
		for _, f := range reloaded {
			if old, ok := m.data[f.name]; ok {
				m.fields[lo.IndexOf(m.fields, old)] = f
			} else {
				m.fields = append(m.fields, f)
			}
			m.data[f.name] = f
			log.Infof("field %s reloaded (%dx%d)", f.name, f.width, f.height)
		}
		n := m.hub.Notify()
		log.Debugf("map change delivered to %d route tasks", n)
	}

	occupied := lo.SliceToMap(m.fields, func(f *Field) (string, map[schema.Coordinate]struct{}) {
		return f.name, make(map[schema.Coordinate]struct{})
	})
	if am := m.ctx.AgentManager(); am != nil {
		for _, p := range am.Positions() {
			if set, ok := occupied[p.Field]; ok {
				set[p.XY()] = struct{}{}
			}
		}
	}
	parallel.GoFor(m.fields, func(f *Field) { f.setOccupied(occupied[f.name]) })
}

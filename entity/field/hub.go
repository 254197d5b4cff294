package field

import (
	"sync"

	"github.com/tsinghua-fib-lab/gridroute-sim/entity"
)

// ChangeHub 地图变化的订阅表
// 功能：只登记订阅者的ID，通知时再经resolve解析为存活的接收方
// 说明：订阅表不持有接收方，接收方销毁后解析结果为nil，通知被忽略
type ChangeHub struct {
	mtx     sync.Mutex
	next    entity.ChangeHandle
	subs    map[entity.ChangeHandle]string
	resolve func(id string) entity.IMapChangeListener
}

func NewChangeHub(resolve func(id string) entity.IMapChangeListener) *ChangeHub {
	return &ChangeHub{
		subs:    make(map[entity.ChangeHandle]string),
		resolve: resolve,
	}
}

// Subscribe 以ID订阅，返回用于取消订阅的句柄
func (h *ChangeHub) Subscribe(id string) entity.ChangeHandle {
	h.mtx.Lock()
	defer h.mtx.Unlock()
	h.next++
	h.subs[h.next] = id
	return h.next
}

// Unsubscribe 取消订阅，重复取消无副作用
func (h *ChangeHub) Unsubscribe(handle entity.ChangeHandle) {
	h.mtx.Lock()
	defer h.mtx.Unlock()
	delete(h.subs, handle)
}

// Len 当前订阅数
func (h *ChangeHub) Len() int {
	h.mtx.Lock()
	defer h.mtx.Unlock()
	return len(h.subs)
}

// Notify 通知所有仍存活的订阅者，返回实际送达的数量
func (h *ChangeHub) Notify() int {
	h.mtx.Lock()
	ids := make([]string, 0, len(h.subs))
	for _, id := range h.subs {
		ids = append(ids, id)
	}
	h.mtx.Unlock()

	delivered := 0
	for _, id := range ids {
		if l := h.resolve(id); l != nil {
			l.OnMapChanged()
			delivered++
		}
	}
	return delivered
}

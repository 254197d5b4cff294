package container

import (
	"sync"
)

// IIncrementalItem 可放入增量数组的元素，记录自己在数组中的下标
type IIncrementalItem interface {
	Index() int
	SetIndex(index int)
}

// IncrementalItemBase 嵌入即可实现IIncrementalItem
type IncrementalItemBase struct {
	index int
}

func (b *IncrementalItemBase) Index() int {
	return b.index
}

func (b *IncrementalItemBase) SetIndex(index int) {
	b.index = index
}

// IncrementalArray 增量数组
// 功能：更新阶段可以并发地登记增删，准备阶段统一生效
// 说明：Data()在两次Prepare之间保持不变，可以安全地并行遍历
type IncrementalArray[T IIncrementalItem] struct {
	data   []T
	add    []T
	remove []T
	mtx    sync.Mutex
}

func NewIncrementalArray[T IIncrementalItem]() *IncrementalArray[T] {
	return &IncrementalArray[T]{
		data:   make([]T, 0),
		add:    make([]T, 0),
		remove: make([]T, 0),
	}
}

func (a *IncrementalArray[T]) Len() int {
	return len(a.data)
}

// Data 当前生效的元素，调用方不应修改
func (a *IncrementalArray[T]) Data() []T {
	return a.data
}

// Add 增加元素（等到Prepare时才会真正增加）
func (a *IncrementalArray[T]) Add(value T) {
	a.mtx.Lock()
	defer a.mtx.Unlock()
	a.add = append(a.add, value)
}

// Remove 删除元素（等到Prepare时才会真正删除）
func (a *IncrementalArray[T]) Remove(value T) {
	a.mtx.Lock()
	defer a.mtx.Unlock()
	a.remove = append(a.remove, value)
}

// Prepare 执行登记的增删
// 算法说明：
// 1. 删除：用末尾元素填补被删元素的位置，被删元素下标置为-1；重复删除或不在数组中的元素被忽略
// 2. 增加：追加到末尾
// 3. 被移动的元素同步更新下标
func (a *IncrementalArray[T]) Prepare() {
	a.mtx.Lock()
	defer a.mtx.Unlock()
	for _, x := range a.remove {
		i := x.Index()
		if i < 0 || i >= len(a.data) || any(a.data[i]) != any(x) {
			continue
		}
		last := len(a.data) - 1
		a.data[i] = a.data[last]
		a.data[i].SetIndex(i)
		a.data = a.data[:last]
		x.SetIndex(-1)
	}
	for _, x := range a.add {
		x.SetIndex(len(a.data))
		a.data = append(a.data, x)
	}
	a.add = a.add[:0]
	a.remove = a.remove[:0]
}

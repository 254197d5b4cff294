package container

import "container/heap"

type entry[T any] struct {
	value    T
	priority float64
	seq      uint64 // 入队序号，优先级相同时先入先出
}

type entryHeap[T any] []entry[T]

func (h entryHeap[T]) Len() int { return len(h) }

func (h entryHeap[T]) Less(i, j int) bool {
	if h[i].priority != h[j].priority {
		return h[i].priority < h[j].priority
	}
	return h[i].seq < h[j].seq
}

func (h entryHeap[T]) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *entryHeap[T]) Push(x any) { *h = append(*h, x.(entry[T])) }

func (h *entryHeap[T]) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	var zero entry[T]
	old[n-1] = zero
	*h = old[:n-1]
	return e
}

// PriorityQueue 优先队列（最小堆）
// 功能：按优先级数值从小到大出队，优先级相同的元素按入队顺序出队
// 说明：出队顺序只取决于入队序列，A*搜索结果因此可复现
type PriorityQueue[T any] struct {
	h   entryHeap[T]
	seq uint64
}

// NewPriorityQueue 创建优先队列
func NewPriorityQueue[T any]() *PriorityQueue[T] {
	return &PriorityQueue[T]{h: make(entryHeap[T], 0)}
}

func (q *PriorityQueue[T]) Len() int {
	return len(q.h)
}

// First 查看优先级数值最小的元素，不出队；队列为空时panic
func (q *PriorityQueue[T]) First() T {
	return q.h[0].value
}

// Push 入队
func (q *PriorityQueue[T]) Push(value T, priority float64) {
	heap.Push(&q.h, entry[T]{value: value, priority: priority, seq: q.seq})
	q.seq++
}

// Pop 出队，返回元素与其优先级；队列为空时panic
func (q *PriorityQueue[T]) Pop() (value T, priority float64) {
	e := heap.Pop(&q.h).(entry[T])
	return e.value, e.priority
}

package container_test

import (
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/tsinghua-fib-lab/gridroute-sim/utils/container"
)

type testItem struct {
	container.IncrementalItemBase
	name string
}

func names(a *container.IncrementalArray[*testItem]) []string {
	return lo.Map(a.Data(), func(x *testItem, _ int) string { return x.name })
}

func assertIndexes(t *testing.T, a *container.IncrementalArray[*testItem]) {
	t.Helper()
	for i, x := range a.Data() {
		assert.Equal(t, i, x.Index(), x.name)
	}
}

func TestIncrementalArray(t *testing.T) {
	a := container.NewIncrementalArray[*testItem]()
	x, y, z, w := &testItem{name: "x"}, &testItem{name: "y"}, &testItem{name: "z"}, &testItem{name: "w"}

	a.Add(x)
	a.Add(y)
	a.Add(z)
	assert.Zero(t, a.Len(), "adds apply at Prepare")
	a.Prepare()
	assert.Equal(t, []string{"x", "y", "z"}, names(a))
	assertIndexes(t, a)

	a.Remove(x)
	a.Add(w)
	a.Prepare()
	assert.Equal(t, []string{"z", "y", "w"}, names(a))
	assert.Equal(t, -1, x.Index())
	assertIndexes(t, a)

	// 重复删除与删除不存在的元素被忽略
	a.Remove(y)
	a.Remove(y)
	a.Remove(x)
	a.Prepare()
	assert.Equal(t, []string{"z", "w"}, names(a))
	assertIndexes(t, a)

	a.Remove(z)
	a.Remove(w)
	a.Prepare()
	assert.Empty(t, a.Data())
}

func TestPriorityQueue(t *testing.T) {
	q := container.NewPriorityQueue[string]()
	q.Push("c", 3)
	q.Push("a", 1)
	q.Push("b1", 2)
	q.Push("b2", 2)
	q.Push("b3", 2)
	assert.Equal(t, 5, q.Len())
	assert.Equal(t, "a", q.First())

	got := make([]string, 0)
	for q.Len() > 0 {
		v, p := q.Pop()
		got = append(got, v)
		assert.GreaterOrEqual(t, p, 1.0)
	}
	assert.Equal(t, []string{"a", "b1", "b2", "b3", "c"}, got)
	assert.Panics(t, func() { q.Pop() })
}

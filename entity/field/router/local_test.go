package router_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsinghua-fib-lab/gridroute-sim/entity/field"
	"github.com/tsinghua-fib-lab/gridroute-sim/entity/field/router"
	"github.com/tsinghua-fib-lab/gridroute-sim/schema"
)

func mustField(t *testing.T, rows ...string) *field.Field {
	t.Helper()
	f, err := field.New(&schema.Field{Name: "test", Rows: rows})
	require.NoError(t, err)
	return f
}

func assertContiguous(t *testing.T, f *field.Field, start schema.Coordinate, path []schema.Coordinate) {
	t.Helper()
	prev := start
	for _, c := range path {
		dx, dy := c.X-prev.X, c.Y-prev.Y
		assert.True(t, dx >= -1 && dx <= 1 && dy >= -1 && dy <= 1 && (dx != 0 || dy != 0), "%v -> %v", prev, c)
		assert.True(t, f.IsWalkable(c), "%v", c)
		prev = c
	}
}

func TestFindPathStraight(t *testing.T) {
	f := mustField(t, "..........")
	r := router.NewLocalRouter()
	start, goal := schema.Coordinate{X: 0, Y: 0}, schema.Coordinate{X: 9, Y: 0}
	path, ok := r.FindPath(f, start, goal, false)
	require.True(t, ok)
	require.Len(t, path, 9)
	assert.Equal(t, schema.Coordinate{X: 1, Y: 0}, path[0])
	assert.Equal(t, goal, path[8])
	assertContiguous(t, f, start, path)
}

func TestFindPathAvoidWalls(t *testing.T) {
	f := mustField(t,
		"..........",
		"..........",
		"..........",
	)
	r := router.NewLocalRouter()
	start, goal := schema.Coordinate{X: 0, Y: 0}, schema.Coordinate{X: 9, Y: 0}
	path, ok := r.FindPath(f, start, goal, true)
	require.True(t, ok)
	assert.Len(t, path, 9)
	assert.Equal(t, goal, path[len(path)-1])
	assertContiguous(t, f, start, path)
	// the middle row has no adjacent walls
	assert.Equal(t, 1, path[4].Y)
}

func TestFindPathNoCornerCut(t *testing.T) {
	f := mustField(t,
		".#",
		"..",
	)
	r := router.NewLocalRouter()
	path, ok := r.FindPath(f, schema.Coordinate{X: 0, Y: 0}, schema.Coordinate{X: 1, Y: 1}, false)
	require.True(t, ok)
	assert.Equal(t, []schema.Coordinate{{X: 0, Y: 1}, {X: 1, Y: 1}}, path)
}

func TestFindPathAroundWall(t *testing.T) {
	f := mustField(t,
		"..#..",
		"..#..",
		".....",
	)
	r := router.NewLocalRouter()
	start, goal := schema.Coordinate{X: 0, Y: 0}, schema.Coordinate{X: 4, Y: 0}
	path, ok := r.FindPath(f, start, goal, false)
	require.True(t, ok)
	assertContiguous(t, f, start, path)
	assert.Equal(t, goal, path[len(path)-1])
	assert.Contains(t, path, schema.Coordinate{X: 2, Y: 2})
}

func TestFindPathFailures(t *testing.T) {
	f := mustField(t,
		".#.",
		".#.",
	)
	r := router.NewLocalRouter()
	_, ok := r.FindPath(f, schema.Coordinate{X: 0, Y: 0}, schema.Coordinate{X: 2, Y: 0}, false)
	assert.False(t, ok)
	_, ok = r.FindPath(f, schema.Coordinate{X: 0, Y: 0}, schema.Coordinate{X: 1, Y: 0}, false)
	assert.False(t, ok)

	path, ok := r.FindPath(f, schema.Coordinate{X: 0, Y: 0}, schema.Coordinate{X: 0, Y: 0}, false)
	assert.True(t, ok)
	assert.Empty(t, path)

	searches, _ := r.Stats()
	assert.Equal(t, int64(3), searches)
}

func TestFindPathDeterministic(t *testing.T) {
	f := mustField(t,
		"........",
		"..##....",
		"..#.....",
		"........",
	)
	r := router.NewLocalRouter()
	start, goal := schema.Coordinate{X: 0, Y: 0}, schema.Coordinate{X: 7, Y: 3}
	first, ok := r.FindPath(f, start, goal, true)
	require.True(t, ok)
	for range 5 {
		again, ok := r.FindPath(f, start, goal, true)
		require.True(t, ok)
		assert.Equal(t, first, again)
	}
}

package task

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsinghua-fib-lab/gridroute-sim/output"
	"github.com/tsinghua-fib-lab/gridroute-sim/schema"
	"github.com/tsinghua-fib-lab/gridroute-sim/utils/config"
	"github.com/tsinghua-fib-lab/gridroute-sim/utils/input"
)

func testInput() *input.Input {
	departure := 1.0
	return &input.Input{
		Fields: []*schema.Field{{Name: "prontera", Rows: []string{"............"}}},
		Agents: []*schema.Agent{
			{
				ID:    "a",
				Home:  schema.Position{Field: "prontera", X: 0, Y: 0},
				Trips: []*schema.Trip{{End: schema.Position{Field: "prontera", X: 11, Y: 0}, Departure: &departure}},
			},
			// a经过b所在的格子
			{ID: "b", Home: schema.Position{Field: "prontera", X: 6, Y: 0}},
		},
	}
}

func TestRunLocal(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "route.db")
	c := config.Config{
		Control: config.Control{Step: config.ControlStep{Start: 0, Total: 60, Interval: 1}},
		Output:  config.Output{EventDB: dbPath},
	}
	ctx := NewContext("test", c, testInput(), nil, false)
	ctx.RunLocal()

	assert.Equal(t, int32(60), ctx.Clock().InternalStep)
	a := ctx.AgentManager().Get("a")
	assert.Equal(t, schema.Coordinate{X: 11, Y: 0}, a.Position())
	assert.False(t, ctx.RouteManager().Busy("a"))
	assert.Equal(t, 1, ctx.routeManager.Outcome().Done)
	assert.Zero(t, ctx.routeManager.Outcome().FailedTotal())

	// 重复关闭无副作用
	ctx.Close()

	db, err := output.OpenEventDB(dbPath)
	require.NoError(t, err)
	defer db.Close()
	evs, err := db.Events(context.Background(), "a")
	require.NoError(t, err)
	require.Len(t, evs, 1)
	assert.Equal(t, schema.RouteEventSuccess, evs[0].Status)
	assert.Equal(t, schema.Position{Field: "prontera", X: 11, Y: 0}, evs[0].Pos)
}

func TestContextWithoutEventDB(t *testing.T) {
	c := config.Config{Control: config.Control{Step: config.ControlStep{Total: 3, Interval: 1}}}
	ctx := NewContext("test", c, testInput(), nil, false)
	assert.Nil(t, ctx.eventDB)
	assert.Len(t, ctx.sink, 1)
	assert.NotNil(t, ctx.EventSink())
	assert.Equal(t, 15, ctx.RuntimeConfig().C.Route.Step)

	ctx.Init()
	ctx.prepare()
	ctx.update()
	assert.Equal(t, int32(1), ctx.Clock().InternalStep)
	assert.Equal(t, schema.Coordinate{X: 6, Y: 0}, ctx.AgentManager().Get("b").Position())
	assert.True(t, ctx.FieldManager().Get("prontera").IsCellOccupied(schema.Coordinate{X: 6, Y: 0}))
	ctx.Close()
}

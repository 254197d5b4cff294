package route

import (
	"context"
	"testing"

	"connectrpc.com/connect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsinghua-fib-lab/gridroute-sim/entity"
	"github.com/tsinghua-fib-lab/gridroute-sim/schema"
)

func pos(x, y int) schema.Position {
	return schema.Position{Field: "f", X: x, Y: y}
}

func TestManagerAddValidation(t *testing.T) {
	ctx := newTestContext(t, corridor)
	ctx.addAgent("a", xy(0, 0))

	_, err := ctx.rm.Add("missing", pos(3, 0), schema.RouteOptions{})
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = ctx.rm.Add("a", schema.Position{Field: "nowhere"}, schema.RouteOptions{})
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = ctx.rm.Add("a", pos(3, 0), schema.RouteOptions{MaxDistance: -1})
	assert.ErrorIs(t, err, ErrInvalidArgument)
	assert.False(t, ctx.rm.Busy("a"))
}

func TestManagerInterruptAndResume(t *testing.T) {
	ctx := newTestContext(t, corridor)
	a := ctx.addAgent("a", xy(0, 0))
	rm := ctx.rm

	long, err := rm.Add("a", pos(9, 0), schema.RouteOptions{})
	require.NoError(t, err)
	assert.True(t, rm.Busy("a"), "pending tasks count as busy")
	_, err = rm.GetOrError(long)
	assert.Error(t, err, "tasks join at Prepare")

	rm.Prepare()
	rm.Update(1)
	first := rm.Get(long)
	assert.Equal(t, StatusRunning, first.Status())
	assert.Equal(t, 1, first.Dispatches())

	// 新任务的终点就是当前位置，推进一次即结束
	short, err := rm.Add("a", pos(0, 0), schema.RouteOptions{})
	require.NoError(t, err)
	rm.Prepare()
	assert.Equal(t, StatusInterrupted, first.Status())
	second := rm.Get(short)
	assert.Equal(t, StatusRunning, second.Status())

	rm.Update(1)
	assert.Equal(t, StatusDone, second.Status())
	assert.Equal(t, StatusInterrupted, first.Status())
	assert.Equal(t, 1, first.Dispatches())

	ctx.setT(1)
	rm.Prepare()
	assert.Equal(t, StatusRunning, first.Status())
	assert.Nil(t, rm.Listener(short))
	assert.NotNil(t, rm.Listener(long))
	assert.Equal(t, 1, rm.Outcome().Done)
	assert.True(t, rm.Busy("a"))

	rm.Update(1)
	assert.Equal(t, 2, first.Dispatches())
	assert.Len(t, a.movers, 2)

	// 结束的任务仍可查询
	_, err = rm.GetOrError(short)
	assert.NoError(t, err)
}

func TestManagerReapsFailedTasks(t *testing.T) {
	ctx := newTestContext(t, ".#.", "###")
	ctx.addAgent("a", xy(0, 0))
	rm := ctx.rm

	id, err := rm.Add("a", pos(2, 0), schema.RouteOptions{})
	require.NoError(t, err)
	rm.Prepare()
	rm.Update(1)
	assert.Equal(t, StatusFailed, rm.Get(id).Status())

	rm.Prepare()
	assert.False(t, rm.Busy("a"))
	assert.Equal(t, map[string]int{"CANNOT_CALCULATE_ROUTE": 1}, rm.Outcome().Failed)
	assert.Equal(t, 1, rm.Outcome().FailedTotal())
	assert.False(t, rm.Get(id).subscribed)
	assert.Empty(t, rm.tasks.Data())
}

func TestManagerMapChange(t *testing.T) {
	ctx := newTestContext(t, corridor)
	a := ctx.addAgent("a", xy(0, 0))
	rm := ctx.rm

	id, err := rm.Add("a", pos(9, 0), schema.RouteOptions{})
	require.NoError(t, err)
	rm.Prepare()
	rm.Update(1)
	c := rm.Get(id)
	require.Equal(t, StageWalkingSolution, c.Stage())

	require.NoError(t, ctx.fm.Reload(&schema.Field{Name: "f", Rows: []string{corridor}}))
	ctx.fm.Prepare()
	assert.True(t, c.mapChanged.Load())

	// 单步移动仍在进行中，地图变化同样在下一个tick结束任务
	require.Equal(t, entity.StepRunning, a.stepStatus)
	ctx.setT(1)
	rm.Update(1)
	assert.Equal(t, StatusDone, c.Status())
	assert.Empty(t, ctx.sink.statuses())
}

func TestRouteServiceGetRoute(t *testing.T) {
	ctx := newTestContext(t, corridor)
	rm := ctx.rm

	dest := xy(4, 0)
	res, err := rm.GetRoute(context.Background(), connect.NewRequest(&GetRouteRequest{
		Field: "f",
		Start: xy(0, 0),
		Dest:  &dest,
	}))
	require.NoError(t, err)
	assert.True(t, res.Msg.Found)
	assert.Equal(t, []schema.Coordinate{xy(1, 0), xy(2, 0), xy(3, 0), xy(4, 0)}, res.Msg.Solution)

	res, err = rm.GetRoute(context.Background(), connect.NewRequest(&GetRouteRequest{Field: "f", Start: xy(0, 0)}))
	require.NoError(t, err)
	assert.True(t, res.Msg.Found)
	assert.Empty(t, res.Msg.Solution)

	_, err = rm.GetRoute(context.Background(), connect.NewRequest(&GetRouteRequest{Field: "nowhere"}))
	assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))
}

func TestRouteServiceTasks(t *testing.T) {
	ctx := newTestContext(t, corridor)
	ctx.addAgent("a", xy(0, 0))
	rm := ctx.rm
	bg := context.Background()

	_, err := rm.AddRouteTask(bg, connect.NewRequest(&AddRouteTaskRequest{AgentID: "missing", Destination: pos(1, 0)}))
	assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))

	added, err := rm.AddRouteTask(bg, connect.NewRequest(&AddRouteTaskRequest{AgentID: "a", Destination: pos(9, 0)}))
	require.NoError(t, err)
	id := added.Msg.TaskID
	rm.Prepare()
	rm.Update(1)

	got, err := rm.GetRouteTask(bg, connect.NewRequest(&GetRouteTaskRequest{TaskID: id}))
	require.NoError(t, err)
	assert.Equal(t, "RUNNING", got.Msg.Task.Status)
	assert.Equal(t, "a", got.Msg.Task.AgentID)

	_, err = rm.GetRouteTask(bg, connect.NewRequest(&GetRouteTaskRequest{TaskID: "missing"}))
	assert.Equal(t, connect.CodeNotFound, connect.CodeOf(err))

	all, err := rm.GetRouteTasks(bg, connect.NewRequest(&GetRouteTasksRequest{}))
	require.NoError(t, err)
	assert.Len(t, all.Msg.Tasks, 1)
	some, err := rm.GetRouteTasks(bg, connect.NewRequest(&GetRouteTasksRequest{TaskIDs: []string{id, "missing"}}))
	require.NoError(t, err)
	assert.Len(t, some.Msg.Tasks, 1)
	assert.Equal(t, []string{"missing"}, some.Msg.FailedIDs)

	_, err = rm.ResumeRouteTask(bg, connect.NewRequest(&ResumeRouteTaskRequest{TaskID: id}))
	assert.Equal(t, connect.CodeFailedPrecondition, connect.CodeOf(err))
	_, err = rm.InterruptRouteTask(bg, connect.NewRequest(&InterruptRouteTaskRequest{TaskID: id}))
	require.NoError(t, err)
	assert.Equal(t, StatusInterrupted, rm.Get(id).Status())
	_, err = rm.InterruptRouteTask(bg, connect.NewRequest(&InterruptRouteTaskRequest{TaskID: id}))
	assert.Equal(t, connect.CodeFailedPrecondition, connect.CodeOf(err))
	_, err = rm.ResumeRouteTask(bg, connect.NewRequest(&ResumeRouteTaskRequest{TaskID: id}))
	require.NoError(t, err)
	assert.Equal(t, StatusRunning, rm.Get(id).Status())
}

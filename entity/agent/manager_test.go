package agent

import (
	"context"
	"testing"

	"connectrpc.com/connect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsinghua-fib-lab/gridroute-sim/schema"
)

func TestManagerInit(t *testing.T) {
	ctx := newTestContext(t, 0, "....")
	ctx.am.Init([]*schema.Agent{
		{ID: "a", Home: home(0, 0)},
		{ID: "b", Home: home(3, 0)},
	})
	a, err := ctx.am.GetOrError("a")
	require.NoError(t, err)
	assert.Equal(t, "a", a.ID())
	_, err = ctx.am.GetOrError("c")
	assert.Error(t, err)
	assert.Panics(t, func() { ctx.am.Get("c") })

	assert.ElementsMatch(t, []schema.Position{home(0, 0), home(3, 0)}, ctx.am.Positions())

	assert.Panics(t, func() {
		ctx.am.Init([]*schema.Agent{{ID: "a", Home: home(0, 0)}, {ID: "a", Home: home(1, 0)}})
	})
}

func TestManagerOccupancy(t *testing.T) {
	ctx := newTestContext(t, 0, "....")
	ctx.am.Init([]*schema.Agent{{ID: "a", Home: home(2, 0)}})
	ctx.step()
	assert.True(t, ctx.fm.Get("f").IsCellOccupied(xy(2, 0)))
	assert.False(t, ctx.fm.Get("f").IsCellOccupied(xy(1, 0)))
}

func TestAgentService(t *testing.T) {
	ctx := newTestContext(t, 0, "....")
	ctx.am.Init([]*schema.Agent{{ID: "a", Home: home(0, 0)}})
	bg := context.Background()

	got, err := ctx.am.GetAgent(bg, connect.NewRequest(&GetAgentRequest{AgentID: "a"}))
	require.NoError(t, err)
	assert.Equal(t, home(0, 0), got.Msg.Agent.Position)
	assert.True(t, got.Msg.Agent.Ready)
	_, err = ctx.am.GetAgent(bg, connect.NewRequest(&GetAgentRequest{AgentID: "x"}))
	assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))

	_, err = ctx.am.AddAgent(bg, connect.NewRequest(&AddAgentRequest{}))
	assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))
	_, err = ctx.am.AddAgent(bg, connect.NewRequest(&AddAgentRequest{Agent: &schema.Agent{ID: "a", Home: home(1, 0)}}))
	assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))
	_, err = ctx.am.AddAgent(bg, connect.NewRequest(&AddAgentRequest{Agent: &schema.Agent{ID: "b", Home: schema.Position{Field: "g"}}}))
	assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))
	added, err := ctx.am.AddAgent(bg, connect.NewRequest(&AddAgentRequest{Agent: &schema.Agent{ID: "b", Home: home(3, 0)}}))
	require.NoError(t, err)
	assert.Equal(t, "b", added.Msg.AgentID)
	_, err = ctx.am.GetOrError("b")
	assert.Error(t, err, "new agents join at Prepare")

	ctx.step()
	all, err := ctx.am.GetAgents(bg, connect.NewRequest(&GetAgentsRequest{}))
	require.NoError(t, err)
	assert.Len(t, all.Msg.Agents, 2)
	some, err := ctx.am.GetAgents(bg, connect.NewRequest(&GetAgentsRequest{AgentIDs: []string{"b", "x"}}))
	require.NoError(t, err)
	require.Len(t, some.Msg.Agents, 1)
	assert.Equal(t, "b", some.Msg.Agents[0].ID)

	_, err = ctx.am.SetSchedule(bg, connect.NewRequest(&SetScheduleRequest{AgentID: "x"}))
	assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))
	_, err = ctx.am.SetSchedule(bg, connect.NewRequest(&SetScheduleRequest{
		AgentID: "b",
		Trips:   []*schema.Trip{{End: home(0, 0)}},
	}))
	require.NoError(t, err)
	ctx.step()
	b, err := ctx.am.get("b")
	require.NoError(t, err)
	assert.NotEmpty(t, b.tripTask)
	assert.True(t, ctx.rm.Busy("b"))
}

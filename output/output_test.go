package output

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsinghua-fib-lab/gridroute-sim/entity"
	"github.com/tsinghua-fib-lab/gridroute-sim/schema"
)

type recordingSink struct {
	events []schema.RouteEvent
}

func (s *recordingSink) Publish(ev schema.RouteEvent) {
	s.events = append(s.events, ev)
}

func event(task, agent, status string, x int, t float64) schema.RouteEvent {
	return schema.RouteEvent{
		TaskID:  task,
		AgentID: agent,
		Status:  status,
		Pos:     schema.Position{Field: "f", X: x, Y: 0},
		T:       t,
	}
}

func TestLogSink(t *testing.T) {
	hook := test.NewGlobal()
	defer hook.Reset()

	LogSink{Level: logrus.InfoLevel}.Publish(event("t1", "a", schema.RouteEventSuccess, 3, 1.5))
	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.InfoLevel, entry.Level)
	assert.Equal(t, "route success", entry.Message)
	assert.Equal(t, "t1", entry.Data["task"])
	assert.Equal(t, "a", entry.Data["agent"])
	assert.Equal(t, 3, entry.Data["x"])
	assert.Equal(t, "output", entry.Data["module"])
}

func TestMultiSink(t *testing.T) {
	a, b := &recordingSink{}, &recordingSink{}
	sink := MultiSink{a, nil, b}
	var _ entity.IEventSink = sink

	ev := event("t1", "a", schema.RouteEventStuck, 0, 2)
	sink.Publish(ev)
	assert.Equal(t, []schema.RouteEvent{ev}, a.events)
	assert.Equal(t, []schema.RouteEvent{ev}, b.events)
}

func TestEventDB(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events", "route.db")
	db, err := OpenEventDB(path)
	require.NoError(t, err)

	evs := []schema.RouteEvent{
		event("t1", "a", schema.RouteEventSuccess, 9, 12),
		event("t2", "b", schema.RouteEventStuck, 4, 20),
		event("t3", "a", schema.RouteEventStuck, 1, 31.5),
	}
	for _, ev := range evs {
		db.Publish(ev)
	}
	db.Flush()

	ctx := context.Background()
	all, err := db.Events(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, evs, all)
	onlyA, err := db.Events(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []schema.RouteEvent{evs[0], evs[2]}, onlyA)
	assert.Zero(t, db.Dropped())

	require.NoError(t, db.Close())
	require.NoError(t, db.Close())
	// 关闭后写入被忽略
	db.Publish(evs[0])
	db.Flush()

	db, err = OpenEventDB(path)
	require.NoError(t, err)
	defer db.Close()
	all, err = db.Events(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestEventDBEmptyPath(t *testing.T) {
	_, err := OpenEventDB("")
	assert.Error(t, err)
}

func TestEventDBCloseWhilePublishing(t *testing.T) {
	db, err := OpenEventDB(filepath.Join(t.TempDir(), "events.db"))
	require.NoError(t, err)

	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			for j := range 200 {
				db.Publish(event("t", "a", schema.RouteEventSuccess, j, float64(i)))
				if j%50 == 0 {
					db.Flush()
				}
			}
		}()
	}
	close(start)
	// 与写入并发关闭，关闭后的写入被忽略
	require.NoError(t, db.Close())
	wg.Wait()
	db.Publish(event("t", "a", schema.RouteEventSuccess, 0, 0))
	db.Flush()
}

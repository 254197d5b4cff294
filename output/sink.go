package output

import (
	"github.com/sirupsen/logrus"
	"github.com/tsinghua-fib-lab/gridroute-sim/entity"
	"github.com/tsinghua-fib-lab/gridroute-sim/schema"
)

// LogSink 把寻路事件写入日志
type LogSink struct {
	Level logrus.Level
}

func (s LogSink) Publish(ev schema.RouteEvent) {
	log.WithFields(logrus.Fields{
		"task":  ev.TaskID,
		"agent": ev.AgentID,
		"field": ev.Pos.Field,
		"x":     ev.Pos.X,
		"y":     ev.Pos.Y,
		"t":     ev.T,
	}).Log(s.Level, "route ", ev.Status)
}

// MultiSink 把寻路事件依次转发给多个接收方，nil接收方被跳过
type MultiSink []entity.IEventSink

func (s MultiSink) Publish(ev schema.RouteEvent) {
	for _, sink := range s {
		if sink != nil {
			sink.Publish(ev)
		}
	}
}

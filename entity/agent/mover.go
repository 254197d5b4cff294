package agent

import (
	"time"

	"github.com/tsinghua-fib-lab/gridroute-sim/entity"
	"github.com/tsinghua-fib-lab/gridroute-sim/schema"
)

const (
	resendInterval = time.Second // 智能体停下后重发指令的间隔
	maxResends     = 3           // 最多重发次数
)

// Mover 单步移动子任务
// 功能：向智能体发出一次移动指令，直到服务端确认移动终点为目标
// 算法说明：
// 1. 第一次Iterate发出指令
// 2. 移动终点等于目标时完成
// 3. 智能体停下超过1秒仍未确认时重发，重发3次后失败
type Mover struct {
	agent   *Agent
	target  schema.Coordinate
	started bool
	sentAt  time.Time
	resends int
}

func newMover(a *Agent, target schema.Coordinate) *Mover {
	return &Mover{agent: a, target: target}
}

func (m *Mover) Target() schema.Coordinate {
	return m.target
}

func (m *Mover) Iterate(now time.Time) entity.StepStatus {
	if !m.started {
		m.started = true
		m.send(now)
		return entity.StepRunning
	}
	if m.agent.PosTo() == m.target && m.agent.pending == nil {
		return entity.StepDone
	}
	if m.agent.pending != nil || m.agent.runtime.moving(now, m.agent.speed) || now.Sub(m.sentAt) < resendInterval {
		return entity.StepRunning
	}
	if m.resends >= maxResends {
		log.Debugf("agent %s: move to %v not confirmed after %d resends", m.agent.id, m.target, m.resends)
		return entity.StepFailed
	}
	m.resends++
	m.send(now)
	return entity.StepRunning
}

func (m *Mover) send(now time.Time) {
	m.sentAt = now
	m.agent.MoveTo(m.target)
}

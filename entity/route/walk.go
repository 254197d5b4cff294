package route

import (
	"math"
	"slices"
	"time"

	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/gridroute-sim/entity"
	"github.com/tsinghua-fib-lab/gridroute-sim/schema"
)

// walkSolution 沿路径行走阶段
// 算法说明：
// 1. 智能体已位于最后一个路点：到达
// 2. 首次进入本阶段：把计算路径时的起点放到路径最前面
// 3. 否则用智能体移动的起止点与路径对齐，裁剪已走过的部分，反向移动时重新计算路径
// 4. 根据剩余路点数决定：到达、提前一格到达（终点被占用）、卡住处理或调度下一步
func (c *Controller) walkSolution(now time.Time, f entity.IField) bool {
	if n := len(c.state.Solution); n > 0 && c.actor.Position() == c.state.Solution[n-1] {
		c.arrive()
		return false
	}

	if c.state.LastPos == nil {
		c.state.Solution = slices.Insert(c.state.Solution, 0, c.state.LastStartPos)
	} else if !c.reconcile(now) {
		log.Debugf("route %s: agent %s is moving backwards, recalculating", c.id, c.actor.ID())
		c.reset()
		return true
	}

	sol := c.state.Solution
	stepsLeft := len(sol)
	switch {
	case stepsLeft == 0:
		c.arrive()
		return false
	case stepsLeft == 2 && f.IsCellOccupied(sol[1]):
		log.Debugf("route %s: destination %v is occupied, stopping one cell early", c.id, sol[1])
		c.arrive()
		return false
	case c.state.LastPos != nil && *c.state.LastPos == sol[0] && now.Sub(c.state.TimeStep) > stepTimeout:
		return c.unstuck(now)
	default:
		return c.dispatch(now)
	}
}

// reconcile 将路径与智能体的实际移动对齐
// 返回：false表示智能体在沿路径反向移动
// 算法说明：
// 1. 分别为移动起点与移动终点找到路径上最近的路点下标bestFrom、bestTo
// 2. bestFrom == bestTo：裁掉该路点之前的部分
// 3. bestFrom < bestTo：按上次移动以来的时间与行走速度估计走过的路点，裁到该处（不超过bestTo）
func (c *Controller) reconcile(now time.Time) bool {
	sol := c.state.Solution
	bestFrom := closestIndex(sol, c.actor.PosFrom())
	bestTo := closestIndex(sol, c.actor.PosTo())
	switch {
	case bestFrom > bestTo:
		return false
	case bestFrom == bestTo:
		c.state.Solution = sol[bestFrom:]
	default:
		speed := c.actor.WalkSpeed()
		if speed <= 0 {
			speed = defaultWalkSpeed
		}
		walked := now.Sub(c.actor.TimeMove()).Seconds() / speed
		i := bestFrom
		for i < bestTo {
			d := stepLength(sol[i], sol[i+1])
			if walked < d {
				break
			}
			walked -= d
			i++
		}
		c.state.Solution = sol[i:]
	}
	return true
}

// unstuck 卡住处理
// 算法说明：
// 1. 步长衰减为floor(StepIndex*0.8)，仍为正则重新调度到衰减后的目标
// 2. 从正数衰减到0时，以最小步长再尝试一次
// 3. 已经以最小步长尝试过仍卡住：按配置瞬移脱困，发布stuck事件并失败
func (c *Controller) unstuck(now time.Time) bool {
	prev := c.state.StepIndex
	c.state.StepIndex = int(math.Floor(float64(prev) * stuckDecay))
	c.clampStepIndex()
	if c.state.StepIndex > 0 || prev > 0 {
		log.Debugf("route %s: no progress for %v, step index %d -> %d", c.id, stepTimeout, prev, c.state.StepIndex)
		c.state.TimeStep = now
		c.issue(c.target())
		return true
	}
	log.Warnf("route %s: agent %s is stuck at %v", c.id, c.actor.ID(), c.actor.Position())
	if c.actor.Config().TeleportAutoUnstuck {
		if !c.actor.Teleport() {
			log.Warnf("route %s: agent %s failed to teleport", c.id, c.actor.ID())
		}
	}
	c.publish(schema.RouteEventStuck)
	c.fail(CodeStuck, "stuck during route")
	return false
}

// dispatch 调度下一步
// 算法说明：
// 1. 对齐点相对上次调度发生变化时步长加1，不超过route_step-1
// 2. 步长不超过剩余路点数，目标路点为Solution[StepIndex+1]
// 3. 目标离对齐点超过max(10, route_step)格视为被强制移位，重新计算路径
// 4. 对齐点变化时重置计时，创建单步移动子任务
func (c *Controller) dispatch(now time.Time) bool {
	cur := c.state.Solution[0]
	moved := c.state.LastPos == nil || *c.state.LastPos != cur
	if c.state.LastPos != nil && moved {
		c.state.StepIndex = min(c.state.StepIndex+1, c.routeStep()-1)
	}
	c.clampStepIndex()
	target := c.target()
	// 连续路径上步长为StepIndex+1格，超出只可能是路径中有跳变
	if blockDistance(target, cur) > max(maxStepDistance, c.routeStep()) {
		log.Debugf("route %s: next step %v is too far from %v, recalculating", c.id, target, cur)
		c.reset()
		return true
	}
	if moved {
		c.state.TimeStep = now
	}
	c.state.LastPos = &cur
	c.issue(target)
	return true
}

// clampStepIndex 步长超出剩余路点时收缩
func (c *Controller) clampStepIndex() {
	c.state.StepIndex = lo.Clamp(c.state.StepIndex, 0, max(len(c.state.Solution)-2, 0))
}

// target 按当前步长取调度目标
func (c *Controller) target() schema.Coordinate {
	sol := c.state.Solution
	return sol[min(c.state.StepIndex+1, len(sol)-1)]
}

func (c *Controller) issue(target schema.Coordinate) {
	c.state.NextPos = &target
	c.mover = c.actor.NewStepMover(target)
	c.dispatches++
}

func (c *Controller) arrive() {
	if c.state.Constraints.NotifyUponArrival {
		log.Infof("agent %s: destination %v reached", c.actor.ID(), c.state.Destination)
	} else {
		log.Debugf("route %s: destination %v reached", c.id, c.state.Destination)
	}
	c.publish(schema.RouteEventSuccess)
	c.finish()
}

func (c *Controller) routeStep() int {
	if s := c.actor.Config().RouteStep; s > 0 {
		return s
	}
	return defaultRouteStep
}

// closestIndex 从头扫描路径，返回调整块距离最小的路点下标，连续lookaheadMisses个候选不改善时停止
func closestIndex(sol []schema.Coordinate, p schema.Coordinate) int {
	best, bestDist, misses := 0, math.Inf(1), 0
	for i, c := range sol {
		if d := adjustedBlockDistance(c, p); d < bestDist {
			best, bestDist, misses = i, d, 0
		} else if misses++; misses >= lookaheadMisses {
			break
		}
	}
	return best
}

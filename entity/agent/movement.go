package agent

import (
	"math"
	"time"

	"github.com/tsinghua-fib-lab/gridroute-sim/entity"
	"github.com/tsinghua-fib-lab/gridroute-sim/schema"
)

// runtime 智能体运行时数据
// 说明：该数据结构需要可以被直接复制，Track只会被整体替换，不会原地修改
type runtime struct {
	Field    string
	Ready    bool                // 位置是否已确认（瞬移后需要等待一步）
	From     schema.Coordinate   // 当前移动的起点
	To       schema.Coordinate   // 当前移动的终点
	Track    []schema.Coordinate // From之后直到To的逐格轨迹
	TimeMove time.Time           // 当前移动开始的时间
}

// command 尚未生效的移动指令
type command struct {
	target schema.Coordinate
	step   int32 // 生效的步数
}

// positionAt 按行走时间在轨迹上插值
// 返回：now时刻所在的格子，与该格子之后已经走过的时长（用于衔接下一次移动）
func (rt *runtime) positionAt(now time.Time, speed float64) (schema.Coordinate, time.Duration) {
	if len(rt.Track) == 0 {
		return rt.From, 0
	}
	walked := now.Sub(rt.TimeMove).Seconds() / speed
	cur := rt.From
	for _, next := range rt.Track {
		d := stepLength(cur, next)
		if walked < d {
			return cur, time.Duration(walked * speed * float64(time.Second))
		}
		walked -= d
		cur = next
	}
	return cur, 0
}

// moving now时刻是否仍在移动
func (rt *runtime) moving(now time.Time, speed float64) bool {
	pos, _ := rt.positionAt(now, speed)
	return pos != rt.To
}

// straightTrack 从from向target直线行走的轨迹
// 算法说明：
// 1. 每一步在两个方向上各向target靠近一格，对齐后沿直线前进
// 2. 遇到不可行走的格子或会切过墙角的斜向移动时截断
func straightTrack(f entity.IField, from, target schema.Coordinate) []schema.Coordinate {
	track := make([]schema.Coordinate, 0, blockDistance(from, target))
	cur := from
	for cur != target {
		next := schema.Coordinate{X: cur.X + sign(target.X-cur.X), Y: cur.Y + sign(target.Y-cur.Y)}
		if !f.IsWalkable(next) {
			break
		}
		if next.X != cur.X && next.Y != cur.Y &&
			(!f.IsWalkable(schema.Coordinate{X: next.X, Y: cur.Y}) || !f.IsWalkable(schema.Coordinate{X: cur.X, Y: next.Y})) {
			break
		}
		track = append(track, next)
		cur = next
	}
	return track
}

func stepLength(a, b schema.Coordinate) float64 {
	if a.X != b.X && a.Y != b.Y {
		return math.Sqrt2
	}
	return 1
}

func blockDistance(a, b schema.Coordinate) int {
	return max(abs(a.X-b.X), abs(a.Y-b.Y))
}

func sign(x int) int {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	default:
		return 0
	}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

package router

import (
	"math"
	"sync/atomic"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"github.com/tsinghua-fib-lab/gridroute-sim/entity"
	"github.com/tsinghua-fib-lab/gridroute-sim/schema"
	"github.com/tsinghua-fib-lab/gridroute-sim/utils/container"
)

var log = logrus.WithField("module", "router")

const (
	wallPenalty = 0.2 // avoidWalls时每个相邻墙格增加的代价
)

var (
	sqrt2   = math.Sqrt2
	offsets = [8]schema.Coordinate{
		{X: 0, Y: -1}, {X: 1, Y: 0}, {X: 0, Y: 1}, {X: -1, Y: 0},
		{X: 1, Y: -1}, {X: 1, Y: 1}, {X: -1, Y: 1}, {X: -1, Y: -1},
	}
)

// LocalRouter 本地栅格导航服务
// 功能：在单张栅格地图上进行8邻域A*寻路
type LocalRouter struct {
	searches atomic.Int64 // 累计搜索次数
	expanded atomic.Int64 // 累计展开节点数
}

// NewLocalRouter 创建本地导航服务
func NewLocalRouter() *LocalRouter {
	return &LocalRouter{}
}

// Stats 累计搜索次数与展开节点数
func (r *LocalRouter) Stats() (searches, expanded int64) {
	return r.searches.Load(), r.expanded.Load()
}

// FindPath 栅格路径规划
// 功能：计算从start到goal的可行走路径
// 参数：f-地图，start-起点，goal-终点，avoidWalls-是否远离墙体
// 返回：不含起点、含终点的路径，与是否找到
// 算法说明：
// 1. 起点或终点不可行走时直接失败，起终点相同时返回空路径
// 2. 8邻域扩展，直线代价1，对角代价√2，对角移动要求两侧正交格子均可行走（不切角）
// 3. avoidWalls时进入某格的代价额外加上该格相邻墙格数×wallPenalty
// 4. 启发函数为八方向距离，相同输入下扩展顺序固定，结果确定
func (r *LocalRouter) FindPath(f entity.IField, start, goal schema.Coordinate, avoidWalls bool) ([]schema.Coordinate, bool) {
	r.searches.Add(1)
	if !f.IsWalkable(start) || !f.IsWalkable(goal) {
		return nil, false
	}
	if start == goal {
		return []schema.Coordinate{}, true
	}
	w := f.Width()
	n := w * f.Height()
	index := func(c schema.Coordinate) int { return c.Y*w + c.X }

	gScore := make([]float64, n)
	for i := range gScore {
		gScore[i] = math.Inf(1)
	}
	parent := make([]int, n)
	for i := range parent {
		parent[i] = -1
	}
	closed := make([]bool, n)

	open := container.NewPriorityQueue[schema.Coordinate]()
	gScore[index(start)] = 0
	open.Push(start, octile(start, goal))
	expanded := int64(0)
	defer func() { r.expanded.Add(expanded) }()

	for open.Len() > 0 {
		cur, _ := open.Pop()
		ci := index(cur)
		if closed[ci] {
			continue
		}
		closed[ci] = true
		expanded++
		if cur == goal {
			return reconstruct(parent, ci, index(start), w), true
		}
		for i, d := range offsets {
			next := schema.Coordinate{X: cur.X + d.X, Y: cur.Y + d.Y}
			if !f.IsWalkable(next) {
				continue
			}
			cost := 1.0
			if i >= 4 {
				if !f.IsWalkable(schema.Coordinate{X: cur.X + d.X, Y: cur.Y}) ||
					!f.IsWalkable(schema.Coordinate{X: cur.X, Y: cur.Y + d.Y}) {
					continue
				}
				cost = sqrt2
			}
			ni := index(next)
			if closed[ni] {
				continue
			}
			if avoidWalls {
				cost += wallPenalty * float64(f.WallCount(next))
			}
			if g := gScore[ci] + cost; g < gScore[ni] {
				gScore[ni] = g
				parent[ni] = ci
				open.Push(next, g+octile(next, goal))
			}
		}
	}
	log.Debugf("no path on %s from %v to %v", f.Name(), start, goal)
	return nil, false
}

func reconstruct(parent []int, goal, start, width int) []schema.Coordinate {
	path := make([]schema.Coordinate, 0)
	for i := goal; i != start; i = parent[i] {
		path = append(path, schema.Coordinate{X: i % width, Y: i / width})
	}
	return lo.Reverse(path)
}

// octile 八方向距离
func octile(a, b schema.Coordinate) float64 {
	dx := math.Abs(float64(a.X - b.X))
	dy := math.Abs(float64(a.Y - b.Y))
	return math.Max(dx, dy) + (sqrt2-1)*math.Min(dx, dy)
}

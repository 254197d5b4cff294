package field

import (
	"errors"
	"fmt"
	"math"

	"github.com/tsinghua-fib-lab/gridroute-sim/schema"
)

// 8邻域，顺序固定以保证搜索结果确定
var neighborOffsets = [8]schema.Coordinate{
	{X: 0, Y: -1}, {X: 1, Y: 0}, {X: 0, Y: 1}, {X: -1, Y: 0},
	{X: 1, Y: -1}, {X: 1, Y: 1}, {X: -1, Y: 1}, {X: -1, Y: -1},
}

// Field 栅格地图
// 功能：保存可行走性位图与上一步的智能体占用快照
type Field struct {
	name     string
	width    int
	height   int
	walkable []bool

	occupied map[schema.Coordinate]struct{}
}

// New 根据数据创建栅格地图
// 说明：每一行长度必须相同，'.'为可行走格子
func New(pb *schema.Field) (*Field, error) {
	if pb.Name == "" {
		return nil, errors.New("field without name")
	}
	if len(pb.Rows) == 0 || len(pb.Rows[0]) == 0 {
		return nil, fmt.Errorf("field %s is empty", pb.Name)
	}
	f := &Field{
		name:     pb.Name,
		width:    len(pb.Rows[0]),
		height:   len(pb.Rows),
		occupied: make(map[schema.Coordinate]struct{}),
	}
	f.walkable = make([]bool, f.width*f.height)
	for y, row := range pb.Rows {
		if len(row) != f.width {
			return nil, fmt.Errorf("field %s row %d has width %d, want %d", pb.Name, y, len(row), f.width)
		}
		for x := 0; x < f.width; x++ {
			f.walkable[y*f.width+x] = row[x] == schema.CellWalkable
		}
	}
	return f, nil
}

func (f *Field) Name() string {
	return f.name
}

func (f *Field) Width() int {
	return f.width
}

func (f *Field) Height() int {
	return f.height
}

// Rows 按输入格式还原地图，不可行走格子统一为'#'
func (f *Field) Rows() []string {
	rows := make([]string, f.height)
	buf := make([]byte, f.width)
	for y := range f.height {
		for x := range f.width {
			if f.walkable[y*f.width+x] {
				buf[x] = schema.CellWalkable
			} else {
				buf[x] = schema.CellWall
			}
		}
		rows[y] = string(buf)
	}
	return rows
}

func (f *Field) InBounds(c schema.Coordinate) bool {
	return c.X >= 0 && c.Y >= 0 && c.X < f.width && c.Y < f.height
}

func (f *Field) IsWalkable(c schema.Coordinate) bool {
	return f.InBounds(c) && f.walkable[c.Y*f.width+c.X]
}

func (f *Field) IsCellOccupied(c schema.Coordinate) bool {
	_, ok := f.occupied[c]
	return ok
}

// WallCount 统计8邻域内不可行走的格子数，地图外视为墙
func (f *Field) WallCount(c schema.Coordinate) int {
	n := 0
	for _, d := range neighborOffsets {
		if !f.IsWalkable(schema.Coordinate{X: c.X + d.X, Y: c.Y + d.Y}) {
			n++
		}
	}
	return n
}

// ClosestWalkableSpot 查找最近的可行走格子
// 功能：c本身可行走时直接返回，否则按切比雪夫距离由近到远逐圈搜索，直到radius
// 返回：找到的格子与是否成功
// 算法说明：
// 1. 同一圈内按欧氏距离取最小者
// 2. 距离相同时取扫描顺序（先y后x）中的第一个
func (f *Field) ClosestWalkableSpot(c schema.Coordinate, radius int) (schema.Coordinate, bool) {
	if f.IsWalkable(c) {
		return c, true
	}
	for r := 1; r <= radius; r++ {
		best := schema.Coordinate{}
		bestDist := math.Inf(1)
		for dy := -r; dy <= r; dy++ {
			for dx := -r; dx <= r; dx++ {
				if max(abs(dx), abs(dy)) != r {
					continue
				}
				p := schema.Coordinate{X: c.X + dx, Y: c.Y + dy}
				if !f.IsWalkable(p) {
					continue
				}
				if d := math.Hypot(float64(dx), float64(dy)); d < bestDist {
					best, bestDist = p, d
				}
			}
		}
		if !math.IsInf(bestDist, 1) {
			return best, true
		}
	}
	return schema.Coordinate{}, false
}

// WalkableCells 所有可行走的格子（按行优先顺序）
func (f *Field) WalkableCells() []schema.Coordinate {
	cells := make([]schema.Coordinate, 0, len(f.walkable))
	for i, ok := range f.walkable {
		if ok {
			cells = append(cells, schema.Coordinate{X: i % f.width, Y: i / f.width})
		}
	}
	return cells
}

func (f *Field) setOccupied(occupied map[schema.Coordinate]struct{}) {
	f.occupied = occupied
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

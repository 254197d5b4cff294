package route

import (
	"math"

	"github.com/tsinghua-fib-lab/gridroute-sim/schema"
)

const (
	defaultWalkSpeed = 0.15 // 秒/格
	defaultRouteStep = 15
)

// blockDistance 切比雪夫距离
func blockDistance(a, b schema.Coordinate) int {
	return max(abs(a.X-b.X), abs(a.Y-b.Y))
}

// adjustedBlockDistance 对角按√2计的格子距离
func adjustedBlockDistance(a, b schema.Coordinate) float64 {
	dx := float64(abs(a.X - b.X))
	dy := float64(abs(a.Y - b.Y))
	return dx + dy - (2-math.Sqrt2)*math.Min(dx, dy)
}

// stepLength 相邻路点间的行走距离
func stepLength(a, b schema.Coordinate) float64 {
	return adjustedBlockDistance(a, b)
}

func euclidean(a, b schema.Coordinate) float64 {
	return math.Hypot(float64(a.X-b.X), float64(a.Y-b.Y))
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

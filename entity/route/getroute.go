package route

import (
	"github.com/tsinghua-fib-lab/gridroute-sim/entity"
	"github.com/tsinghua-fib-lab/gridroute-sim/schema"
)

// GetRoute 计算从start到dest的路径
// 功能：纯函数，不修改任何寻路任务的状态
// 参数：router-寻路器，f-地图，start-起点，dest-终点（为nil表示已在终点），avoidWalls-是否远离墙体，snapRadius-吸附半径
// 返回：不含起点的路径，与是否成功
// 算法说明：
// 1. dest为空时直接成功，返回空路径
// 2. 起点、终点分别吸附到snapRadius内最近的可行走格子，任一失败则失败
// 3. 调用寻路器，其结果即为最终结果
func GetRoute(
	router entity.IRouter,
	f entity.IField,
	start schema.Coordinate,
	dest *schema.Coordinate,
	avoidWalls bool,
	snapRadius int,
) ([]schema.Coordinate, bool) {
	if dest == nil {
		return []schema.Coordinate{}, true
	}
	from, ok := f.ClosestWalkableSpot(start, snapRadius)
	if !ok {
		log.Debugf("start %v on %s is not walkable", start, f.Name())
		return nil, false
	}
	to, ok := f.ClosestWalkableSpot(*dest, snapRadius)
	if !ok {
		log.Debugf("destination %v on %s is not walkable", *dest, f.Name())
		return nil, false
	}
	return router.FindPath(f, from, to, avoidWalls)
}

// 栅格仿真的数据定义，供输入、RPC与输出共用
package schema

import "fmt"

// Coordinate 栅格坐标
type Coordinate struct {
	X int `json:"x" yaml:"x" bson:"x"`
	Y int `json:"y" yaml:"y" bson:"y"`
}

func (c Coordinate) String() string {
	return fmt.Sprintf("(%d,%d)", c.X, c.Y)
}

// Position 地图名+坐标
type Position struct {
	Field string `json:"field" yaml:"field" bson:"field"`
	X     int    `json:"x" yaml:"x" bson:"x"`
	Y     int    `json:"y" yaml:"y" bson:"y"`
}

// XY 取出坐标部分
func (p Position) XY() Coordinate {
	return Coordinate{X: p.X, Y: p.Y}
}

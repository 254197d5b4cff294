package schema

const (
	CellWalkable = '.' // 可行走格子
	CellWall     = '#' // 墙
)

// Field 栅格地图数据
// 说明：Rows[y][x]为一个格子，'.'可行走，其余字符不可行走
type Field struct {
	Name string   `json:"name" yaml:"name" bson:"name"`
	Rows []string `json:"rows" yaml:"rows" bson:"rows"`
}

// Fields 地图集合
type Fields struct {
	Fields []*Field `json:"fields" yaml:"fields" bson:"fields"`
}

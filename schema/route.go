package schema

// RouteOptions 寻路任务的约束
type RouteOptions struct {
	MaxDistance       float64 `json:"max_distance,omitempty" yaml:"max_distance,omitempty" bson:"max_distance,omitempty"`                      // >=1为路点数，(0,1)为比例
	MaxTime           float64 `json:"max_time,omitempty" yaml:"max_time,omitempty" bson:"max_time,omitempty"`                                  // 秒
	DistFromGoal      int     `json:"dist_from_goal,omitempty" yaml:"dist_from_goal,omitempty" bson:"dist_from_goal,omitempty"`                // 提前停下的路点数
	PyDistFromGoal    float64 `json:"py_dist_from_goal,omitempty" yaml:"py_dist_from_goal,omitempty" bson:"py_dist_from_goal,omitempty"`       // 提前停下的欧氏距离
	AvoidWalls        *bool   `json:"avoid_walls,omitempty" yaml:"avoid_walls,omitempty" bson:"avoid_walls,omitempty"`                         // 为空时取智能体配置
	NotifyUponArrival bool    `json:"notify_upon_arrival,omitempty" yaml:"notify_upon_arrival,omitempty" bson:"notify_upon_arrival,omitempty"` // 到达时输出提示
}

const (
	RouteEventSuccess = "success"
	RouteEventStuck   = "stuck"
)

// RouteEvent 寻路结果事件（"route"钩子）
type RouteEvent struct {
	TaskID  string   `json:"task_id"`
	AgentID string   `json:"agent_id"`
	Status  string   `json:"status"`
	Pos     Position `json:"pos"`
	T       float64  `json:"t"`
}

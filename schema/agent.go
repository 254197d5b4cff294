package schema

// AgentConfig 智能体的寻路配置
// 功能：替代按前缀拼接的全局配置项，每个智能体持有一份显式配置
type AgentConfig struct {
	RouteAvoidWalls     *bool `json:"route_avoid_walls,omitempty" yaml:"route_avoid_walls,omitempty" bson:"route_avoid_walls,omitempty"`             // route_avoidWalls
	RouteStep           int   `json:"route_step,omitempty" yaml:"route_step,omitempty" bson:"route_step,omitempty"`                                  // route_step
	TeleportAutoUnstuck *bool `json:"teleport_auto_unstuck,omitempty" yaml:"teleport_auto_unstuck,omitempty" bson:"teleport_auto_unstuck,omitempty"` // teleportAuto_unstuck
}

// Trip 一次出行
type Trip struct {
	End       Position     `json:"end" yaml:"end" bson:"end"`
	Departure *float64     `json:"departure,omitempty" yaml:"departure,omitempty" bson:"departure,omitempty"` // 出发时间（秒），为空则紧接上一次出行
	WaitTime  *float64     `json:"wait_time,omitempty" yaml:"wait_time,omitempty" bson:"wait_time,omitempty"` // 上一次出行结束后的等待时间（秒）
	Options   RouteOptions `json:"options" yaml:"options,omitempty" bson:"options"`
}

// Agent 智能体数据
type Agent struct {
	ID        string      `json:"id" yaml:"id" bson:"id"`
	Home      Position    `json:"home" yaml:"home" bson:"home"`
	WalkSpeed float64     `json:"walk_speed,omitempty" yaml:"walk_speed,omitempty" bson:"walk_speed,omitempty"` // 秒/格
	Config    AgentConfig `json:"config" yaml:"config,omitempty" bson:"config"`
	Trips     []*Trip     `json:"trips,omitempty" yaml:"trips,omitempty" bson:"trips,omitempty"`
}

// Agents 智能体集合
type Agents struct {
	Agents []*Agent `json:"agents" yaml:"agents" bson:"agents"`
}

package config

// InputPath 指定输入数据来源的配置（MongoDB、文件系统）
// 功能：定义数据输入路径的配置结构，支持多种数据源
// 说明：File非空时优先从文件读取，否则从MongoDB的db.col读取
type InputPath struct {
	DB   string `yaml:"db"`             // 数据库名
	Col  string `yaml:"col"`            // 集合名
	File string `yaml:"file,omitempty"` // 文件路径（优先级高于MongoDB）
}

// GetDb 获取数据库名
func (p InputPath) GetDb() string {
	return p.DB
}

// GetColl 获取集合名
func (p InputPath) GetColl() string {
	return p.Col
}

// Input 指定模拟器所有输入数据的配置项
// 功能：定义仿真系统的所有输入数据配置
// 说明：包含地图与智能体两类数据
type Input struct {
	URI   string     `yaml:"uri"`             // MongoDB连接字符串
	Map   InputPath  `yaml:"map"`             // 栅格地图
	Agent *InputPath `yaml:"agent,omitempty"` // 智能体
}

// ControlStep 指定模拟器模拟时间范围和间隔的配置项
// 功能：定义仿真时间控制参数
// 说明：控制仿真的时间范围、步长和精度
type ControlStep struct {
	Start    int32   `yaml:"start"`    // 开始步数
	Total    int32   `yaml:"total"`    // 总步数
	Interval float64 `yaml:"interval"` // 每步的时间间隔
}

// ControlRoute 寻路控制的默认配置
// 功能：为所有智能体提供寻路相关配置的默认值，可被智能体自身配置覆盖
type ControlRoute struct {
	Step            int     `yaml:"step,omitempty"`             // 单次移动最多前进的路点数（route_step）
	AvoidWalls      *bool   `yaml:"avoid_walls,omitempty"`      // 规划路径时是否远离墙体（route_avoidWalls），缺省为true
	TeleportUnstuck bool    `yaml:"teleport_unstuck,omitempty"` // 卡住时是否瞬移脱困（teleportAuto_unstuck）
	SnapRadius      int     `yaml:"snap_radius,omitempty"`      // 起终点吸附到可行走格子的搜索半径
	WalkSpeed       float64 `yaml:"walk_speed,omitempty"`       // 默认行走速度（秒/格）
	CommandLag      int     `yaml:"command_lag,omitempty"`      // 模拟移动指令生效的最大延迟步数
}

// Control 模拟器控制配置
// 功能：定义仿真系统的核心控制参数
type Control struct {
	Step  ControlStep  `yaml:"step"`
	Route ControlRoute `yaml:"route,omitempty"`
}

// Output 输出配置
type Output struct {
	EventDB string `yaml:"event_db,omitempty"` // 寻路事件SQLite数据库路径，为空则仅输出到日志
}

// Config YAML配置文件的根结构
// 功能：定义整个仿真系统的配置结构
// 说明：包含输入、控制、输出等所有配置项
type Config struct {
	Input   Input   `yaml:"input"`            // 输入
	Control Control `yaml:"control"`          // 模拟过程控制
	Output  Output  `yaml:"output,omitempty"` // 输出
}

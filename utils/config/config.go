package config

const (
	defaultRouteStep  = 15   // 默认单次移动最多前进的路点数
	defaultSnapRadius = 1    // 默认吸附半径
	defaultWalkSpeed  = 0.15 // 默认行走速度（秒/格）
)

// RuntimeConfig 运行时配置
// 功能：存储仿真运行时的配置信息，缺省项已填充默认值
type RuntimeConfig struct {
	All Config  // 全部配置
	C   Control // 全局控制配置
}

// NewRuntimeConfig 根据配置初始化运行时配置
// 功能：创建运行时配置对象，填充寻路相关配置的默认值
// 参数：config-原始配置对象
// 返回：初始化的运行时配置指针
func NewRuntimeConfig(config Config) *RuntimeConfig {
	rc := &RuntimeConfig{}

	rc.All = config
	rc.C = config.Control
	if rc.C.Route.Step <= 0 {
		rc.C.Route.Step = defaultRouteStep
	}
	if rc.C.Route.SnapRadius <= 0 {
		rc.C.Route.SnapRadius = defaultSnapRadius
	}
	if rc.C.Route.WalkSpeed <= 0 {
		rc.C.Route.WalkSpeed = defaultWalkSpeed
	}
	if rc.C.Route.CommandLag < 0 {
		rc.C.Route.CommandLag = 0
	}
	if rc.C.Route.AvoidWalls == nil {
		avoid := true
		rc.C.Route.AvoidWalls = &avoid
	}
	return rc
}

// AvoidWalls 全局默认的远离墙体设置
func (rc *RuntimeConfig) AvoidWalls() bool {
	return rc.C.Route.AvoidWalls == nil || *rc.C.Route.AvoidWalls
}

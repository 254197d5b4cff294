package clock

import (
	"context"
	"net/http"

	"connectrpc.com/connect"
	"git.fiblab.net/sim/syncer/v3"
	"github.com/tsinghua-fib-lab/gridroute-sim/utils/jsoncodec"
)

const (
	// ClockServiceName 时钟服务名
	ClockServiceName = "gridroute.clock.v1.ClockService"
	// ClockServiceNowProcedure Now接口路径
	ClockServiceNowProcedure = "/" + ClockServiceName + "/Now"
)

type NowRequest struct{}

type NowResponse struct {
	T    float64 `json:"t"`    // 当前仿真时间（秒）
	Step int32   `json:"step"` // 当前步数
}

// Register 将ClockService注册到sidecar
// 功能：注册时钟服务的RPC处理器到sidecar中
// 参数：sidecar-sidecar实例
// 说明：使时钟服务可以通过RPC接口被外部访问，支持分布式仿真
func (c *Clock) Register(sidecar *syncer.Sidecar) {
	sidecar.Register(
		ClockServiceName,
		func(opts ...connect.HandlerOption) (pattern string, handler http.Handler) {
			return c.NewHandler(opts...)
		},
	)
}

// NewHandler 创建ClockService的HTTP处理器
func (c *Clock) NewHandler(opts ...connect.HandlerOption) (string, http.Handler) {
	mux := http.NewServeMux()
	mux.Handle(ClockServiceNowProcedure, jsoncodec.NewUnaryHandler(ClockServiceNowProcedure, c.GetNow, opts...))
	return "/" + ClockServiceName + "/", mux
}

// GetNow 获取当前仿真时间
// 功能：RPC接口，返回当前仿真时间与步数
// 说明：提供外部系统查询当前仿真时间的接口，支持分布式仿真的时间同步
func (c *Clock) GetNow(ctx context.Context, in *connect.Request[NowRequest]) (*connect.Response[NowResponse], error) {
	return connect.NewResponse(&NowResponse{
		T:    c.T,
		Step: c.InternalStep,
	}), nil
}

package route

import (
	"context"
	"errors"
	"net/http"

	"connectrpc.com/connect"
	"git.fiblab.net/sim/syncer/v3"
	"github.com/tsinghua-fib-lab/gridroute-sim/schema"
	"github.com/tsinghua-fib-lab/gridroute-sim/utils"
	"github.com/tsinghua-fib-lab/gridroute-sim/utils/jsoncodec"
)

const (
	RouteServiceName = "gridroute.route.v1.RouteService"

	RouteServiceGetRouteProcedure           = "/" + RouteServiceName + "/GetRoute"
	RouteServiceAddRouteTaskProcedure       = "/" + RouteServiceName + "/AddRouteTask"
	RouteServiceGetRouteTaskProcedure       = "/" + RouteServiceName + "/GetRouteTask"
	RouteServiceGetRouteTasksProcedure      = "/" + RouteServiceName + "/GetRouteTasks"
	RouteServiceInterruptRouteTaskProcedure = "/" + RouteServiceName + "/InterruptRouteTask"
	RouteServiceResumeRouteTaskProcedure    = "/" + RouteServiceName + "/ResumeRouteTask"
)

type GetRouteRequest struct {
	Field      string             `json:"field"`
	Start      schema.Coordinate  `json:"start"`
	Dest       *schema.Coordinate `json:"dest,omitempty"`
	AvoidWalls *bool              `json:"avoid_walls,omitempty"`
}

type GetRouteResponse struct {
	Found    bool                `json:"found"`
	Solution []schema.Coordinate `json:"solution"`
}

type AddRouteTaskRequest struct {
	AgentID     string              `json:"agent_id"`
	Destination schema.Position     `json:"destination"`
	Options     schema.RouteOptions `json:"options"`
}

type AddRouteTaskResponse struct {
	TaskID string `json:"task_id"`
}

type GetRouteTaskRequest struct {
	TaskID string `json:"task_id"`
}

type GetRouteTaskResponse struct {
	Task *TaskInfo `json:"task"`
}

type GetRouteTasksRequest struct {
	TaskIDs []string `json:"task_ids,omitempty"`
}

type GetRouteTasksResponse struct {
	Tasks     []*TaskInfo `json:"tasks"`
	FailedIDs []string    `json:"failed_ids,omitempty"`
	Outcome   Outcome     `json:"outcome"`
}

type InterruptRouteTaskRequest struct {
	TaskID string `json:"task_id"`
}

type InterruptRouteTaskResponse struct{}

type ResumeRouteTaskRequest struct {
	TaskID string `json:"task_id"`
}

type ResumeRouteTaskResponse struct{}

// Register 将RouteService注册到Sidecar
func (m *RouteManager) Register(sidecar *syncer.Sidecar) {
	sidecar.Register(
		RouteServiceName,
		func(opts ...connect.HandlerOption) (pattern string, handler http.Handler) {
			return m.NewHandler(opts...)
		},
	)
}

// NewHandler 创建RouteService的HTTP处理器
func (m *RouteManager) NewHandler(opts ...connect.HandlerOption) (string, http.Handler) {
	mux := http.NewServeMux()
	mux.Handle(RouteServiceGetRouteProcedure, jsoncodec.NewUnaryHandler(RouteServiceGetRouteProcedure, m.GetRoute, opts...))
	mux.Handle(RouteServiceAddRouteTaskProcedure, jsoncodec.NewUnaryHandler(RouteServiceAddRouteTaskProcedure, m.AddRouteTask, opts...))
	mux.Handle(RouteServiceGetRouteTaskProcedure, jsoncodec.NewUnaryHandler(RouteServiceGetRouteTaskProcedure, m.GetRouteTask, opts...))
	mux.Handle(RouteServiceGetRouteTasksProcedure, jsoncodec.NewUnaryHandler(RouteServiceGetRouteTasksProcedure, m.GetRouteTasks, opts...))
	mux.Handle(RouteServiceInterruptRouteTaskProcedure, jsoncodec.NewUnaryHandler(RouteServiceInterruptRouteTaskProcedure, m.InterruptRouteTask, opts...))
	mux.Handle(RouteServiceResumeRouteTaskProcedure, jsoncodec.NewUnaryHandler(RouteServiceResumeRouteTaskProcedure, m.ResumeRouteTask, opts...))
	return "/" + RouteServiceName + "/", mux
}

// GetRoute 计算路径
// 功能：不创建任务，直接返回从start到dest的路径
// 说明：avoid_walls缺省取全局配置
func (m *RouteManager) GetRoute(ctx context.Context, in *connect.Request[GetRouteRequest]) (*connect.Response[GetRouteResponse], error) {
	req := in.Msg
	f, err := m.ctx.FieldManager().GetOrError(req.Field)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}
	rc := m.ctx.RuntimeConfig()
	avoidWalls := rc.AvoidWalls()
	if req.AvoidWalls != nil {
		avoidWalls = *req.AvoidWalls
	}
	solution, ok := GetRoute(m.ctx.Router(), f, req.Start, req.Dest, avoidWalls, rc.C.Route.SnapRadius)
	if solution == nil {
		solution = []schema.Coordinate{}
	}
	return connect.NewResponse(&GetRouteResponse{Found: ok, Solution: solution}), nil
}

// AddRouteTask 为智能体新增寻路任务，返回任务ID
func (m *RouteManager) AddRouteTask(ctx context.Context, in *connect.Request[AddRouteTaskRequest]) (*connect.Response[AddRouteTaskResponse], error) {
	req := in.Msg
	id, err := m.Add(req.AgentID, req.Destination, req.Options)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}
	return connect.NewResponse(&AddRouteTaskResponse{TaskID: id}), nil
}

// GetRouteTask 获取寻路任务状态
func (m *RouteManager) GetRouteTask(ctx context.Context, in *connect.Request[GetRouteTaskRequest]) (*connect.Response[GetRouteTaskResponse], error) {
	c, err := m.GetOrError(in.Msg.TaskID)
	if err != nil {
		return nil, connect.NewError(connect.CodeNotFound, err)
	}
	return connect.NewResponse(&GetRouteTaskResponse{Task: c.Info()}), nil
}

// GetRouteTasks 批量获取寻路任务状态，task_ids为空时返回全部
func (m *RouteManager) GetRouteTasks(ctx context.Context, in *connect.Request[GetRouteTasksRequest]) (*connect.Response[GetRouteTasksResponse], error) {
	m.dataMutex.RLock()
	all := make([]*Controller, 0, len(m.data))
	for _, c := range m.data {
		all = append(all, c)
	}
	tasks, failed := utils.Find(m.data, all, in.Msg.TaskIDs)
	res := &GetRouteTasksResponse{FailedIDs: failed}
	for _, c := range tasks {
		res.Tasks = append(res.Tasks, c.Info())
	}
	m.dataMutex.RUnlock()
	res.Outcome = m.Outcome()
	return connect.NewResponse(res), nil
}

// InterruptRouteTask 中断正在运行的寻路任务
func (m *RouteManager) InterruptRouteTask(ctx context.Context, in *connect.Request[InterruptRouteTaskRequest]) (*connect.Response[InterruptRouteTaskResponse], error) {
	c, err := m.GetOrError(in.Msg.TaskID)
	if err != nil {
		return nil, connect.NewError(connect.CodeNotFound, err)
	}
	if c.Status() != StatusRunning {
		return nil, connect.NewError(connect.CodeFailedPrecondition, errors.New("route task is not running"))
	}
	c.Interrupt()
	return connect.NewResponse(&InterruptRouteTaskResponse{}), nil
}

// ResumeRouteTask 恢复被中断的寻路任务
// 说明：只能恢复智能体任务栈顶的任务，栈中更靠下的任务由管理器在上层任务结束后恢复
func (m *RouteManager) ResumeRouteTask(ctx context.Context, in *connect.Request[ResumeRouteTaskRequest]) (*connect.Response[ResumeRouteTaskResponse], error) {
	c, err := m.GetOrError(in.Msg.TaskID)
	if err != nil {
		return nil, connect.NewError(connect.CodeNotFound, err)
	}
	m.dataMutex.RLock()
	stack := m.stacks[c.actor.ID()]
	top := len(stack) > 0 && stack[len(stack)-1] == c
	m.dataMutex.RUnlock()
	if c.Status() != StatusInterrupted || !top {
		return nil, connect.NewError(connect.CodeFailedPrecondition, errors.New("route task cannot be resumed"))
	}
	c.Resume()
	return connect.NewResponse(&ResumeRouteTaskResponse{}), nil
}

package agent

import (
	"context"
	"errors"
	"net/http"

	"connectrpc.com/connect"
	"git.fiblab.net/general/common/v2/parallel"
	"git.fiblab.net/sim/syncer/v3"
	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/gridroute-sim/schema"
	"github.com/tsinghua-fib-lab/gridroute-sim/utils/jsoncodec"
)

const (
	AgentServiceName = "gridroute.agent.v1.AgentService"

	AgentServiceGetAgentProcedure    = "/" + AgentServiceName + "/GetAgent"
	AgentServiceGetAgentsProcedure   = "/" + AgentServiceName + "/GetAgents"
	AgentServiceAddAgentProcedure    = "/" + AgentServiceName + "/AddAgent"
	AgentServiceSetScheduleProcedure = "/" + AgentServiceName + "/SetSchedule"
)

type GetAgentRequest struct {
	AgentID string `json:"agent_id"`
}

type GetAgentResponse struct {
	Agent *Info `json:"agent"`
}

type GetAgentsRequest struct {
	AgentIDs []string `json:"agent_ids,omitempty"`
}

type GetAgentsResponse struct {
	Agents  []*Info       `json:"agents"`
	Runtime GlobalRuntime `json:"runtime"`
}

type AddAgentRequest struct {
	Agent *schema.Agent `json:"agent"`
}

type AddAgentResponse struct {
	AgentID string `json:"agent_id"`
}

type SetScheduleRequest struct {
	AgentID string         `json:"agent_id"`
	Trips   []*schema.Trip `json:"trips"`
}

type SetScheduleResponse struct{}

// Register 将Agent管理器注册到Sidecar
func (m *AgentManager) Register(sidecar *syncer.Sidecar) {
	sidecar.Register(
		AgentServiceName,
		func(opts ...connect.HandlerOption) (pattern string, handler http.Handler) {
			return m.NewHandler(opts...)
		},
	)
}

// NewHandler 创建AgentService的HTTP处理器
func (m *AgentManager) NewHandler(opts ...connect.HandlerOption) (string, http.Handler) {
	mux := http.NewServeMux()
	mux.Handle(AgentServiceGetAgentProcedure, jsoncodec.NewUnaryHandler(AgentServiceGetAgentProcedure, m.GetAgent, opts...))
	mux.Handle(AgentServiceGetAgentsProcedure, jsoncodec.NewUnaryHandler(AgentServiceGetAgentsProcedure, m.GetAgents, opts...))
	mux.Handle(AgentServiceAddAgentProcedure, jsoncodec.NewUnaryHandler(AgentServiceAddAgentProcedure, m.AddAgent, opts...))
	mux.Handle(AgentServiceSetScheduleProcedure, jsoncodec.NewUnaryHandler(AgentServiceSetScheduleProcedure, m.SetSchedule, opts...))
	return "/" + AgentServiceName + "/", mux
}

// GetAgent 获取智能体信息
func (m *AgentManager) GetAgent(ctx context.Context, in *connect.Request[GetAgentRequest]) (*connect.Response[GetAgentResponse], error) {
	a, err := m.get(in.Msg.AgentID)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}
	return connect.NewResponse(&GetAgentResponse{Agent: a.Info()}), nil
}

// GetAgents 批量获取智能体信息，agent_ids为空时返回全部
// 说明：不存在的ID被忽略
func (m *AgentManager) GetAgents(ctx context.Context, in *connect.Request[GetAgentsRequest]) (*connect.Response[GetAgentsResponse], error) {
	ids := lo.SliceToMap(in.Msg.AgentIDs, func(id string) (string, struct{}) { return id, struct{}{} })
	infos := parallel.GoMap(m.agents.Data(), func(a *Agent) *Info {
		if _, ok := ids[a.id]; len(ids) > 0 && !ok {
			return nil
		}
		return a.Info()
	})
	res := &GetAgentsResponse{
		Agents:  lo.Filter(infos, func(info *Info, _ int) bool { return info != nil }),
		Runtime: m.Snapshot(),
	}
	return connect.NewResponse(res), nil
}

// AddAgent 新增智能体（等到Prepare时才会真正加入）
func (m *AgentManager) AddAgent(ctx context.Context, in *connect.Request[AddAgentRequest]) (*connect.Response[AddAgentResponse], error) {
	if in.Msg.Agent == nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("no agent data"))
	}
	a, err := m.add(in.Msg.Agent)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}
	return connect.NewResponse(&AddAgentResponse{AgentID: a.id}), nil
}

// SetSchedule 修改智能体的时刻表，正在进行的trip对应的寻路任务不受影响
func (m *AgentManager) SetSchedule(ctx context.Context, in *connect.Request[SetScheduleRequest]) (*connect.Response[SetScheduleResponse], error) {
	a, err := m.get(in.Msg.AgentID)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}
	a.SetSchedule(in.Msg.Trips)
	return connect.NewResponse(&SetScheduleResponse{}), nil
}

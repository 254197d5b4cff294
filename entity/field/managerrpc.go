package field

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"connectrpc.com/connect"
	"git.fiblab.net/sim/syncer/v3"
	"github.com/tsinghua-fib-lab/gridroute-sim/schema"
	"github.com/tsinghua-fib-lab/gridroute-sim/utils/jsoncodec"
)

const (
	FieldServiceName = "gridroute.field.v1.FieldService"

	FieldServiceGetFieldProcedure    = "/" + FieldServiceName + "/GetField"
	FieldServiceReloadFieldProcedure = "/" + FieldServiceName + "/ReloadField"
)

type GetFieldRequest struct {
	Name string `json:"name"`
}

type GetFieldResponse struct {
	Field    *schema.Field       `json:"field"`
	Occupied []schema.Coordinate `json:"occupied"` // 上一步被占用的格子
}

type ReloadFieldRequest struct {
	Field *schema.Field `json:"field"`
}

type ReloadFieldResponse struct{}

// Register 将Field管理器注册到Sidecar
func (m *FieldManager) Register(sidecar *syncer.Sidecar) {
	sidecar.Register(
		FieldServiceName,
		func(opts ...connect.HandlerOption) (pattern string, handler http.Handler) {
			return m.NewHandler(opts...)
		},
	)
}

// NewHandler 创建FieldService的HTTP处理器
func (m *FieldManager) NewHandler(opts ...connect.HandlerOption) (string, http.Handler) {
	mux := http.NewServeMux()
	mux.Handle(FieldServiceGetFieldProcedure, jsoncodec.NewUnaryHandler(FieldServiceGetFieldProcedure, m.GetField, opts...))
	mux.Handle(FieldServiceReloadFieldProcedure, jsoncodec.NewUnaryHandler(FieldServiceReloadFieldProcedure, m.ReloadField, opts...))
	return "/" + FieldServiceName + "/", mux
}

// GetField 获取地图内容与占用快照
func (m *FieldManager) GetField(ctx context.Context, in *connect.Request[GetFieldRequest]) (*connect.Response[GetFieldResponse], error) {
	f, ok := m.data[in.Msg.Name]
	if !ok {
		return nil, connect.NewError(connect.CodeNotFound, fmt.Errorf("no field %s in field data", in.Msg.Name))
	}
	res := &GetFieldResponse{
		Field:    &schema.Field{Name: f.name, Rows: f.Rows()},
		Occupied: make([]schema.Coordinate, 0, len(f.occupied)),
	}
	for y := range f.height {
		for x := range f.width {
			if c := (schema.Coordinate{X: x, Y: y}); f.IsCellOccupied(c) {
				res.Occupied = append(res.Occupied, c)
			}
		}
	}
	return connect.NewResponse(res), nil
}

// ReloadField 替换地图内容，下一步Prepare时生效并通知所有正在寻路的任务
func (m *FieldManager) ReloadField(ctx context.Context, in *connect.Request[ReloadFieldRequest]) (*connect.Response[ReloadFieldResponse], error) {
	if in.Msg.Field == nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("no field data"))
	}
	if err := m.Reload(in.Msg.Field); err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}
	return connect.NewResponse(&ReloadFieldResponse{}), nil
}

// connect的JSON编解码器，使RPC服务可以直接使用普通Go结构体作为消息
package jsoncodec

import (
	"context"
	"encoding/json"

	"connectrpc.com/connect"
)

// Name 编解码器名称，对应Content-Type: application/json
const Name = "json"

type codec struct{}

func (codec) Name() string {
	return Name
}

func (codec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (codec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

// Option 替换默认的json（protojson）编解码器
func Option() connect.HandlerOption {
	return connect.WithCodec(codec{})
}

// NewUnaryHandler 创建使用JSON编解码的一元RPC处理器
func NewUnaryHandler[Req, Res any](
	procedure string,
	unary func(context.Context, *connect.Request[Req]) (*connect.Response[Res], error),
	opts ...connect.HandlerOption,
) *connect.Handler {
	return connect.NewUnaryHandler(procedure, unary, append(opts, Option())...)
}

// ClientOption 客户端使用的JSON编解码器
func ClientOption() connect.ClientOption {
	return connect.WithCodec(codec{})
}

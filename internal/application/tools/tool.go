// Package tools 实现命名工具的注册与调用
// 内置工具由服务自身提供，外部工具经 HTTP 转发
package tools

import (
	"context"
	"encoding/json"
	"errors"
)

// ErrToolNotFound 工具未注册
var ErrToolNotFound = errors.New("tool not found")

// Tool 命名工具
// tools/call 与 JSON-RPC 未知方法均按名称路由到此接口
type Tool interface {
	Name() string
	Description() string
	Invoke(ctx context.Context, args json.RawMessage) (any, error)
}

// Descriptor 工具描述符，tools/list 返回项
type Descriptor struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// FuncTool 以函数实现的内置工具
type FuncTool struct {
	name        string
	description string
	fn          func(ctx context.Context, args json.RawMessage) (any, error)
}

// NewFuncTool 创建内置工具
func NewFuncTool(name, description string, fn func(ctx context.Context, args json.RawMessage) (any, error)) *FuncTool {
	return &FuncTool{name: name, description: description, fn: fn}
}

func (t *FuncTool) Name() string        { return t.name }
func (t *FuncTool) Description() string { return t.description }

func (t *FuncTool) Invoke(ctx context.Context, args json.RawMessage) (any, error) {
	return t.fn(ctx, args)
}

var _ Tool = (*FuncTool)(nil)

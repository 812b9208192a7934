package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"log/slog"

	"github.com/go-resty/resty/v2"

	"github.com/samlazrak/LocalContextMCP/internal/infrastructure/config"
	"github.com/samlazrak/LocalContextMCP/internal/infrastructure/log"
)

// ExternalTool HTTP 转发工具
// 参数原样透传给目标端点，结果与错误不做改写
type ExternalTool struct {
	name        string
	description string
	url         string
	client      *resty.Client
	logger      *slog.Logger
}

// NewExternalTool 创建外部工具
func NewExternalTool(endpoint config.ToolEndpoint, client *resty.Client) *ExternalTool {
	return &ExternalTool{
		name:        endpoint.Name,
		description: endpoint.Description,
		url:         endpoint.URL,
		client:      client,
		logger:      log.NewModuleLogger("tools", "external"),
	}
}

func (t *ExternalTool) Name() string        { return t.name }
func (t *ExternalTool) Description() string { return t.description }

// Invoke 将参数 POST 给目标端点并回传其 JSON 结果
func (t *ExternalTool) Invoke(ctx context.Context, args json.RawMessage) (any, error) {
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}

	resp, err := t.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody([]byte(args)).
		Post(t.url)
	if err != nil {
		return nil, fmt.Errorf("tool %s unreachable: %w", t.name, err)
	}

	if resp.IsError() {
		// 错误体原样转发给调用方
		return nil, fmt.Errorf("tool %s returned status %d: %s", t.name, resp.StatusCode(), resp.String())
	}

	var result any
	if len(resp.Body()) > 0 {
		if err := json.Unmarshal(resp.Body(), &result); err != nil {
			return nil, fmt.Errorf("tool %s returned invalid JSON: %w", t.name, err)
		}
	}

	t.logger.Debug("External tool invoked", "name", t.name, "status", resp.StatusCode())
	return result, nil
}

var _ Tool = (*ExternalTool)(nil)

// RegisterExternalTools 按清单批量注册外部工具
func RegisterExternalTools(registry *Registry, manifest *config.ToolsManifest, cfg *config.ToolsConfig) error {
	if manifest == nil || len(manifest.Tools) == 0 {
		return nil
	}

	timeout := cfg.InvokeTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	client := resty.New().
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json")

	for _, endpoint := range manifest.Tools {
		if err := registry.Register(NewExternalTool(endpoint, client)); err != nil {
			return fmt.Errorf("failed to register tool %s: %w", endpoint.Name, err)
		}
	}
	return nil
}

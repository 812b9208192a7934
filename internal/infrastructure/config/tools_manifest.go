package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ToolEndpoint 外部工具端点定义
// 调度器将 tools/call 与未知方法名路由到这里声明的工具
type ToolEndpoint struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	URL         string `yaml:"url"`
}

// ToolsManifest 外部工具清单
type ToolsManifest struct {
	Tools []ToolEndpoint `yaml:"tools"`
}

// LoadToolsManifest 从 YAML 文件加载外部工具清单
// path 为空时返回空清单
func LoadToolsManifest(path string) (*ToolsManifest, error) {
	if path == "" {
		return &ToolsManifest{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read tools manifest: %w", err)
	}

	var manifest ToolsManifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("failed to parse tools manifest: %w", err)
	}

	for i, tool := range manifest.Tools {
		if tool.Name == "" {
			return nil, fmt.Errorf("tools manifest entry %d: name is required", i)
		}
		if tool.URL == "" {
			return nil, fmt.Errorf("tool %q: url is required", tool.Name)
		}
	}

	return &manifest, nil
}

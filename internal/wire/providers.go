package wire

import (
	appMemory "github.com/samlazrak/LocalContextMCP/internal/application/memory"
	"github.com/samlazrak/LocalContextMCP/internal/infrastructure/config"
	"github.com/samlazrak/LocalContextMCP/internal/infrastructure/vector"
)

// ProvideVectorIndex 按配置选择向量检索后端
// sqlite 后端返回 nil，检索路径退回仓储内的精确余弦扫描
func ProvideVectorIndex(searchCfg *config.SearchConfig, embeddingCfg *config.EmbeddingConfig) (appMemory.VectorIndex, error) {
	if searchCfg.Backend != config.VectorBackendQdrant {
		return nil, nil
	}

	index, err := vector.NewQdrantIndex(searchCfg, embeddingCfg)
	if err != nil {
		return nil, err
	}
	return index, nil
}

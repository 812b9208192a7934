package memory

import (
	"github.com/google/wire"

	"github.com/samlazrak/LocalContextMCP/internal/infrastructure/config"
	"github.com/samlazrak/LocalContextMCP/internal/infrastructure/tokenizer"
)

// ProvideTokenCounter 按分块单位提供 Token 计数器
// char 模式无需计数器，返回 nil
func ProvideTokenCounter(cfg *config.ChunkingConfig) (TokenCounter, error) {
	if cfg.SizeUnit != config.SizeUnitTokens {
		return nil, nil
	}
	return tokenizer.GetTiktokenCounter()
}

// ProviderSet 记忆应用层 ProviderSet
var ProviderSet = wire.NewSet(
	ProvideTokenCounter,
	NewChunker,
	NewPipeline,
	NewSearchService,
	NewRetentionSweeper,
	NewIngestHandler,
)

package tools

import "github.com/google/wire"

// ProviderSet 工具应用层 ProviderSet
var ProviderSet = wire.NewSet(
	NewRegistry,
)

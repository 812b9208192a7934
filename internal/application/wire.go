package application

import (
	"github.com/google/wire"

	"github.com/samlazrak/LocalContextMCP/internal/application/memory"
	"github.com/samlazrak/LocalContextMCP/internal/application/tools"
)

// ProviderSet Application 层总 ProviderSet
var ProviderSet = wire.NewSet(
	memory.ProviderSet,
	tools.ProviderSet,
)

package interfaces

import (
	"github.com/google/wire"
	"github.com/samlazrak/LocalContextMCP/internal/interfaces/http"
	"github.com/samlazrak/LocalContextMCP/internal/interfaces/jsonrpc"
	"github.com/samlazrak/LocalContextMCP/internal/interfaces/mcp"
)

// ProviderSet Interfaces 层总 ProviderSet
var ProviderSet = wire.NewSet(
	http.ProviderSet,
	jsonrpc.NewDispatcher,
	mcp.ProviderSet,
)

package infrastructure

import (
	"github.com/google/wire"

	"github.com/samlazrak/LocalContextMCP/internal/infrastructure/config"
	"github.com/samlazrak/LocalContextMCP/internal/infrastructure/embedding"
	"github.com/samlazrak/LocalContextMCP/internal/infrastructure/storage"
	"github.com/samlazrak/LocalContextMCP/internal/infrastructure/watcher"
	"github.com/samlazrak/LocalContextMCP/internal/infrastructure/websocket"
)

// ProviderSet Infrastructure 层总 ProviderSet
var ProviderSet = wire.NewSet(
	config.ProviderSet,
	storage.ProviderSet,
	embedding.NewClient,
	watcher.ProviderSet,
	websocket.ProviderSet,
)

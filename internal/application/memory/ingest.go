package memory

import (
	"context"
	"fmt"
	"os"

	"log/slog"

	"github.com/samlazrak/LocalContextMCP/internal/domain/events"
	"github.com/samlazrak/LocalContextMCP/internal/infrastructure/log"
)

// maxIngestFileSize 单个导入文件上限，超过则跳过
const maxIngestFileSize = 8 << 20

// IngestHandler 消费文件导入事件，将文件内容整篇入库
type IngestHandler struct {
	pipeline *Pipeline
	logger   *slog.Logger
}

// NewIngestHandler 创建导入事件处理器
func NewIngestHandler(pipeline *Pipeline) *IngestHandler {
	return &IngestHandler{
		pipeline: pipeline,
		logger:   log.NewModuleLogger("memory", "ingest"),
	}
}

// Register 订阅导入事件，返回取消订阅函数
func (h *IngestHandler) Register(bus events.EventBus) func() {
	return bus.Subscribe(events.IngestFileDetected, h)
}

// HandleEvent 读取文件并走导入流水线
func (h *IngestHandler) HandleEvent(event events.Event) error {
	ingest, ok := event.(*events.IngestFileEvent)
	if !ok {
		return fmt.Errorf("unexpected event type %s", event.Type())
	}

	if ingest.FileSize > maxIngestFileSize {
		h.logger.Warn("Skipping oversized ingest file",
			"path", ingest.FilePath,
			"size", ingest.FileSize,
		)
		return nil
	}

	data, err := os.ReadFile(ingest.FilePath)
	if err != nil {
		return fmt.Errorf("failed to read ingest file: %w", err)
	}
	if len(data) == 0 {
		h.logger.Debug("Skipping empty ingest file", "path", ingest.FilePath)
		return nil
	}

	result, err := h.pipeline.IngestDocument(context.Background(), ingest.SessionID, string(data))
	if err != nil {
		return fmt.Errorf("failed to ingest %s: %w", ingest.FilePath, err)
	}

	h.logger.Info("Ingested file",
		"path", ingest.FilePath,
		"session_id", ingest.SessionID,
		"chunks", result.ChunkCount,
	)
	return nil
}

var _ events.Handler = (*IngestHandler)(nil)

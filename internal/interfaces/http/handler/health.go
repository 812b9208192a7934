package handler

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/samlazrak/LocalContextMCP/internal/infrastructure/embedding"
)

const healthProbeTimeout = 5 * time.Second

// HealthHandler 健康检查处理器
// 数据库与向量化端点两个信号互相独立，一方故障不掩盖另一方
type HealthHandler struct {
	db       *sql.DB
	embedder *embedding.Client
}

// NewHealthHandler 创建健康检查处理器
func NewHealthHandler(db *sql.DB, embedder *embedding.Client) *HealthHandler {
	return &HealthHandler{
		db:       db,
		embedder: embedder,
	}
}

// componentStatus 单组件状态
type componentStatus struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// Health 返回各组件健康状态
// @Summary 健康检查
// @Tags 运维
// @Produce json
// @Success 200 {object} map[string]any
// @Router /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthProbeTimeout)
	defer cancel()

	components := gin.H{
		"database": h.checkDatabase(ctx),
		"llm":      h.checkEmbedding(ctx),
	}

	status := "ok"
	for _, component := range components {
		if component.(componentStatus).Status != "ok" {
			status = "degraded"
			break
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status":     status,
		"components": components,
	})
}

// checkDatabase 数据库连通性探测
func (h *HealthHandler) checkDatabase(ctx context.Context) componentStatus {
	if err := h.db.PingContext(ctx); err != nil {
		return componentStatus{Status: "unavailable", Error: err.Error()}
	}
	return componentStatus{Status: "ok"}
}

// checkEmbedding 向量化端点探测
func (h *HealthHandler) checkEmbedding(ctx context.Context) componentStatus {
	if err := h.embedder.CheckConnectivity(ctx); err != nil {
		return componentStatus{Status: "unavailable", Error: err.Error()}
	}
	return componentStatus{Status: "ok"}
}

// Package handler REST 请求处理器
package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	appMemory "github.com/samlazrak/LocalContextMCP/internal/application/memory"
	domainMemory "github.com/samlazrak/LocalContextMCP/internal/domain/memory"
	"github.com/samlazrak/LocalContextMCP/internal/interfaces/http/response"
)

const defaultRecentLimit = 10

// MemoryHandler 记忆存取处理器
type MemoryHandler struct {
	pipeline *appMemory.Pipeline
	search   *appMemory.SearchService
}

// NewMemoryHandler 创建记忆存取处理器
func NewMemoryHandler(pipeline *appMemory.Pipeline, search *appMemory.SearchService) *MemoryHandler {
	return &MemoryHandler{
		pipeline: pipeline,
		search:   search,
	}
}

// StoreMessageRequest POST /message 请求体
type StoreMessageRequest struct {
	SessionID string `json:"session_id" binding:"required"`
	UserID    string `json:"user_id"`
	Role      string `json:"role" binding:"required"`
	Content   string `json:"content" binding:"required"`
}

// StoreMessage 存储消息并同步建立索引
// @Summary 存储消息
// @Tags 记忆
// @Accept json
// @Produce json
// @Param request body StoreMessageRequest true "消息"
// @Success 200 {object} response.Response
// @Router /message [post]
func (h *MemoryHandler) StoreMessage(c *gin.Context) {
	var req StoreMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid_params", err.Error())
		return
	}

	result, err := h.pipeline.StoreMessage(c.Request.Context(), req.SessionID, req.UserID, req.Role, req.Content)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, gin.H{
		"message_id":  result.Message.ID,
		"chunk_count": result.ChunkCount,
	})
}

// StoreChunkRequest POST /context_chunk 请求体
type StoreChunkRequest struct {
	SessionID   string    `json:"session_id" binding:"required"`
	ChunkIndex  int       `json:"chunk_index"`
	Content     string    `json:"content" binding:"required"`
	Embedding   []float32 `json:"embedding"`
	MessageID   string    `json:"message_id"`
	StartOffset int       `json:"start_offset"`
	EndOffset   int       `json:"end_offset"`
}

// StoreChunk 存储调用方自带向量的分块
// @Summary 存储分块
// @Tags 记忆
// @Accept json
// @Produce json
// @Param request body StoreChunkRequest true "分块"
// @Success 200 {object} response.Response
// @Router /context_chunk [post]
func (h *MemoryHandler) StoreChunk(c *gin.Context) {
	var req StoreChunkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid_params", err.Error())
		return
	}

	chunkID, err := h.pipeline.StoreChunk(c.Request.Context(), &domainMemory.Chunk{
		SessionID:   req.SessionID,
		ChunkIndex:  req.ChunkIndex,
		Content:     req.Content,
		Embedding:   req.Embedding,
		MessageID:   req.MessageID,
		StartOffset: req.StartOffset,
		EndOffset:   req.EndOffset,
	})
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, gin.H{"chunk_id": chunkID})
}

// RecentChunks 按创建时间倒序返回会话最近的分块
// @Summary 最近分块
// @Tags 记忆
// @Produce json
// @Param session_id query string true "会话 ID"
// @Param limit query int false "返回条数，默认 10"
// @Success 200 {object} response.Response
// @Router /recent_chunks [get]
func (h *MemoryHandler) RecentChunks(c *gin.Context) {
	sessionID := c.Query("session_id")
	if sessionID == "" {
		response.Error(c, http.StatusBadRequest, "invalid_params", "session_id is required")
		return
	}

	limit := defaultRecentLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			response.Error(c, http.StatusBadRequest, "invalid_params", "limit must be an integer")
			return
		}
		limit = parsed
	}

	chunks, err := h.pipeline.RecentChunks(c.Request.Context(), sessionID, limit)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, gin.H{
		"chunks": chunks,
		"count":  len(chunks),
	})
}

// SemanticSearchRequest POST /semantic_search 请求体
type SemanticSearchRequest struct {
	SessionID string `json:"session_id" binding:"required"`
	Query     string `json:"query" binding:"required"`
	TopK      *int   `json:"top_k"`
}

// SemanticSearch 会话内相似度检索
// @Summary 语义检索
// @Tags 记忆
// @Accept json
// @Produce json
// @Param request body SemanticSearchRequest true "查询"
// @Success 200 {object} response.Response
// @Router /semantic_search [post]
func (h *MemoryHandler) SemanticSearch(c *gin.Context) {
	var req SemanticSearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid_params", err.Error())
		return
	}

	topK := 5
	if req.TopK != nil {
		topK = *req.TopK
	}

	results, err := h.search.Search(c.Request.Context(), req.SessionID, req.Query, topK)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, gin.H{
		"results": results,
		"count":   len(results),
	})
}

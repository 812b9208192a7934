package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// StoreMessageInput 消息入库工具输入
type StoreMessageInput struct {
	SessionID string `json:"session_id" jsonschema:"Session the message belongs to (required)"`
	UserID    string `json:"user_id,omitempty" jsonschema:"Author of the message"`
	Role      string `json:"role" jsonschema:"Message role: user, assistant, or system (required)"`
	Content   string `json:"content" jsonschema:"Message text (required)"`
}

// StoreMessageOutput 消息入库工具输出
type StoreMessageOutput struct {
	MessageID  string `json:"message_id" jsonschema:"ID of the stored message"`
	ChunkCount int    `json:"chunk_count" jsonschema:"Number of chunks persisted for this message"`
}

// storeMessageTool 消息入库工具实现
func (s *MCPServer) storeMessageTool(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input StoreMessageInput,
) (*mcp.CallToolResult, StoreMessageOutput, error) {
	var output StoreMessageOutput

	result, err := s.pipeline.StoreMessage(ctx, input.SessionID, input.UserID, input.Role, input.Content)
	if err != nil {
		return nil, output, fmt.Errorf("store message failed: %w", err)
	}

	output.MessageID = result.Message.ID
	output.ChunkCount = result.ChunkCount
	return nil, output, nil
}

// RecentChunksInput 最近片段工具输入
type RecentChunksInput struct {
	SessionID string `json:"session_id" jsonschema:"Session to read from (required)"`
	Limit     int    `json:"limit,omitempty" jsonschema:"Maximum number of chunks, defaults to 10"`
}

// ChunkView 片段视图（面向工具调用方的精简字段）
type ChunkView struct {
	ChunkID     string `json:"chunk_id" jsonschema:"Chunk ID"`
	MessageID   string `json:"message_id,omitempty" jsonschema:"Source message ID"`
	ChunkIndex  int    `json:"chunk_index" jsonschema:"Position of the chunk within its message"`
	Content     string `json:"content" jsonschema:"Chunk text"`
	StartOffset int    `json:"start_offset" jsonschema:"Start rune offset in the source text"`
	EndOffset   int    `json:"end_offset" jsonschema:"End rune offset in the source text (exclusive)"`
	CreatedAt   int64  `json:"created_at" jsonschema:"Write time in Unix milliseconds"`
}

// RecentChunksOutput 最近片段工具输出
type RecentChunksOutput struct {
	Chunks []*ChunkView `json:"chunks" jsonschema:"Recent chunks, newest first"`
	Count  int          `json:"count" jsonschema:"Number of chunks returned"`
}

// recentChunksTool 最近片段工具实现
func (s *MCPServer) recentChunksTool(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input RecentChunksInput,
) (*mcp.CallToolResult, RecentChunksOutput, error) {
	output := RecentChunksOutput{Chunks: []*ChunkView{}}

	limit := input.Limit
	if limit <= 0 {
		limit = 10
	}

	chunks, err := s.pipeline.RecentChunks(ctx, input.SessionID, limit)
	if err != nil {
		return nil, output, fmt.Errorf("recent chunks failed: %w", err)
	}

	output.Chunks = make([]*ChunkView, 0, len(chunks))
	for _, c := range chunks {
		output.Chunks = append(output.Chunks, &ChunkView{
			ChunkID:     c.ID,
			MessageID:   c.MessageID,
			ChunkIndex:  c.ChunkIndex,
			Content:     c.Content,
			StartOffset: c.StartOffset,
			EndOffset:   c.EndOffset,
			CreatedAt:   c.CreatedAt,
		})
	}
	output.Count = len(output.Chunks)
	return nil, output, nil
}

// SemanticSearchInput 语义检索工具输入
type SemanticSearchInput struct {
	SessionID string `json:"session_id" jsonschema:"Session to search within (required); results never cross sessions"`
	Query     string `json:"query" jsonschema:"Natural language search query (required)"`
	TopK      int    `json:"top_k,omitempty" jsonschema:"Maximum number of results, defaults to 5"`
}

// SearchHit 检索命中
type SearchHit struct {
	Chunk *ChunkView `json:"chunk" jsonschema:"The matching chunk"`
	Score float64    `json:"score" jsonschema:"Cosine similarity in [-1, 1], higher is more relevant"`
}

// SemanticSearchOutput 语义检索工具输出
type SemanticSearchOutput struct {
	Results []*SearchHit `json:"results" jsonschema:"Matching chunks ordered by similarity"`
	Count   int          `json:"count" jsonschema:"Number of results returned"`
}

// semanticSearchTool 语义检索工具实现
func (s *MCPServer) semanticSearchTool(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input SemanticSearchInput,
) (*mcp.CallToolResult, SemanticSearchOutput, error) {
	output := SemanticSearchOutput{Results: []*SearchHit{}}

	if input.Query == "" {
		return nil, output, fmt.Errorf("query is required")
	}

	topK := input.TopK
	if topK <= 0 {
		topK = 5
	}

	results, err := s.search.Search(ctx, input.SessionID, input.Query, topK)
	if err != nil {
		return nil, output, fmt.Errorf("search failed: %w", err)
	}

	output.Results = make([]*SearchHit, 0, len(results))
	for _, r := range results {
		output.Results = append(output.Results, &SearchHit{
			Chunk: &ChunkView{
				ChunkID:     r.Chunk.ID,
				MessageID:   r.Chunk.MessageID,
				ChunkIndex:  r.Chunk.ChunkIndex,
				Content:     r.Chunk.Content,
				StartOffset: r.Chunk.StartOffset,
				EndOffset:   r.Chunk.EndOffset,
				CreatedAt:   r.Chunk.CreatedAt,
			},
			Score: r.Score,
		})
	}
	output.Count = len(output.Results)
	return nil, output, nil
}

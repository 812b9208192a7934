// Package memory 实现上下文记忆的核心应用服务
// 分块、向量化入库、相似度检索与保留期清理
package memory

import (
	"fmt"

	"log/slog"

	domainMemory "github.com/samlazrak/LocalContextMCP/internal/domain/memory"
	"github.com/samlazrak/LocalContextMCP/internal/infrastructure/config"
	"github.com/samlazrak/LocalContextMCP/internal/infrastructure/log"
)

// TokenCounter Token 计数接口
// token 模式分块时用于度量窗口大小
type TokenCounter interface {
	CountTokens(text string) int
}

// Piece 分块结果
// 偏移量以 rune 计，EndOffset 为开区间
type Piece struct {
	Index       int
	Content     string
	StartOffset int
	EndOffset   int
}

// Chunker 滑动窗口分块器
// 相邻块共享 overlap 大小的尾部内容，保证跨块语义连续
type Chunker struct {
	maxSize   int
	overlap   int
	unit      string
	tolerance int
	counter   TokenCounter
	logger    *slog.Logger
}

// NewChunker 创建分块器
// token 模式必须提供计数器，char 模式忽略
func NewChunker(cfg *config.ChunkingConfig, counter TokenCounter) (*Chunker, error) {
	if cfg.MaxSize <= 0 {
		return nil, fmt.Errorf("%w: chunk max size must be positive, got %d",
			domainMemory.ErrConfiguration, cfg.MaxSize)
	}
	if cfg.Overlap < 0 {
		return nil, fmt.Errorf("%w: chunk overlap must be non-negative, got %d",
			domainMemory.ErrConfiguration, cfg.Overlap)
	}
	if cfg.Overlap >= cfg.MaxSize {
		return nil, fmt.Errorf("%w: chunk overlap (%d) must be smaller than max size (%d)",
			domainMemory.ErrConfiguration, cfg.Overlap, cfg.MaxSize)
	}
	if cfg.SizeUnit == config.SizeUnitTokens && counter == nil {
		return nil, fmt.Errorf("%w: token size unit requires a token counter",
			domainMemory.ErrConfiguration)
	}

	return &Chunker{
		maxSize:   cfg.MaxSize,
		overlap:   cfg.Overlap,
		unit:      cfg.SizeUnit,
		tolerance: cfg.BoundaryTolerance,
		counter:   counter,
		logger:    log.NewModuleLogger("memory", "chunker"),
	}, nil
}

// ChunkText 将文本切分为有序分块
// 空文本返回空切片；单块覆盖全文时不产生重叠
func (c *Chunker) ChunkText(text string) ([]Piece, error) {
	if text == "" {
		return []Piece{}, nil
	}

	runes := []rune(text)

	var pieces []Piece
	var err error
	if c.unit == config.SizeUnitTokens {
		pieces, err = c.chunkByTokens(runes)
	} else {
		pieces = c.chunkByRunes(runes)
	}
	if err != nil {
		return nil, err
	}

	c.logger.Debug("Chunked text",
		"text_runes", len(runes),
		"chunks", len(pieces),
		"unit", c.unit,
	)
	return pieces, nil
}

// chunkByRunes 按 rune 数滑动分块
func (c *Chunker) chunkByRunes(runes []rune) []Piece {
	total := len(runes)
	pieces := make([]Piece, 0, total/c.maxSize+1)

	start := 0
	for start < total {
		end := start + c.maxSize
		if end >= total {
			end = total
		} else {
			end = c.adjustToBoundary(runes, start, end)
		}

		pieces = append(pieces, Piece{
			Index:       len(pieces),
			Content:     string(runes[start:end]),
			StartOffset: start,
			EndOffset:   end,
		})

		if end >= total {
			break
		}
		start = end - c.overlap
	}

	return pieces
}

// adjustToBoundary 在容差范围内向前回退到最近的句子边界
// 回退后必须仍覆盖新内容，否则保持原切点
func (c *Chunker) adjustToBoundary(runes []rune, start, end int) int {
	if c.tolerance <= 0 {
		return end
	}

	limit := end - c.tolerance
	// 切点不能退回到重叠区内，否则窗口无法前进
	if floor := start + c.overlap + 1; limit < floor {
		limit = floor
	}

	for i := end - 1; i >= limit; i-- {
		if isBoundaryRune(runes[i]) {
			return i + 1
		}
	}
	return end
}

// isBoundaryRune 判断句子边界字符
func isBoundaryRune(r rune) bool {
	switch r {
	case '\n', '.', '!', '?', '。', '！', '？':
		return true
	}
	return false
}

// chunkByTokens 按 Token 数滑动分块
// 通过二分查找定位满足 Token 上限的最大 rune 切点
func (c *Chunker) chunkByTokens(runes []rune) ([]Piece, error) {
	total := len(runes)
	pieces := make([]Piece, 0, 4)

	start := 0
	for start < total {
		end := c.maxRuneEnd(runes, start)
		if end <= start {
			// 单个字符超过 Token 上限，强制收纳避免死循环
			end = start + 1
		}
		if end < total {
			end = c.adjustToBoundary(runes, start, end)
		}

		pieces = append(pieces, Piece{
			Index:       len(pieces),
			Content:     string(runes[start:end]),
			StartOffset: start,
			EndOffset:   end,
		})

		if end >= total {
			break
		}

		next := c.overlapStart(runes, start, end)
		if next <= start {
			next = start + 1
		}
		start = next
	}

	return pieces, nil
}

// maxRuneEnd 查找从 start 起 Token 数不超过 maxSize 的最大切点
func (c *Chunker) maxRuneEnd(runes []rune, start int) int {
	lo, hi := start, len(runes)
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if c.counter.CountTokens(string(runes[start:mid])) <= c.maxSize {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo
}

// overlapStart 查找使尾部约含 overlap 个 Token 的下一窗口起点
func (c *Chunker) overlapStart(runes []rune, start, end int) int {
	if c.overlap <= 0 {
		return end
	}

	lo, hi := start+1, end
	for lo < hi {
		mid := (lo + hi) / 2
		if c.counter.CountTokens(string(runes[mid:end])) <= c.overlap {
			hi = mid
		} else {
			lo = mid + 1
		}
	}
	return lo
}

// Package tokenizer 提供基于 tiktoken 的 Token 计数
package tokenizer

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"
)

// 在包初始化时设置离线加载器，避免运行时下载编码文件
func init() {
	tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
}

// TiktokenCounter 使用 tiktoken 精确计算 Token 数量
type TiktokenCounter struct {
	encoding *tiktoken.Tiktoken
	mu       sync.RWMutex
}

// 单例实例
var (
	counterInstance *TiktokenCounter
	counterOnce     sync.Once
	counterErr      error
)

// GetTiktokenCounter 获取 TiktokenCounter 单例
// 使用单例模式避免重复加载编码文件
func GetTiktokenCounter() (*TiktokenCounter, error) {
	counterOnce.Do(func() {
		// 使用 cl100k_base 编码（GPT-4、Claude 等模型兼容）
		enc, err := tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			counterErr = err
			return
		}
		counterInstance = &TiktokenCounter{
			encoding: enc,
		}
	})

	if counterErr != nil {
		return nil, counterErr
	}
	return counterInstance, nil
}

// CountTokens 计算文本的 Token 数量
func (c *TiktokenCounter) CountTokens(text string) int {
	if text == "" {
		return 0
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	tokens := c.encoding.Encode(text, nil, nil)
	return len(tokens)
}

// CountTokensBatch 批量计算多个文本的 Token 数量
func (c *TiktokenCounter) CountTokensBatch(texts []string) int {
	total := 0
	for _, text := range texts {
		total += c.CountTokens(text)
	}
	return total
}

// GetMethod 返回计算方法标识
func (c *TiktokenCounter) GetMethod() string {
	return "tiktoken"
}

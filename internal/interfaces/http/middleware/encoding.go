// Package middleware 提供 HTTP 请求预处理中间件
package middleware

import (
	"bytes"
	"io"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/transform"
)

// EnsureUTF8Body 确保请求体为 UTF-8
// Windows 下 curl 可能以 GBK 发送中文消息内容，入库前统一转码，
// 否则分块的 rune 偏移量和向量化文本都会被破坏
func EnsureUTF8Body() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body == nil || c.Request.ContentLength == 0 {
			c.Next()
			return
		}

		body, err := io.ReadAll(c.Request.Body)
		c.Request.Body.Close()
		if err != nil {
			c.Next()
			return
		}

		if !utf8.Valid(body) {
			if converted, err := gbkToUTF8(body); err == nil && utf8.Valid(converted) {
				body = converted
				c.Request.ContentLength = int64(len(converted))
			}
		}

		c.Request.Body = io.NopCloser(bytes.NewReader(body))
		c.Next()
	}
}

// gbkToUTF8 将 GBK 字节序列转码为 UTF-8
func gbkToUTF8(data []byte) ([]byte, error) {
	reader := transform.NewReader(bytes.NewReader(data), simplifiedchinese.GBK.NewDecoder())
	return io.ReadAll(reader)
}

// Package response 统一 REST 响应结构
package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	domainMemory "github.com/samlazrak/LocalContextMCP/internal/domain/memory"
)

// Response 统一响应结构
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// ErrorResponse 错误响应
// Kind 为机器可读错误类别，不含内部细节
type ErrorResponse struct {
	Code    int    `json:"code"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Success 成功响应
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

// Error 错误响应
func Error(c *gin.Context, httpCode int, kind, message string) {
	c.JSON(httpCode, ErrorResponse{
		Code:    httpCode,
		Kind:    kind,
		Message: message,
	})
}

// FromError 按错误类别映射 HTTP 状态码
// 客户端错误 4xx，瞬时后端故障 503，永久故障 500
// 服务端错误不透出内部细节
func FromError(c *gin.Context, err error) {
	kind := domainMemory.ErrorKind(err)
	status := statusForKind(kind)

	message := err.Error()
	if status >= http.StatusInternalServerError {
		message = "backend failure, see server logs"
	}

	c.JSON(status, ErrorResponse{
		Code:    status,
		Kind:    kind,
		Message: message,
	})
}

// statusForKind 错误类别到 HTTP 状态码
func statusForKind(kind string) int {
	switch kind {
	case "invalid_params", "configuration_error", "dimension_mismatch":
		return http.StatusBadRequest
	case "not_found":
		return http.StatusNotFound
	case "embedding_unavailable":
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

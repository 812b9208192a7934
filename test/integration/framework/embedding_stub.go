//go:build integration
// +build integration

package framework

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
)

// StubDimension 伪造向量化服务的固定维度
const StubDimension = 8

// NewEmbeddingStub 启动 OpenAI 兼容的伪造向量化服务
// 向量由文本内容确定性生成，相同文本始终得到相同向量
func NewEmbeddingStub() *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Input []string `json:"input"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		type entry struct {
			Index     int       `json:"index"`
			Embedding []float32 `json:"embedding"`
		}
		data := make([]entry, len(req.Input))
		for i, text := range req.Input {
			data[i] = entry{Index: i, Embedding: stubVector(text)}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"data": data})
	}))
}

// stubVector 按字符分布生成确定性向量
func stubVector(text string) []float32 {
	vec := make([]float32, StubDimension)
	for _, r := range text {
		vec[int(r)%StubDimension]++
	}
	return vec
}

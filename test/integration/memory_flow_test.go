//go:build integration
// +build integration

package integration

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samlazrak/LocalContextMCP/test/integration/framework"
)

// startDaemon 启动带伪造向量化服务的服务器进程
func startDaemon(t *testing.T) *framework.APIClient {
	t.Helper()

	stub := framework.NewEmbeddingStub()
	t.Cleanup(stub.Close)

	daemon, err := framework.NewTestDaemon(framework.BinaryPath, stub.URL)
	require.NoError(t, err)
	require.NoError(t, daemon.Start())
	t.Cleanup(func() { daemon.Stop() })

	return framework.NewAPIClient(daemon.BaseURL())
}

func TestMemoryFlow_StoreAndRetrieve(t *testing.T) {
	client := startDaemon(t)

	stored, err := client.StoreMessage("session-1", "user", "How do I configure connection pooling for the database?")
	require.NoError(t, err)
	assert.NotEmpty(t, stored.MessageID)
	assert.GreaterOrEqual(t, stored.ChunkCount, 1)

	_, err = client.StoreMessage("session-1", "assistant", "Set the pool size via DB_MAX_CONNECTIONS and keep it below the server limit.")
	require.NoError(t, err)

	// 最近片段按时间倒序
	recent, err := client.RecentChunks("session-1", 10)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, recent.Count, 2)

	// 检索命中已存内容
	search, err := client.SemanticSearch("session-1", "database connection pooling", 3)
	require.NoError(t, err)
	require.NotZero(t, search.Count)
	assert.NotEmpty(t, search.Results[0].Chunk.Content)
	assert.LessOrEqual(t, search.Results[0].Score, 1.0)
}

func TestMemoryFlow_SessionIsolation(t *testing.T) {
	client := startDaemon(t)

	_, err := client.StoreMessage("session-a", "user", "alpha session content about goroutines")
	require.NoError(t, err)
	_, err = client.StoreMessage("session-b", "user", "beta session content about channels")
	require.NoError(t, err)

	search, err := client.SemanticSearch("session-a", "goroutines", 10)
	require.NoError(t, err)
	for _, r := range search.Results {
		assert.Equal(t, "session-a", r.Chunk.SessionID)
	}

	recent, err := client.RecentChunks("session-b", 10)
	require.NoError(t, err)
	for _, c := range recent.Chunks {
		assert.Equal(t, "session-b", c.SessionID)
	}
}

func TestMemoryFlow_JSONRPC(t *testing.T) {
	client := startDaemon(t)

	resp, err := client.RPC(`{"jsonrpc":"2.0","id":1,"method":"store_message","params":{"session_id":"rpc-1","role":"user","content":"stored via json-rpc"}}`)
	require.NoError(t, err)
	require.Nil(t, resp.Error)
	assert.NotNil(t, resp.Result)

	resp, err = client.RPC(`{"jsonrpc":"2.0","id":2,"method":"no_such_method"}`)
	require.NoError(t, err)
	require.NotNil(t, resp.Error)
	assert.Equal(t, -32601, resp.Error.Code)

	resp, err = client.RPC(`{"jsonrpc":"2.0","id":3,"method":"tools/list"}`)
	require.NoError(t, err)
	assert.Nil(t, resp.Error)
}

func TestMemoryFlow_Health(t *testing.T) {
	client := startDaemon(t)

	health, err := client.Health()
	require.NoError(t, err)
	assert.Equal(t, "ok", health.Status)
	assert.Contains(t, health.Components, "database")
	assert.Contains(t, health.Components, "llm")
}

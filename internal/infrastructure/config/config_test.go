package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Addr())
	assert.Equal(t, 768, cfg.Embedding.Dimension)
	assert.Equal(t, 30*time.Second, cfg.Embedding.Timeout)
	assert.Equal(t, 2048, cfg.Chunking.MaxSize)
	assert.Equal(t, 256, cfg.Chunking.Overlap)
	assert.Equal(t, SizeUnitChars, cfg.Chunking.SizeUnit)
	assert.Equal(t, VectorBackendSQLite, cfg.Search.Backend)
	assert.False(t, cfg.Retention.Enabled(), "保留期默认禁用")
	assert.False(t, cfg.Ingest.Enabled(), "文件摄取默认禁用")
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("MCP_HOST", "127.0.0.1")
	t.Setenv("MCP_PORT", "9000")
	t.Setenv("EMBEDDING_DIMENSION", "384")
	t.Setenv("CHUNK_SIZE_UNIT", "tokens")
	t.Setenv("VECTOR_BACKEND", "qdrant")
	t.Setenv("RETENTION_DAYS", "7")
	t.Setenv("EMBEDDING_TIMEOUT", "5s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr())
	assert.Equal(t, 384, cfg.Embedding.Dimension)
	assert.Equal(t, SizeUnitTokens, cfg.Chunking.SizeUnit)
	assert.Equal(t, VectorBackendQdrant, cfg.Search.Backend)
	assert.Equal(t, 7*24*time.Hour, cfg.Retention.Window)
	assert.True(t, cfg.Retention.Enabled())
	assert.Equal(t, 5*time.Second, cfg.Embedding.Timeout)
}

func TestLoad_InvalidEnvFallsBackToDefault(t *testing.T) {
	t.Setenv("MCP_PORT", "not-a-number")
	t.Setenv("EMBEDDING_TIMEOUT", "yesterday")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Embedding.Timeout)
}

func TestValidate_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantMsg string
	}{
		{
			name:    "max size zero",
			mutate:  func(c *Config) { c.Chunking.MaxSize = 0 },
			wantMsg: "max size must be positive",
		},
		{
			name:    "negative overlap",
			mutate:  func(c *Config) { c.Chunking.Overlap = -1 },
			wantMsg: "overlap must not be negative",
		},
		{
			name:    "overlap equals max size",
			mutate:  func(c *Config) { c.Chunking.MaxSize = 100; c.Chunking.Overlap = 100 },
			wantMsg: "strictly less than",
		},
		{
			name:    "unknown size unit",
			mutate:  func(c *Config) { c.Chunking.SizeUnit = "bytes" },
			wantMsg: "size unit",
		},
		{
			name:    "unknown backend",
			mutate:  func(c *Config) { c.Search.Backend = "pinecone" },
			wantMsg: "vector backend",
		},
		{
			name:    "zero dimension",
			mutate:  func(c *Config) { c.Embedding.Dimension = 0 },
			wantMsg: "dimension must be positive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load()
			require.NoError(t, err)

			tt.mutate(cfg)
			err = cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestDatabasePath(t *testing.T) {
	cfg := &DatabaseConfig{Path: "/tmp/custom.db"}
	path, err := cfg.DatabasePath()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/custom.db", path)

	cfg = &DatabaseConfig{}
	path, err = cfg.DatabasePath()
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(path, ".localcontext/memory.db") ||
		strings.Contains(path, ".localcontext"), "默认路径应位于用户目录下的 .localcontext")
}

// Package config 提供应用配置
// 配置在启动时从环境变量一次性构建为不可变结构体，
// 再通过依赖注入显式传递给各组件，组件内部不读取环境变量
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// 分块大小单位
const (
	SizeUnitChars  = "chars"
	SizeUnitTokens = "tokens"
)

// 向量检索后端
const (
	VectorBackendSQLite = "sqlite"
	VectorBackendQdrant = "qdrant"
)

// Config 应用配置
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Embedding EmbeddingConfig
	Chunking  ChunkingConfig
	Search    SearchConfig
	Retention RetentionConfig
	Ingest    IngestConfig
	Tools     ToolsConfig
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Host string
	Port int
}

// Addr 返回监听地址
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	// Path SQLite 数据库文件路径，空表示 ~/.localcontext/memory.db
	Path string
	// MaxOpenConns 连接池上限
	MaxOpenConns int
}

// EmbeddingConfig 向量化服务配置
type EmbeddingConfig struct {
	// BaseURL OpenAI 兼容端点，如 http://localhost:1234/v1
	BaseURL string
	// APIKey 可选的 Bearer Token
	APIKey string
	// Model 模型名称
	Model string
	// Dimension 向量维度，写入时校验
	Dimension int
	// Timeout 单次请求超时
	Timeout time.Duration
	// MaxRetries 瞬时故障的最大尝试次数
	MaxRetries int
	// RetryBackoff 重试退避基准间隔
	RetryBackoff time.Duration
}

// ChunkingConfig 分块配置
type ChunkingConfig struct {
	// MaxSize 单个片段上限（字符或 Token 数，取决于 SizeUnit）
	MaxSize int
	// Overlap 相邻片段重叠量，必须严格小于 MaxSize
	Overlap int
	// SizeUnit chars 或 tokens
	SizeUnit string
	// BoundaryTolerance 在硬切分前回溯寻找句子边界的窗口
	BoundaryTolerance int
}

// SearchConfig 检索配置
type SearchConfig struct {
	// Backend sqlite（精确余弦排序）或 qdrant（近似加速）
	Backend string
	// QdrantHost Qdrant 地址
	QdrantHost string
	// QdrantPort Qdrant gRPC 端口
	QdrantPort int
	// Collection Qdrant 集合名称
	Collection string
}

// RetentionConfig 保留期配置
type RetentionConfig struct {
	// Window 会话不活跃多久后可被清理；<= 0 表示禁用清理
	Window time.Duration
	// SweepInterval 清理周期
	SweepInterval time.Duration
}

// Enabled 检查是否启用保留期清理
func (c *RetentionConfig) Enabled() bool {
	return c.Window > 0
}

// IngestConfig 文件摄取配置
type IngestConfig struct {
	// WatchDir 监听目录，空表示禁用摄取
	WatchDir string
	// DebounceDelay 文件事件防抖延迟
	DebounceDelay time.Duration
}

// Enabled 检查是否启用文件摄取
func (c *IngestConfig) Enabled() bool {
	return c.WatchDir != ""
}

// ToolsConfig 外部工具配置
type ToolsConfig struct {
	// ManifestPath 工具清单 YAML 路径，空表示不注册外部工具
	ManifestPath string
	// InvokeTimeout 外部工具调用超时
	InvokeTimeout time.Duration
}

// Load 从环境变量构建配置并校验
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host: getEnv("MCP_HOST", "0.0.0.0"),
			Port: getEnvInt("MCP_PORT", 8080),
		},
		Database: DatabaseConfig{
			Path:         getEnv("MCP_DB_PATH", ""),
			MaxOpenConns: getEnvInt("DB_MAX_CONNECTIONS", 10),
		},
		Embedding: EmbeddingConfig{
			BaseURL:      getEnv("EMBEDDING_BASE_URL", "http://localhost:1234/v1"),
			APIKey:       getEnv("EMBEDDING_API_KEY", ""),
			Model:        getEnv("EMBEDDING_MODEL", "text-embedding-nomic-embed-text-v1.5"),
			Dimension:    getEnvInt("EMBEDDING_DIMENSION", 768),
			Timeout:      getEnvDuration("EMBEDDING_TIMEOUT", 30*time.Second),
			MaxRetries:   getEnvInt("EMBEDDING_MAX_RETRIES", 3),
			RetryBackoff: getEnvDuration("EMBEDDING_RETRY_BACKOFF", time.Second),
		},
		Chunking: ChunkingConfig{
			MaxSize:           getEnvInt("CHUNK_MAX_SIZE", 2048),
			Overlap:           getEnvInt("CHUNK_OVERLAP", 256),
			SizeUnit:          getEnv("CHUNK_SIZE_UNIT", SizeUnitChars),
			BoundaryTolerance: getEnvInt("CHUNK_BOUNDARY_TOLERANCE", 128),
		},
		Search: SearchConfig{
			Backend:    getEnv("VECTOR_BACKEND", VectorBackendSQLite),
			QdrantHost: getEnv("QDRANT_HOST", "localhost"),
			QdrantPort: getEnvInt("QDRANT_PORT", 6334),
			Collection: getEnv("QDRANT_COLLECTION", "context_chunks"),
		},
		Retention: RetentionConfig{
			Window:        time.Duration(getEnvInt("RETENTION_DAYS", 0)) * 24 * time.Hour,
			SweepInterval: getEnvDuration("RETENTION_SWEEP_INTERVAL", time.Hour),
		},
		Ingest: IngestConfig{
			WatchDir:      getEnv("INGEST_WATCH_DIR", ""),
			DebounceDelay: getEnvDuration("INGEST_DEBOUNCE_DELAY", 500*time.Millisecond),
		},
		Tools: ToolsConfig{
			ManifestPath:  getEnv("MCP_TOOLS_FILE", ""),
			InvokeTimeout: getEnvDuration("MCP_TOOL_TIMEOUT", 30*time.Second),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate 校验配置，无效参数在任何 I/O 之前拒绝
func (c *Config) Validate() error {
	if c.Chunking.MaxSize <= 0 {
		return fmt.Errorf("chunk max size must be positive, got %d", c.Chunking.MaxSize)
	}
	if c.Chunking.Overlap < 0 {
		return fmt.Errorf("chunk overlap must not be negative, got %d", c.Chunking.Overlap)
	}
	if c.Chunking.Overlap >= c.Chunking.MaxSize {
		return fmt.Errorf("chunk overlap %d must be strictly less than max size %d",
			c.Chunking.Overlap, c.Chunking.MaxSize)
	}
	if unit := c.Chunking.SizeUnit; unit != SizeUnitChars && unit != SizeUnitTokens {
		return fmt.Errorf("chunk size unit must be %q or %q, got %q", SizeUnitChars, SizeUnitTokens, unit)
	}
	if b := c.Search.Backend; b != VectorBackendSQLite && b != VectorBackendQdrant {
		return fmt.Errorf("vector backend must be %q or %q, got %q", VectorBackendSQLite, VectorBackendQdrant, b)
	}
	if c.Embedding.Dimension <= 0 {
		return fmt.Errorf("embedding dimension must be positive, got %d", c.Embedding.Dimension)
	}
	if c.Embedding.MaxRetries <= 0 {
		return fmt.Errorf("embedding max retries must be positive, got %d", c.Embedding.MaxRetries)
	}
	return nil
}

// DatabasePath 返回数据库文件路径，未配置时使用默认位置
func (c *DatabaseConfig) DatabasePath() (string, error) {
	if c.Path != "" {
		return c.Path, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, ".localcontext", "memory.db"), nil
}

// NewDatabaseConfig 提供数据库配置
func NewDatabaseConfig(cfg *Config) *DatabaseConfig {
	return &cfg.Database
}

// NewServerConfig 提供服务器配置
func NewServerConfig(cfg *Config) *ServerConfig {
	return &cfg.Server
}

// NewEmbeddingConfig 提供向量化配置
func NewEmbeddingConfig(cfg *Config) *EmbeddingConfig {
	return &cfg.Embedding
}

// NewChunkingConfig 提供分块配置
func NewChunkingConfig(cfg *Config) *ChunkingConfig {
	return &cfg.Chunking
}

// NewSearchConfig 提供检索配置
func NewSearchConfig(cfg *Config) *SearchConfig {
	return &cfg.Search
}

// NewRetentionConfig 提供保留期配置
func NewRetentionConfig(cfg *Config) *RetentionConfig {
	return &cfg.Retention
}

// NewIngestConfig 提供摄取配置
func NewIngestConfig(cfg *Config) *IngestConfig {
	return &cfg.Ingest
}

// NewToolsConfig 提供工具配置
func NewToolsConfig(cfg *Config) *ToolsConfig {
	return &cfg.Tools
}

// getEnv 获取环境变量，带默认值
func getEnv(key, defaultValue string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvInt 获取整型环境变量
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return intValue
}

// getEnvDuration 获取时长环境变量（Go duration 格式，如 30s、5m）
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return d
}

//go:build integration
// +build integration

// TestDaemon 管理独立服务器进程的启动与关闭
package framework

import (
	"fmt"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"time"
)

// TestDaemon 测试服务器进程
type TestDaemon struct {
	HTTPPort int    // HTTP 端口
	DataDir  string // 数据目录（隔离）

	cmd     *exec.Cmd
	baseURL string
}

// NewTestDaemon 创建测试服务器进程
// embeddingURL 指向伪造的向量化服务
func NewTestDaemon(binaryPath, embeddingURL string) (*TestDaemon, error) {
	httpPort, err := getFreePort()
	if err != nil {
		return nil, fmt.Errorf("failed to allocate HTTP port: %w", err)
	}

	dataDir, err := os.MkdirTemp("", "localcontext-test-")
	if err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	d := &TestDaemon{
		HTTPPort: httpPort,
		DataDir:  dataDir,
		baseURL:  fmt.Sprintf("http://localhost:%d", httpPort),
	}

	d.cmd = exec.Command(binaryPath)
	d.cmd.Env = append(os.Environ(),
		"MCP_HOST=127.0.0.1",
		fmt.Sprintf("MCP_PORT=%d", httpPort),
		fmt.Sprintf("MCP_DB_PATH=%s", filepath.Join(dataDir, "memory.db")),
		fmt.Sprintf("EMBEDDING_BASE_URL=%s", embeddingURL),
		fmt.Sprintf("EMBEDDING_DIMENSION=%d", StubDimension),
		"EMBEDDING_RETRY_BACKOFF=10ms",
		"CHUNK_MAX_SIZE=64",
		"CHUNK_OVERLAP=8",
		"GIN_MODE=release",
	)
	d.cmd.Stdout = os.Stdout
	d.cmd.Stderr = os.Stderr

	return d, nil
}

// BaseURL 返回服务器基础地址
func (d *TestDaemon) BaseURL() string {
	return d.baseURL
}

// Start 启动服务器进程并等待就绪
func (d *TestDaemon) Start() error {
	if err := d.cmd.Start(); err != nil {
		return fmt.Errorf("failed to start daemon: %w", err)
	}
	return d.waitForReady(30 * time.Second)
}

// Stop 停止服务器进程并清理数据目录
func (d *TestDaemon) Stop() error {
	if d.cmd.Process != nil {
		_ = d.cmd.Process.Signal(os.Interrupt)

		done := make(chan error, 1)
		go func() {
			done <- d.cmd.Wait()
		}()

		select {
		case <-done:
		case <-time.After(5 * time.Second):
			_ = d.cmd.Process.Kill()
			<-done
		}
	}

	os.RemoveAll(d.DataDir)
	return nil
}

// waitForReady 轮询 health 端点直到就绪
func (d *TestDaemon) waitForReady(timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	client := &http.Client{Timeout: time.Second}

	for time.Now().Before(deadline) {
		resp, err := client.Get(d.baseURL + "/health")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	return fmt.Errorf("daemon not ready within %s", timeout)
}

// getFreePort 分配一个空闲端口
func getFreePort() (int, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, err
	}
	defer listener.Close()
	return listener.Addr().(*net.TCPAddr).Port, nil
}

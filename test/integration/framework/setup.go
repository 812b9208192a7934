//go:build integration
// +build integration

// 测试框架的全局设置和清理
package framework

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
)

var (
	// BinaryPath 编译后的服务器二进制路径
	BinaryPath string

	binaryDir string
)

// BuildServer 编译服务器二进制（在 TestMain 中调用一次）
func BuildServer() error {
	_, currentFile, _, _ := runtime.Caller(0)
	rootDir := filepath.Join(filepath.Dir(currentFile), "..", "..", "..")

	tmpDir, err := os.MkdirTemp("", "localcontext-test-bin-")
	if err != nil {
		return fmt.Errorf("failed to create temp directory: %w", err)
	}
	binaryDir = tmpDir

	binaryName := "localcontext-mcp"
	if runtime.GOOS == "windows" {
		binaryName += ".exe"
	}
	BinaryPath = filepath.Join(tmpDir, binaryName)

	cmd := exec.Command("go", "build", "-o", BinaryPath, "./cmd/server")
	cmd.Dir = rootDir
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to build server binary: %w", err)
	}
	return nil
}

// Cleanup 删除编译产物
func Cleanup() {
	if binaryDir != "" {
		os.RemoveAll(binaryDir)
	}
}

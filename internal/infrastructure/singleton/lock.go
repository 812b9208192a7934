// Package singleton 通过端口占用实现单实例锁
package singleton

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"syscall"
	"time"
)

// healthProbeTimeout 探测已有实例健康检查的超时
const healthProbeTimeout = 2 * time.Second

// CheckAndLock 尝试在 addr（host:port）上建立单实例锁
// 端口可用时返回 listener，调用方应在真正启动 HTTP 服务器前关闭它
// 已有健康实例在运行时返回 (nil, nil)，调用方应直接退出
// 端口被占用但实例不响应健康检查时返回错误
func CheckAndLock(addr string) (net.Listener, error) {
	listener, err := net.Listen("tcp", addr)
	if err == nil {
		return listener, nil
	}

	if !isAddrInUse(err) {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}

	if isInstanceRunning(addr) {
		return nil, nil
	}
	return nil, fmt.Errorf("port %s is taken but the occupant failed the health probe", addr)
}

// isAddrInUse 判断监听错误是否为地址已被占用
func isAddrInUse(err error) bool {
	if errors.Is(err, syscall.EADDRINUSE) {
		return true
	}

	var opErr *net.OpError
	if !errors.As(err, &opErr) {
		return false
	}
	var sysErr *os.SyscallError
	if !errors.As(opErr.Err, &sysErr) {
		return false
	}
	var errno syscall.Errno
	if errors.As(sysErr.Err, &errno) {
		// Windows 上 EADDRINUSE 为 WSAEADDRINUSE (10048)
		return errno == 10048 || errno == syscall.EADDRINUSE
	}
	return false
}

// isInstanceRunning 探测占用端口的进程是否为一个健康的服务实例
// 退化状态（degraded）同样返回 200，视为实例存活
func isInstanceRunning(addr string) bool {
	client := &http.Client{Timeout: healthProbeTimeout}

	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return false
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}

	resp, err := client.Get(fmt.Sprintf("http://%s/health", net.JoinHostPort(host, port)))
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK
}

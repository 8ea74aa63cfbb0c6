package protocol

import (
	"net"
	"testing"
	"time"

	"netrecon/internal/core/probe"
)

// testTimeouts 测试用短超时
func testTimeouts() probe.TimeoutConfig {
	return probe.TimeoutConfig{
		Connect: 2 * time.Second,
		Op:      2 * time.Second,
	}
}

// startFakeServer 启动一个本地假服务，每个连接交给 handler 处理
// 返回监听地址 (host, port)，测试结束自动关闭
func startFakeServer(t *testing.T, handler func(conn net.Conn)) (string, int) {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to start fake server: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func(c net.Conn) {
				defer c.Close()
				handler(c)
			}(conn)
		}
	}()

	addr := ln.Addr().(*net.TCPAddr)
	return "127.0.0.1", addr.Port
}

// closedPort 返回一个当前没有任何服务监听的端口
func closedPort(t *testing.T) (string, int) {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()
	return "127.0.0.1", port
}

// readLine 假服务侧按行读取客户端命令
func readLine(conn net.Conn) (string, error) {
	var line []byte
	buf := make([]byte, 1)
	for {
		if _, err := conn.Read(buf); err != nil {
			return string(line), err
		}
		if buf[0] == '\n' {
			break
		}
		if buf[0] != '\r' {
			line = append(line, buf[0])
		}
	}
	return string(line), nil
}

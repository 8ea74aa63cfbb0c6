package protocol

import (
	"context"
	"strings"

	"netrecon/internal/core/lib/network/dialer"
	"netrecon/internal/core/model"
	"netrecon/internal/core/probe"
)

// MemcachedCheck memcached 文本协议探测器
//
// 检测原理:
// 1. 发送 version 命令，响应 "VERSION x.y.z" 即确认服务
// 2. 再发送 stats 读取运行统计 (只读命令，STAT key value 逐行返回，END 结尾)
// 3. stats 失败只降级，version 的结论保留
type MemcachedCheck struct{}

func NewMemcachedCheck(_ probe.Options) *MemcachedCheck {
	return &MemcachedCheck{}
}

func (c *MemcachedCheck) Name() string {
	return "memcached"
}

func (c *MemcachedCheck) DefaultPorts() []int {
	return []int{11211}
}

func (c *MemcachedCheck) Probe(ctx context.Context, host string, port int, tc probe.TimeoutConfig) *model.CheckResult {
	res := model.NewCheckResult(c.Name(), host, port)

	conn, err := dialer.DialTCP(ctx, host, port, tc.Connect)
	if err != nil {
		res.Fail(model.ErrKindTCPUnreachable, err.Error())
		return res
	}
	defer conn.Close()
	res.Reachable = true

	lr := dialer.NewLineReader(conn)

	// 1. version
	if err := dialer.WriteAll(conn, []byte("version\r\n"), tc.Op); err != nil {
		res.Fail(classifyIOError(err), err.Error())
		return res
	}
	line, err := lr.ReadLine(tc.Op)
	if err != nil {
		res.Fail(classifyIOError(err), err.Error())
		return res
	}
	if !strings.HasPrefix(line, "VERSION ") {
		res.Fail(model.ErrKindProtocolError, "unexpected version response: "+line)
		return res
	}
	res.Detected = true
	res.SetField("version", strings.TrimSpace(strings.TrimPrefix(line, "VERSION ")))

	// 2. stats (失败只降级)
	if err := dialer.WriteAll(conn, []byte("stats\r\n"), tc.Op); err != nil {
		return res
	}
	stats := make(map[string]string)
	for len(stats) < 256 {
		line, err := lr.ReadLine(tc.Op)
		if err != nil || line == "END" || line == "ERROR" {
			break
		}
		// STAT <key> <value>
		parts := strings.SplitN(line, " ", 3)
		if len(parts) == 3 && parts[0] == "STAT" {
			stats[parts[1]] = parts[2]
		}
	}
	if len(stats) > 0 {
		res.SetField("stats", stats)
		res.SetField("curr_items", stats["curr_items"])
		res.SetField("total_connections", stats["total_connections"])
	}

	return res
}

/*
 * @author: Sun977
 * @date: 2026.08.13
 * @description: 协议探测器公共辅助逻辑与统一装配入口
 */

package protocol

import (
	"context"
	"errors"
	"net"
	"strconv"
	"strings"

	"netrecon/internal/core/lib/network/dialer"
	"netrecon/internal/core/model"
	"netrecon/internal/core/probe"
)

// RegisterAll 把全部内置协议探测器注册进 probe 注册表
// CLI 启动时调用一次；新增协议在这里挂一行即可
func RegisterAll() {
	probe.Register("telnet", func(o probe.Options) probe.Check { return NewTelnetCheck(o) })
	probe.Register("zookeeper", func(o probe.Options) probe.Check { return NewZooKeeperCheck(o) })
	probe.Register("memcached", func(o probe.Options) probe.Check { return NewMemcachedCheck(o) })
	probe.Register("nats", func(o probe.Options) probe.Check { return NewNATSCheck(o) })
	probe.Register("smtp", func(o probe.Options) probe.Check { return NewSMTPCheck(o) })
	probe.Register("ajp", func(o probe.Options) probe.Check { return NewAJPCheck(o) })
	probe.Register("mqtt", func(o probe.Options) probe.Check { return NewMQTTCheck(o) })
	probe.Register("jdwp", func(o probe.Options) probe.Check { return NewJDWPCheck(o) })
	probe.Register("vnc", func(o probe.Options) probe.Check { return NewVNCCheck(o) })
	probe.Register("redis", func(o probe.Options) probe.Check { return NewRedisCheck(o) })
	probe.Register("ftp", func(o probe.Options) probe.Check { return NewFTPCheck(o) })
	probe.Register("mysql", func(o probe.Options) probe.Check { return NewMySQLCheck(o) })
	probe.Register("postgres", func(o probe.Options) probe.Check { return NewPostgresCheck(o) })
	probe.Register("mssql", func(o probe.Options) probe.Check { return NewMSSQLCheck(o) })
	probe.Register("mongo", func(o probe.Options) probe.Check { return NewMongoCheck(o) })
	probe.Register("smb", func(o probe.Options) probe.Check { return NewSMBCheck(o) })
	probe.Register("snmp", func(o probe.Options) probe.Check { return NewSNMPCheck(o) })
	probe.Register("clickhouse", func(o probe.Options) probe.Check { return NewClickHouseCheck(o) })
	probe.Register("elasticsearch", func(o probe.Options) probe.Check { return NewElasticsearchCheck(o) })
	probe.Register("docker", func(o probe.Options) probe.Check { return NewDockerCheck(o) })
	probe.Register("weblogic", func(o probe.Options) probe.Check { return NewWebLogicCheck(o) })
}

// reachTCP 可达性闸门
// 连接失败时填充 tcp_unreachable 并返回 false，调用方直接返回结果即可
// 适用于协议交互交给客户端库自管连接的探测器
func reachTCP(ctx context.Context, res *model.CheckResult, host string, port int, tc probe.TimeoutConfig) bool {
	if err := dialer.CheckTCP(ctx, host, port, tc.Connect); err != nil {
		res.Fail(model.ErrKindTCPUnreachable, err.Error())
		return false
	}
	res.Reachable = true
	return true
}

// hostPort 拼接目标地址，IPv6 字面量会被正确加括号
func hostPort(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}

// classifyIOError 把连接建立之后的读写错误归类
// 超时 -> protocol_timeout，其余 -> protocol_error
func classifyIOError(err error) model.ErrorKind {
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return model.ErrKindProtocolTimeout
	}
	if strings.Contains(strings.ToLower(err.Error()), "timeout") {
		return model.ErrKindProtocolTimeout
	}
	return model.ErrKindProtocolError
}

// isConnRefused 判断错误是否属于连接层面 (拒绝/重置/不可达)
// 认证类探测器用它区分 "协议在但密码不对" 和 "根本连不上"
func isConnRefused(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "no route to host") ||
		strings.Contains(msg, "network is unreachable") ||
		strings.Contains(msg, "i/o timeout") ||
		strings.Contains(msg, "target machine actively refused") || // Windows
		strings.Contains(msg, "eof")
}

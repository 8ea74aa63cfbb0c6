package dialer

import (
	"context"
	"net"
	"strconv"
	"time"
)

// Dialer 定义了网络连接器接口
type Dialer interface {
	// DialContext 建立连接
	// network: 协议 (tcp, udp)
	// address: 目标地址 (ip:port)
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// DefaultDialer 默认直连拨号器
type DefaultDialer struct {
	Timeout time.Duration
}

func NewDefaultDialer(timeout time.Duration) *DefaultDialer {
	return &DefaultDialer{
		Timeout: timeout,
	}
}

func (d *DefaultDialer) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	dialer := &net.Dialer{
		Timeout: d.Timeout,
	}
	return dialer.DialContext(ctx, network, address)
}

// DialTCP 建立到 (host, port) 的 TCP 连接
// 所有探测器的可达性判定都走这里，保证语义一致：
// 连接成功 == reachable，连接失败的 error 即 tcp_unreachable 的原因
// JoinHostPort 保证 IPv6 字面量目标 (如 ::1) 被正确加括号
func DialTCP(ctx context.Context, host string, port int, timeout time.Duration) (net.Conn, error) {
	d := NewDefaultDialer(timeout)
	return d.DialContext(ctx, "tcp", net.JoinHostPort(host, strconv.Itoa(port)))
}

// CheckTCP 只做可达性探测，连接成功后立即关闭
// 适用于协议交互由第三方客户端库自管连接的探测器 (mysql/mongo/redis 等)，
// 它们需要先用裸 TCP 区分 "不可达" 与 "协议/认证失败"
func CheckTCP(ctx context.Context, host string, port int, timeout time.Duration) error {
	conn, err := DialTCP(ctx, host, port, timeout)
	if err != nil {
		return err
	}
	conn.Close()
	return nil
}

/*
 * @author: Sun977
 * @date: 2026.08.12
 * @description: 协议探测器接口定义，所有协议探测实现的统一契约
 */

package probe

import (
	"context"
	"errors"
	"time"

	"netrecon/internal/core/model"
)

// TimeoutConfig 探测超时配置
// Connect 控制 TCP 建连，Op 控制建连之后每一步协议读写
// 两者相互独立：慢速服务可能秒连但读超时
type TimeoutConfig struct {
	Connect time.Duration
	Op      time.Duration
}

// DefaultTimeouts 默认超时 (连接 3s / 单步操作 5s)
func DefaultTimeouts() TimeoutConfig {
	return TimeoutConfig{
		Connect: 3 * time.Second,
		Op:      5 * time.Second,
	}
}

// Credential 一组默认凭据
type Credential struct {
	Username string
	Password string
}

// Options 探测器构造配置
// 凭据列表和采样上限通过构造注入而不是包级全局变量，方便测试替换
type Options struct {
	// Credentials 默认凭据列表，认证类探测器逐个尝试，命中即停
	Credentials []Credential

	// Communities SNMP community 字符串列表 (SNMP 语义下的 "凭据")
	Communities []string

	// SampleLimit introspection 采样上限 (数据库列表/键列表等)
	SampleLimit int
}

// DefaultOptions 内置的小型默认凭据集
// 刻意保持很小：这里做的是默认口令观察，不是爆破
func DefaultOptions() Options {
	return Options{
		Credentials: []Credential{
			{"root", "root"},
			{"root", "123456"},
			{"admin", "admin"},
			{"admin", "password"},
			{"test", "test"},
			{"user", "password"},
		},
		Communities: []string{"public", "private", "community", "manager"},
		SampleLimit: 10,
	}
}

// Check 协议探测器接口
// 每种协议一个实现，是系统唯一的扩展单元
type Check interface {
	// Name 协议名称 (e.g. "redis", "ajp")
	Name() string

	// DefaultPorts 协议默认端口集
	DefaultPorts() []int

	// Probe 对单个 (target, port) 执行一次有界的协议交互
	//
	// 契约: 永不 panic，也没有 error 返回值
	// 所有内部失败 (拒绝连接/超时/响应不合法/协议错误) 都被捕获并
	// 归类进 CheckResult 的 Error/ErrorKind 字段
	// Reachable 只反映 TCP 建连结果；子步骤失败只降级字段，不中止整个探测
	// 每个出口路径都必须关闭已打开的连接
	Probe(ctx context.Context, target string, port int, tc TimeoutConfig) *model.CheckResult
}

var (
	// ErrAuthFailed 所有凭据尝试均失败 (负向结果，不是系统错误)
	ErrAuthFailed = errors.New("auth failed")

	// ErrConnectionFailed 连接失败 (超时/拒绝/重置)
	ErrConnectionFailed = errors.New("connection failed")

	// ErrProtocolError 协议交互错误 (非预期响应)
	ErrProtocolError = errors.New("protocol error")
)

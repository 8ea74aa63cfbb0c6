package model

import (
	"fmt"
	"net"
	"sort"
	"strconv"
	"time"
)

// ErrorKind 探测失败的分类标签
// 每个 CheckResult 的 Error 字段都会带上其中一个前缀，方便聚合统计
type ErrorKind string

const (
	ErrKindTCPUnreachable  ErrorKind = "tcp_unreachable"  // TCP 连接失败/超时
	ErrKindProtocolTimeout ErrorKind = "protocol_timeout" // 连接成功但某一步读写超时
	ErrKindProtocolError   ErrorKind = "protocol_error"   // 响应不符合协议预期
	ErrKindAuthFailed      ErrorKind = "auth_failed"      // 所有凭据尝试均失败
	ErrKindTimedOut        ErrorKind = "timed_out"        // 整体运行超时，探测未完成
	ErrKindUnhandled       ErrorKind = "unhandled"        // 兜底：未分类的内部错误
)

// WorkItem 一个 (目标, 端口) 探测单元
// 由 Scheduler 根据目标列表与端口列表的笛卡尔积生成，生成后不可变
type WorkItem struct {
	Target string
	Port   int
}

func (w WorkItem) Addr() string {
	return net.JoinHostPort(w.Target, strconv.Itoa(w.Port))
}

// CheckResult 单个探测单元的结果
// 在一次 Check 调用内部构造，返回后不再修改，归 Aggregator 所有
//
// 不变量: Reachable == false 时 Fields 必须为空，Error 必须非空
// Reachable 与 Detected 是两个独立的信号：前者只表示 TCP 连接成功，
// 后者表示协议层面确认了服务身份，不能互相推断
type CheckResult struct {
	Target    string         `json:"target" yaml:"target"`
	Port      int            `json:"port" yaml:"port"`
	Service   string         `json:"service" yaml:"service"`
	Timestamp time.Time      `json:"timestamp" yaml:"timestamp"`
	Reachable bool           `json:"reachable" yaml:"reachable"`
	Detected  bool           `json:"detected" yaml:"detected"`
	Fields    map[string]any `json:"fields,omitempty" yaml:"fields,omitempty"`
	Error     string         `json:"error,omitempty" yaml:"error,omitempty"`
	ErrorKind ErrorKind      `json:"error_kind,omitempty" yaml:"error_kind,omitempty"`
}

// NewCheckResult 创建结果骨架 (默认不可达，无字段)
func NewCheckResult(service, target string, port int) *CheckResult {
	return &CheckResult{
		Target:    target,
		Port:      port,
		Service:   service,
		Timestamp: time.Now().UTC(),
	}
}

// SetField 记录一个协议相关字段
// 只有在 Reachable 之后才允许写入字段，保证不变量成立
func (r *CheckResult) SetField(key string, value any) {
	if !r.Reachable {
		return
	}
	if r.Fields == nil {
		r.Fields = make(map[string]any)
	}
	r.Fields[key] = value
}

// Field 读取协议相关字段 (不存在返回 nil)
func (r *CheckResult) Field(key string) any {
	if r.Fields == nil {
		return nil
	}
	return r.Fields[key]
}

// Fail 记录失败原因
// kind 为分类标签，cause 为底层错误描述
func (r *CheckResult) Fail(kind ErrorKind, cause string) {
	r.ErrorKind = kind
	if cause == "" {
		r.Error = string(kind)
		return
	}
	r.Error = fmt.Sprintf("%s: %s", kind, cause)
}

// SortResults 按 (target, port) 排序
// 并发探测的完成顺序不确定，序列化前必须排序，保证同输入产出字节一致的报告
func SortResults(results []*CheckResult) {
	sort.Slice(results, func(i, j int) bool {
		if results[i].Target != results[j].Target {
			return results[i].Target < results[j].Target
		}
		return results[i].Port < results[j].Port
	})
}

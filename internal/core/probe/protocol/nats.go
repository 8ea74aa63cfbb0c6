package protocol

import (
	"context"
	"encoding/json"
	"strings"

	"netrecon/internal/core/lib/network/dialer"
	"netrecon/internal/core/model"
	"netrecon/internal/core/probe"
)

// NATSCheck NATS 文本协议探测器
//
// 检测原理:
// 1. NATS 服务端建连后主动推送 "INFO {json}\r\n"，解析即可拿到版本/集群/认证要求
// 2. 再发送 "PING\r\n"，收到 "PONG" 进一步确认协议活性
// 3. PONG 收不到不推翻 INFO 的结论 (需要认证的服务端可能直接断开)
type NATSCheck struct{}

func NewNATSCheck(_ probe.Options) *NATSCheck {
	return &NATSCheck{}
}

func (c *NATSCheck) Name() string {
	return "nats"
}

func (c *NATSCheck) DefaultPorts() []int {
	return []int{4222}
}

func (c *NATSCheck) Probe(ctx context.Context, host string, port int, tc probe.TimeoutConfig) *model.CheckResult {
	res := model.NewCheckResult(c.Name(), host, port)

	conn, err := dialer.DialTCP(ctx, host, port, tc.Connect)
	if err != nil {
		res.Fail(model.ErrKindTCPUnreachable, err.Error())
		return res
	}
	defer conn.Close()
	res.Reachable = true

	lr := dialer.NewLineReader(conn)

	line, err := lr.ReadLine(tc.Op)
	if err != nil {
		res.Fail(classifyIOError(err), err.Error())
		return res
	}
	if !strings.HasPrefix(line, "INFO ") {
		res.Fail(model.ErrKindProtocolError, "greeting is not an INFO line")
		return res
	}
	res.Detected = true

	var info struct {
		ServerName   string `json:"server_name"`
		Version      string `json:"version"`
		Cluster      string `json:"cluster"`
		AuthRequired bool   `json:"auth_required"`
		TLSRequired  bool   `json:"tls_required"`
		JetStream    bool   `json:"jetstream"`
		MaxPayload   int64  `json:"max_payload"`
	}
	if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "INFO ")), &info); err != nil {
		// INFO 前缀已经足够确认服务，JSON 解析失败只记录
		res.SetField("info_parse_error", err.Error())
		return res
	}

	res.SetField("version", info.Version)
	res.SetField("server_name", info.ServerName)
	res.SetField("cluster", info.Cluster)
	res.SetField("auth_required", info.AuthRequired)
	res.SetField("tls_required", info.TLSRequired)
	res.SetField("jetstream", info.JetStream)
	res.SetField("max_payload", info.MaxPayload)

	// PING/PONG 活性确认
	if err := dialer.WriteAll(conn, []byte("PING\r\n"), tc.Op); err == nil {
		if pong, err := lr.ReadLine(tc.Op); err == nil {
			res.SetField("pong_received", strings.HasPrefix(pong, "PONG"))
		}
	}

	return res
}

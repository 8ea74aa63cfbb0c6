package protocol

import (
	"bytes"
	"context"
	"encoding/hex"

	"netrecon/internal/core/lib/network/dialer"
	"netrecon/internal/core/model"
	"netrecon/internal/core/probe"
)

// AJP13 CPING 帧: magic 0x1234 + 长度 0x0001 + 负载 0x0A
var ajpCPing = []byte{0x12, 0x34, 0x00, 0x01, 0x0A}

// AJP13 CPONG 帧: magic "AB" + 长度 0x0001 + 负载 0x09
var ajpCPong = []byte{0x41, 0x42, 0x00, 0x01, 0x09}

// AJPCheck AJP13 二进制协议探测器
//
// 检测原理:
// 1. 发送 CPING 帧，标准 AJP13 连接器必须回 CPONG
// 2. 收到 CPONG 即确认服务；响应前缀是 "AB" 或 0x1234 也视为 AJP 特征
// 3. 只做连接器活性探测，不构造 FORWARD_REQUEST (不触发后端应用请求)
type AJPCheck struct{}

func NewAJPCheck(_ probe.Options) *AJPCheck {
	return &AJPCheck{}
}

func (c *AJPCheck) Name() string {
	return "ajp"
}

func (c *AJPCheck) DefaultPorts() []int {
	return []int{8009}
}

func (c *AJPCheck) Probe(ctx context.Context, host string, port int, tc probe.TimeoutConfig) *model.CheckResult {
	res := model.NewCheckResult(c.Name(), host, port)

	conn, err := dialer.DialTCP(ctx, host, port, tc.Connect)
	if err != nil {
		res.Fail(model.ErrKindTCPUnreachable, err.Error())
		return res
	}
	defer conn.Close()
	res.Reachable = true

	if err := dialer.WriteAll(conn, ajpCPing, tc.Op); err != nil {
		res.Fail(classifyIOError(err), err.Error())
		return res
	}

	resp, err := dialer.ReadSome(conn, 64, tc.Op)
	if err != nil {
		res.Fail(classifyIOError(err), err.Error())
		return res
	}
	res.SetField("raw_response_hex", hex.EncodeToString(resp))

	cpong := len(resp) >= len(ajpCPong) && bytes.Equal(resp[:len(ajpCPong)], ajpCPong)
	res.SetField("cpong_received", cpong)

	detected := cpong ||
		(len(resp) >= 2 && (bytes.Equal(resp[:2], []byte{0x12, 0x34}) || bytes.Equal(resp[:2], []byte("AB"))))
	if detected {
		res.Detected = true
	} else {
		res.Fail(model.ErrKindProtocolError, "response does not match AJP13 framing")
	}

	return res
}

package protocol

import (
	"bytes"
	"context"

	"netrecon/internal/core/lib/network/dialer"
	"netrecon/internal/core/model"
	"netrecon/internal/core/probe"
	"netrecon/internal/pkg/utils"
)

// jdwpHandshake JDWP 握手魔术串，客户端服务端各发一次
var jdwpHandshake = []byte("JDWP-Handshake")

// JDWPCheck JDWP 调试端口探测器
//
// 检测原理:
// 1. JDWP 握手是 14 字节明文 "JDWP-Handshake"，服务端原样回显
// 2. 回显一致即确认调试端口暴露 (这是高危暴露: JDWP 无认证，可任意执行代码)
// 3. 握手成功后不再发送任何 JDWP 命令
type JDWPCheck struct{}

func NewJDWPCheck(_ probe.Options) *JDWPCheck {
	return &JDWPCheck{}
}

func (c *JDWPCheck) Name() string {
	return "jdwp"
}

func (c *JDWPCheck) DefaultPorts() []int {
	return []int{5005, 8000}
}

func (c *JDWPCheck) Probe(ctx context.Context, host string, port int, tc probe.TimeoutConfig) *model.CheckResult {
	res := model.NewCheckResult(c.Name(), host, port)

	conn, err := dialer.DialTCP(ctx, host, port, tc.Connect)
	if err != nil {
		res.Fail(model.ErrKindTCPUnreachable, err.Error())
		return res
	}
	defer conn.Close()
	res.Reachable = true

	if err := dialer.WriteAll(conn, jdwpHandshake, tc.Op); err != nil {
		res.Fail(classifyIOError(err), err.Error())
		return res
	}

	resp, err := dialer.ReadFull(conn, len(jdwpHandshake), tc.Op)
	if err != nil {
		res.Fail(classifyIOError(err), err.Error())
		return res
	}

	if !bytes.Equal(resp, jdwpHandshake) {
		res.Fail(model.ErrKindProtocolError, "handshake echo mismatch: "+utils.Truncate(string(resp), 32))
		return res
	}

	res.Detected = true
	res.SetField("handshake_echoed", true)
	// JDWP 无认证机制，握手成功即意味着调试器可接管 JVM
	res.SetField("debugger_exposed", true)

	return res
}

package protocol

import (
	"context"
	"fmt"
	"strings"

	"netrecon/internal/core/lib/network/dialer"
	"netrecon/internal/core/model"
	"netrecon/internal/core/probe"
	"netrecon/internal/pkg/utils"
)

// VNCCheck VNC RFB 握手探测器
//
// 检测原理:
// 1. RFB 握手第一步由服务端发送 12 字节版本串 "RFB xxx.yyy\n"
// 2. 原样回显版本串后，服务端发送支持的安全类型列表
// 3. 安全类型 1 (None) 出现即为未认证访问暴露
// 4. 拿到安全类型后立即断开，不进入认证阶段
type VNCCheck struct{}

// rfbSecurityTypes RFB 6.1.2 安全类型
var rfbSecurityTypes = map[byte]string{
	0:  "invalid",
	1:  "none",
	2:  "vnc_authentication",
	5:  "ra2",
	6:  "ra2ne",
	16: "tight",
	18: "tls",
	19: "vencrypt",
}

func NewVNCCheck(_ probe.Options) *VNCCheck {
	return &VNCCheck{}
}

func (c *VNCCheck) Name() string {
	return "vnc"
}

func (c *VNCCheck) DefaultPorts() []int {
	return []int{5900, 5901}
}

func (c *VNCCheck) Probe(ctx context.Context, host string, port int, tc probe.TimeoutConfig) *model.CheckResult {
	res := model.NewCheckResult(c.Name(), host, port)

	conn, err := dialer.DialTCP(ctx, host, port, tc.Connect)
	if err != nil {
		res.Fail(model.ErrKindTCPUnreachable, err.Error())
		return res
	}
	defer conn.Close()
	res.Reachable = true

	// 1. 服务端版本串 "RFB 003.008\n"
	version, err := dialer.ReadFull(conn, 12, tc.Op)
	if err != nil {
		res.Fail(classifyIOError(err), err.Error())
		return res
	}
	verStr := strings.TrimSpace(string(version))
	if !strings.HasPrefix(verStr, "RFB ") {
		res.Fail(model.ErrKindProtocolError, "greeting is not RFB: "+utils.Truncate(verStr, 32))
		return res
	}
	res.Detected = true
	res.SetField("rfb_version", verStr)

	// 2. 回显版本完成版本协商
	// 版本确认之后的任何中断都记录到 handshake_incomplete，
	// 和 "服务端给出空安全类型列表" 区分开
	if err := dialer.WriteAll(conn, version, tc.Op); err != nil {
		res.SetField("handshake_incomplete", err.Error())
		return res
	}

	// 3. 安全类型列表 (RFB 3.7+: count + types；RFB 3.3: 4 字节单类型)
	count, err := dialer.ReadFull(conn, 1, tc.Op)
	if err != nil {
		res.SetField("handshake_incomplete", err.Error())
		return res
	}

	var types []byte
	if count[0] == 0 {
		// count=0 表示服务端拒绝，后跟原因串；RFB 3.3 里是 4 字节类型的高位字节
		rest, err := dialer.ReadSome(conn, 256, tc.Op)
		if err != nil {
			res.SetField("handshake_incomplete", err.Error())
			return res
		}
		if len(rest) >= 3 && rest[0] == 0 && rest[1] == 0 {
			types = []byte{rest[2]}
		} else {
			res.SetField("handshake_refused", utils.Printable(string(rest)))
			return res
		}
	} else {
		types, err = dialer.ReadFull(conn, int(count[0]), tc.Op)
		if err != nil {
			res.SetField("handshake_incomplete", err.Error())
			return res
		}
	}

	var names []string
	noneAuth := false
	for _, t := range types {
		name, ok := rfbSecurityTypes[t]
		if !ok {
			name = fmt.Sprintf("unknown_%d", t)
		}
		names = append(names, name)
		if t == 1 {
			noneAuth = true
		}
	}
	res.SetField("security_types", names)
	res.SetField("no_auth_supported", noneAuth)

	return res
}

package protocol

import (
	"context"
	"fmt"
	"net"
	"strings"

	"netrecon/internal/core/lib/network/dialer"
	"netrecon/internal/core/model"
	"netrecon/internal/core/probe"
	"netrecon/internal/pkg/utils"
)

// SMTPCheck SMTP 文本协议探测器
//
// 检测原理:
// 1. 建连后读取 220 欢迎 banner 即确认服务
// 2. 发送 EHLO 收集能力列表 (多行 250 响应): STARTTLS / AUTH 机制
// 3. VRFY/EXPN 探测用户枚举暴露 (252/250 视为开启)
// 4. 每一步失败只降级，banner 的结论保留
type SMTPCheck struct{}

func NewSMTPCheck(_ probe.Options) *SMTPCheck {
	return &SMTPCheck{}
}

func (c *SMTPCheck) Name() string {
	return "smtp"
}

func (c *SMTPCheck) DefaultPorts() []int {
	return []int{25}
}

func (c *SMTPCheck) Probe(ctx context.Context, host string, port int, tc probe.TimeoutConfig) *model.CheckResult {
	res := model.NewCheckResult(c.Name(), host, port)

	conn, err := dialer.DialTCP(ctx, host, port, tc.Connect)
	if err != nil {
		res.Fail(model.ErrKindTCPUnreachable, err.Error())
		return res
	}
	defer conn.Close()
	res.Reachable = true

	lr := dialer.NewLineReader(conn)

	// 1. banner
	banner, err := lr.ReadLine(tc.Op)
	if err != nil {
		res.Fail(classifyIOError(err), err.Error())
		return res
	}
	if !strings.HasPrefix(banner, "220") {
		res.Fail(model.ErrKindProtocolError, "unexpected greeting: "+utils.Truncate(banner, 128))
		return res
	}
	res.Detected = true
	res.SetField("banner", utils.Truncate(banner, 512))

	// 2. EHLO 能力收集
	ehlo, err := c.command(conn, lr, "EHLO probe.local", tc)
	if err == nil {
		res.SetField("ehlo", ehlo)
		var auth []string
		for _, line := range ehlo {
			body := strings.TrimSpace(strings.TrimLeft(line, "250- "))
			upper := strings.ToUpper(body)
			if upper == "STARTTLS" {
				res.SetField("starttls", true)
			}
			if strings.HasPrefix(upper, "AUTH ") {
				auth = strings.Fields(upper)[1:]
			}
		}
		if len(auth) > 0 {
			res.SetField("auth_mechanisms", auth)
		}
	}

	// 3. VRFY/EXPN 用户枚举暴露
	if lines, err := c.command(conn, lr, "VRFY root", tc); err == nil && len(lines) > 0 {
		res.SetField("vrfy_enabled", acceptedCode(lines[0]))
	}
	if lines, err := c.command(conn, lr, "EXPN root", tc); err == nil && len(lines) > 0 {
		res.SetField("expn_enabled", acceptedCode(lines[0]))
	}

	// 礼貌退出，不等响应
	_ = dialer.WriteAll(conn, []byte("QUIT\r\n"), tc.Op)

	return res
}

// command 发送一条命令并读取完整响应 (含多行响应，"250-" 续行，"250 " 结束)
func (c *SMTPCheck) command(conn net.Conn, lr *dialer.LineReader, cmd string, tc probe.TimeoutConfig) ([]string, error) {
	if err := dialer.WriteAll(conn, []byte(cmd+"\r\n"), tc.Op); err != nil {
		return nil, err
	}

	var lines []string
	for len(lines) < 64 {
		line, err := lr.ReadLine(tc.Op)
		if err != nil {
			if len(lines) > 0 {
				return lines, nil
			}
			return nil, err
		}
		lines = append(lines, line)
		// "xyz-" 是续行，"xyz " 或纯状态码是最后一行
		if len(line) < 4 || line[3] != '-' {
			break
		}
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("empty response to %q", cmd)
	}
	return lines, nil
}

// acceptedCode 250/252 视为命令被接受
func acceptedCode(line string) bool {
	if len(line) < 3 {
		return false
	}
	code := line[:3]
	return code == "250" || code == "252"
}

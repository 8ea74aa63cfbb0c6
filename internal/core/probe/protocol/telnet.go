package protocol

import (
	"context"
	"regexp"
	"time"

	"netrecon/internal/core/model"
	"netrecon/internal/core/probe"
	"netrecon/internal/pkg/utils"

	"github.com/ziutek/telnet"
)

// TelnetCheck Telnet 可达性/banner 探测器
//
// 最简单的探测形态：建连即 reachable，之后尽力读一段欢迎信息
// ziutek/telnet 会自动应答 IAC 协商字节，读到的就是纯文本 banner
// 读不到 banner 不算失败，只是降级 (很多设备静默等待输入)
type TelnetCheck struct {
	reLogin *regexp.Regexp
}

func NewTelnetCheck(_ probe.Options) *TelnetCheck {
	return &TelnetCheck{
		// 常见登录提示符: login:, Login:, User Name:, Username:, Password:
		reLogin: regexp.MustCompile(`(?i)(login|user\s*name|username|password)[\s:]*$`),
	}
}

func (c *TelnetCheck) Name() string {
	return "telnet"
}

func (c *TelnetCheck) DefaultPorts() []int {
	return []int{23}
}

func (c *TelnetCheck) Probe(ctx context.Context, host string, port int, tc probe.TimeoutConfig) *model.CheckResult {
	res := model.NewCheckResult(c.Name(), host, port)

	dialTimeout := tc.Connect
	if deadline, ok := ctx.Deadline(); ok {
		if remain := time.Until(deadline); remain < dialTimeout {
			dialTimeout = remain
		}
	}
	if dialTimeout <= 0 {
		res.Fail(model.ErrKindTCPUnreachable, "context deadline exceeded before dial")
		return res
	}

	addr := hostPort(host, port)
	conn, err := telnet.DialTimeout("tcp", addr, dialTimeout)
	if err != nil {
		res.Fail(model.ErrKindTCPUnreachable, err.Error())
		return res
	}
	defer conn.Close()
	res.Reachable = true

	// 读取欢迎 banner (最多 1KB)
	// 很多设备要等协商完成才吐数据，靠 read deadline 兜底
	conn.SetReadDeadline(time.Now().Add(tc.Op))
	buf := make([]byte, 1024)
	var banner []byte
	for len(banner) < cap(buf) {
		n, rerr := conn.Read(buf[:1])
		if n > 0 {
			banner = append(banner, buf[0])
			if c.reLogin.Match(banner) {
				break
			}
		}
		if rerr != nil {
			break
		}
	}

	text := utils.Printable(string(banner))
	if text != "" {
		res.Detected = true
		res.SetField("banner", utils.Truncate(text, 512))
		res.SetField("login_prompt", c.reLogin.Match(banner))
	}

	return res
}

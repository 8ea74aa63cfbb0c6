package protocol

import (
	"context"
	"fmt"
	"strings"

	"netrecon/internal/core/lib/network/dialer"
	"netrecon/internal/core/model"
	"netrecon/internal/core/probe"
	"netrecon/internal/pkg/utils"

	"github.com/jlaffaye/ftp"
)

// FTPCheck FTP 服务探测器
//
// 检测原理:
// 1. 裸 TCP 抓 220 欢迎 banner (jlaffaye/ftp 会吞掉 greeting，所以单独一条连接抓)
// 2. 尝试 anonymous 登录，再尝试默认凭据，命中即停
// 3. 登录成功后 NLST 根目录采样少量条目 (只读)
type FTPCheck struct {
	creds       []probe.Credential
	sampleLimit int
}

func NewFTPCheck(opts probe.Options) *FTPCheck {
	return &FTPCheck{
		creds:       opts.Credentials,
		sampleLimit: opts.SampleLimit,
	}
}

func (c *FTPCheck) Name() string {
	return "ftp"
}

func (c *FTPCheck) DefaultPorts() []int {
	return []int{21}
}

func (c *FTPCheck) Probe(ctx context.Context, host string, port int, tc probe.TimeoutConfig) *model.CheckResult {
	res := model.NewCheckResult(c.Name(), host, port)

	// 1. banner
	conn, err := dialer.DialTCP(ctx, host, port, tc.Connect)
	if err != nil {
		res.Fail(model.ErrKindTCPUnreachable, err.Error())
		return res
	}
	res.Reachable = true
	banner, rerr := dialer.NewLineReader(conn).ReadLine(tc.Op)
	conn.Close()
	if rerr == nil && banner != "" {
		res.SetField("banner", utils.Truncate(banner, 512))
		if strings.HasPrefix(banner, "220") {
			res.Detected = true
		}
	}

	// 2. anonymous 登录
	if ok, err := c.tryLogin(ctx, host, port, "anonymous", "anonymous@example.com", tc); ok {
		res.Detected = true
		res.SetField("anonymous_login", true)
		c.sampleListing(ctx, host, port, "anonymous", "anonymous@example.com", tc, res)
		return res
	} else if kind := c.classify(err); kind != "" {
		res.Fail(kind, err.Error())
		return res
	}
	res.SetField("anonymous_login", false)

	// 3. 默认凭据
	for _, cred := range c.creds {
		select {
		case <-ctx.Done():
			res.Fail(model.ErrKindProtocolTimeout, ctx.Err().Error())
			return res
		default:
		}

		if ok, err := c.tryLogin(ctx, host, port, cred.Username, cred.Password, tc); ok {
			res.Detected = true
			res.SetField("default_credential", fmt.Sprintf("%s:%s", cred.Username, cred.Password))
			c.sampleListing(ctx, host, port, cred.Username, cred.Password, tc, res)
			return res
		} else if kind := c.classify(err); kind != "" {
			res.Fail(kind, err.Error())
			return res
		}
	}

	res.Fail(model.ErrKindAuthFailed, "anonymous and default credentials rejected")
	return res
}

// tryLogin 单次登录尝试
// 返回 (false, nil) 表示明确的认证拒绝
func (c *FTPCheck) tryLogin(ctx context.Context, host string, port int, user, pass string, tc probe.TimeoutConfig) (bool, error) {
	conn, err := ftp.Dial(hostPort(host, port),
		ftp.DialWithContext(ctx),
		ftp.DialWithTimeout(tc.Connect))
	if err != nil {
		return false, probe.ErrConnectionFailed
	}
	defer conn.Quit()

	if err := conn.Login(user, pass); err != nil {
		// 530 Login incorrect / Not logged in
		if strings.HasPrefix(err.Error(), "530") {
			return false, nil
		}
		// 421 Too many connections 等服务端限制
		if strings.HasPrefix(err.Error(), "421") {
			return false, probe.ErrConnectionFailed
		}
		return false, err
	}

	conn.Logout()
	return true, nil
}

// sampleListing 登录成功后采样根目录条目
func (c *FTPCheck) sampleListing(ctx context.Context, host string, port int, user, pass string, tc probe.TimeoutConfig, res *model.CheckResult) {
	conn, err := ftp.Dial(hostPort(host, port),
		ftp.DialWithContext(ctx),
		ftp.DialWithTimeout(tc.Connect))
	if err != nil {
		return
	}
	defer conn.Quit()

	if err := conn.Login(user, pass); err != nil {
		return
	}

	names, err := conn.NameList("/")
	if err != nil {
		return
	}
	if len(names) > c.sampleLimit {
		names = names[:c.sampleLimit]
	}
	res.SetField("root_listing", names)
}

// classify 归类 FTP 错误，空串表示认证层失败可以继续试下一组凭据
func (c *FTPCheck) classify(err error) model.ErrorKind {
	if err == nil {
		return ""
	}
	if err == probe.ErrConnectionFailed {
		return model.ErrKindProtocolTimeout
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "timeout") || strings.Contains(msg, "eof") {
		return model.ErrKindProtocolTimeout
	}
	return model.ErrKindProtocolError
}

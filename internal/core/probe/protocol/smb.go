package protocol

import (
	"context"
	"fmt"
	"strings"
	"time"

	"netrecon/internal/core/model"
	"netrecon/internal/core/probe"

	"github.com/stacktitan/smb/smb"
)

// SMBCheck SMB 服务探测器
//
// 检测原理:
// 1. 先尝试空会话 (null session)，成功即匿名访问暴露
// 2. 空会话被拒后逐个尝试默认凭据
// 3. stacktitan/smb 不支持 context 取消，用 goroutine + select 包一层超时
type SMBCheck struct {
	creds []probe.Credential
}

func NewSMBCheck(opts probe.Options) *SMBCheck {
	return &SMBCheck{creds: opts.Credentials}
}

func (c *SMBCheck) Name() string {
	return "smb"
}

func (c *SMBCheck) DefaultPorts() []int {
	return []int{445}
}

func (c *SMBCheck) Probe(ctx context.Context, host string, port int, tc probe.TimeoutConfig) *model.CheckResult {
	res := model.NewCheckResult(c.Name(), host, port)
	if !reachTCP(ctx, res, host, port, tc) {
		return res
	}

	// 1. 空会话
	ok, err := c.trySession(ctx, host, port, "", "", tc)
	if ok {
		res.Detected = true
		res.SetField("null_session", true)
		return res
	}
	if kind := c.classify(err); kind != "" {
		res.Fail(kind, err.Error())
		return res
	}
	// 认证层拒绝说明 SMB 协商已走通
	res.Detected = true
	res.SetField("null_session", false)

	// 2. 默认凭据
	for _, cred := range c.creds {
		select {
		case <-ctx.Done():
			res.Fail(model.ErrKindProtocolTimeout, ctx.Err().Error())
			return res
		default:
		}

		ok, err := c.trySession(ctx, host, port, cred.Username, cred.Password, tc)
		if ok {
			res.SetField("default_credential", fmt.Sprintf("%s:%s", cred.Username, cred.Password))
			return res
		}
		if kind := c.classify(err); kind != "" {
			res.Fail(kind, err.Error())
			return res
		}
	}

	res.Fail(model.ErrKindAuthFailed, "null session and default credentials rejected")
	return res
}

// trySession 单次会话尝试
// 返回 (false, nil) 表示明确的认证拒绝
func (c *SMBCheck) trySession(ctx context.Context, host string, port int, user, pass string, tc probe.TimeoutConfig) (bool, error) {
	options := smb.Options{
		Host:        host,
		Port:        port,
		User:        user,
		Password:    pass,
		Domain:      "",
		Workstation: "",
	}

	type outcome struct {
		ok  bool
		err error
	}
	ch := make(chan outcome, 1)

	// smb.NewSession 同步阻塞且不接受 context，超时后放弃等待
	go func() {
		session, err := smb.NewSession(options, false)
		if err != nil {
			ch <- outcome{false, err}
			return
		}
		defer session.Close()
		ch <- outcome{session.IsAuthenticated, nil}
	}()

	timer := time.NewTimer(tc.Connect + tc.Op)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false, probe.ErrConnectionFailed
	case <-timer.C:
		return false, probe.ErrConnectionFailed
	case out := <-ch:
		if out.ok {
			return true, nil
		}
		if out.err == nil {
			return false, nil
		}
		// NTLM 认证失败
		msg := out.err.Error()
		if strings.Contains(msg, "STATUS_LOGON_FAILURE") ||
			strings.Contains(msg, "STATUS_WRONG_PASSWORD") ||
			strings.Contains(msg, "login failed") {
			return false, nil
		}
		return false, out.err
	}
}

// classify 归类 SMB 错误，空串表示认证层失败可继续
func (c *SMBCheck) classify(err error) model.ErrorKind {
	if err == nil {
		return ""
	}
	if err == probe.ErrConnectionFailed {
		return model.ErrKindProtocolTimeout
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "timeout") ||
		strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "eof") {
		return model.ErrKindProtocolTimeout
	}
	return model.ErrKindProtocolError
}

package protocol

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"netrecon/internal/core/model"
	"netrecon/internal/core/probe"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

// ClickHouseCheck ClickHouse 服务探测器
//
// 检测原理:
// 1. 先尝试 default 用户空密码 (官方镜像默认配置)，再逐个尝试默认凭据
// 2. 服务端异常码 516 (AUTHENTICATION_FAILED) 即确认身份，继续下一组
// 3. 登录成功后只读收集: version()、库名列表 (采样)
type ClickHouseCheck struct {
	creds       []probe.Credential
	sampleLimit int
}

func NewClickHouseCheck(opts probe.Options) *ClickHouseCheck {
	return &ClickHouseCheck{
		creds:       opts.Credentials,
		sampleLimit: opts.SampleLimit,
	}
}

func (c *ClickHouseCheck) Name() string {
	return "clickhouse"
}

func (c *ClickHouseCheck) DefaultPorts() []int {
	return []int{9000}
}

func (c *ClickHouseCheck) Probe(ctx context.Context, host string, port int, tc probe.TimeoutConfig) *model.CheckResult {
	res := model.NewCheckResult(c.Name(), host, port)
	if !reachTCP(ctx, res, host, port, tc) {
		return res
	}

	creds := append([]probe.Credential{{Username: "default", Password: ""}}, c.creds...)
	for _, cred := range creds {
		select {
		case <-ctx.Done():
			res.Fail(model.ErrKindProtocolTimeout, ctx.Err().Error())
			return res
		default:
		}

		conn, err := c.open(ctx, host, port, cred, tc)
		if err == nil {
			res.Detected = true
			if cred.Username == "default" && cred.Password == "" {
				res.SetField("unauthenticated_access", true)
			} else {
				res.SetField("default_credential", fmt.Sprintf("%s:%s", cred.Username, cred.Password))
			}
			c.introspect(ctx, conn, res)
			conn.Close()
			return res
		}

		kind, confirmed := c.classify(err)
		if confirmed {
			res.Detected = true
		}
		if kind != "" {
			res.Fail(kind, err.Error())
			return res
		}
	}

	if res.Detected {
		res.Fail(model.ErrKindAuthFailed, "no default credential accepted")
	} else {
		res.Fail(model.ErrKindProtocolError, "clickhouse native handshake not completed")
	}
	return res
}

// open 建立 native 协议连接并验证凭据
func (c *ClickHouseCheck) open(ctx context.Context, host string, port int, cred probe.Credential, tc probe.TimeoutConfig) (driver.Conn, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{hostPort(host, port)},
		Auth: clickhouse.Auth{
			Database: "default",
			Username: cred.Username,
			Password: cred.Password,
		},
		DialTimeout: tc.Connect,
		ReadTimeout: tc.Op,
		Protocol:    clickhouse.Native,
	})
	if err != nil {
		return nil, err
	}
	if err := conn.Ping(ctx); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}

// introspect 只读信息收集
func (c *ClickHouseCheck) introspect(ctx context.Context, conn driver.Conn, res *model.CheckResult) {
	var version string
	if err := conn.QueryRow(ctx, "SELECT version()").Scan(&version); err == nil {
		res.SetField("version", version)
	}

	rows, err := conn.Query(ctx, "SHOW DATABASES")
	if err != nil {
		return
	}
	defer rows.Close()

	var databases []string
	for rows.Next() {
		var name string
		if rows.Scan(&name) == nil {
			databases = append(databases, name)
		}
		if len(databases) >= c.sampleLimit {
			break
		}
	}
	res.SetField("databases", databases)
}

// classify 归类 ClickHouse 错误
// 返回 (kind, confirmed): kind 空串表示认证层失败可继续；confirmed 表示服务身份已确认
func (c *ClickHouseCheck) classify(err error) (model.ErrorKind, bool) {
	if err == nil {
		return "", false
	}

	var exc *clickhouse.Exception
	if errors.As(err, &exc) {
		switch exc.Code {
		case 516: // AUTHENTICATION_FAILED
			return "", true
		case 192, 193: // UNKNOWN_USER / WRONG_PASSWORD
			return "", true
		default:
			return model.ErrKindProtocolError, true
		}
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "authentication failed") {
		return "", true
	}
	if strings.Contains(msg, "timeout") ||
		strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "context deadline exceeded") {
		return model.ErrKindProtocolTimeout, false
	}
	return model.ErrKindProtocolError, false
}

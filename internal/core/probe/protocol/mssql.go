package protocol

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"netrecon/internal/core/model"
	"netrecon/internal/core/probe"

	mssql "github.com/denisenkom/go-mssqldb"
)

// MSSQLCheck SQL Server 服务探测器
//
// 检测原理:
// 1. 以 sa 打头逐个尝试默认凭据走 TDS 登录
// 2. 服务端返回 18456 (Login failed) 即确认 SQL Server 身份，继续下一组
// 3. 登录成功后只读收集: @@VERSION、库名列表 (采样)
type MSSQLCheck struct {
	creds       []probe.Credential
	sampleLimit int
}

func NewMSSQLCheck(opts probe.Options) *MSSQLCheck {
	return &MSSQLCheck{
		creds:       opts.Credentials,
		sampleLimit: opts.SampleLimit,
	}
}

func (c *MSSQLCheck) Name() string {
	return "mssql"
}

func (c *MSSQLCheck) DefaultPorts() []int {
	return []int{1433}
}

func (c *MSSQLCheck) Probe(ctx context.Context, host string, port int, tc probe.TimeoutConfig) *model.CheckResult {
	res := model.NewCheckResult(c.Name(), host, port)
	if !reachTCP(ctx, res, host, port, tc) {
		return res
	}

	creds := append([]probe.Credential{{Username: "sa", Password: "sa"}}, c.creds...)
	for _, cred := range creds {
		select {
		case <-ctx.Done():
			res.Fail(model.ErrKindProtocolTimeout, ctx.Err().Error())
			return res
		default:
		}

		db, err := c.open(ctx, host, port, cred, tc)
		if err == nil {
			res.Detected = true
			res.SetField("default_credential", fmt.Sprintf("%s:%s", cred.Username, cred.Password))
			c.introspect(ctx, db, res)
			db.Close()
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
		res.Fail(model.ErrKindProtocolError, "tds handshake not completed")
	}
	return res
}

// open 建立连接并验证凭据
func (c *MSSQLCheck) open(ctx context.Context, host string, port int, cred probe.Credential, tc probe.TimeoutConfig) (*sql.DB, error) {
	u := &url.URL{
		Scheme: "sqlserver",
		User:   url.UserPassword(cred.Username, cred.Password),
		Host:   hostPort(host, port),
		RawQuery: url.Values{
			"dial timeout":       {fmt.Sprintf("%d", int(tc.Connect.Seconds()))},
			"connection timeout": {fmt.Sprintf("%d", int(tc.Op.Seconds()))},
			"encrypt":            {"disable"},
		}.Encode(),
	}

	db, err := sql.Open("sqlserver", u.String())
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// introspect 只读信息收集
func (c *MSSQLCheck) introspect(ctx context.Context, db *sql.DB, res *model.CheckResult) {
	var version string
	if err := db.QueryRowContext(ctx, "SELECT @@VERSION").Scan(&version); err == nil {
		res.SetField("version", strings.SplitN(version, "\n", 2)[0])
	}

	rows, err := db.QueryContext(ctx, "SELECT name FROM sys.databases")
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

// classify 归类 SQL Server 错误
// 返回 (kind, confirmed): kind 空串表示认证层失败可继续；confirmed 表示服务身份已确认
func (c *MSSQLCheck) classify(err error) (model.ErrorKind, bool) {
	if err == nil {
		return "", false
	}

	var mssqlErr mssql.Error
	if errors.As(err, &mssqlErr) {
		switch mssqlErr.Number {
		case 18456, 18452: // Login failed
			return "", true
		default:
			return model.ErrKindProtocolError, true
		}
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "login error") || strings.Contains(msg, "login failed") {
		return "", true
	}
	if strings.Contains(msg, "timeout") ||
		strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "context deadline exceeded") {
		return model.ErrKindProtocolTimeout, false
	}
	return model.ErrKindProtocolError, false
}

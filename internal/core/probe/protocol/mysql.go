package protocol

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"netrecon/internal/core/model"
	"netrecon/internal/core/probe"

	"github.com/go-sql-driver/mysql"
)

// MySQLCheck MySQL 服务探测器
//
// 检测原理:
// 1. 逐个尝试默认凭据建立连接并 Ping
// 2. 服务端返回 1045 (Access Denied) 即可确认 MySQL 身份，继续下一组凭据
// 3. 登录成功后只读收集: 版本号、库名列表 (采样)
type MySQLCheck struct {
	creds       []probe.Credential
	sampleLimit int
}

func NewMySQLCheck(opts probe.Options) *MySQLCheck {
	return &MySQLCheck{
		creds:       opts.Credentials,
		sampleLimit: opts.SampleLimit,
	}
}

func (c *MySQLCheck) Name() string {
	return "mysql"
}

func (c *MySQLCheck) DefaultPorts() []int {
	return []int{3306}
}

func (c *MySQLCheck) Probe(ctx context.Context, host string, port int, tc probe.TimeoutConfig) *model.CheckResult {
	res := model.NewCheckResult(c.Name(), host, port)
	if !reachTCP(ctx, res, host, port, tc) {
		return res
	}

	for _, cred := range c.creds {
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
		res.Fail(model.ErrKindProtocolError, "mysql handshake not completed")
	}
	return res
}

// open 建立连接并验证凭据
// 调用方负责 Close 成功返回的句柄
func (c *MySQLCheck) open(ctx context.Context, host string, port int, cred probe.Credential, tc probe.TimeoutConfig) (*sql.DB, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/?timeout=%s&readTimeout=%s&writeTimeout=%s",
		cred.Username, cred.Password, host, port, tc.Connect, tc.Op, tc.Op)

	db, err := sql.Open("mysql", dsn)
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

// introspect 只读信息收集，每一步失败都只降级
func (c *MySQLCheck) introspect(ctx context.Context, db *sql.DB, res *model.CheckResult) {
	var version string
	if err := db.QueryRowContext(ctx, "SELECT VERSION()").Scan(&version); err == nil {
		res.SetField("version", version)
	}

	rows, err := db.QueryContext(ctx, "SHOW DATABASES")
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

// classify 归类 MySQL 错误
// 返回 (kind, confirmed): kind 空串表示认证层失败可继续；confirmed 表示服务身份已确认
func (c *MySQLCheck) classify(err error) (model.ErrorKind, bool) {
	if err == nil {
		return "", false
	}

	// 服务端错误码意味着完整走完了握手，身份确认
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		switch mysqlErr.Number {
		case 1045, 1044: // Access denied
			return "", true
		case 1040: // Too many connections
			return model.ErrKindProtocolTimeout, true
		default:
			return model.ErrKindProtocolError, true
		}
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "timeout") ||
		strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "context deadline exceeded") {
		return model.ErrKindProtocolTimeout, false
	}
	return model.ErrKindProtocolError, false
}

package protocol

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"netrecon/internal/core/model"
	"netrecon/internal/core/probe"

	"github.com/lib/pq"
)

// PostgresCheck PostgreSQL 服务探测器
//
// 检测原理:
// 1. 以 postgres 库为目标逐个尝试默认凭据 (用户名空时退回 postgres 用户)
// 2. 服务端返回 28P01 (password authentication failed) 即确认身份，继续下一组
// 3. 登录成功后只读收集: SELECT version()、库名列表 (采样)
type PostgresCheck struct {
	creds       []probe.Credential
	sampleLimit int
}

func NewPostgresCheck(opts probe.Options) *PostgresCheck {
	return &PostgresCheck{
		creds:       opts.Credentials,
		sampleLimit: opts.SampleLimit,
	}
}

func (c *PostgresCheck) Name() string {
	return "postgres"
}

func (c *PostgresCheck) DefaultPorts() []int {
	return []int{5432}
}

func (c *PostgresCheck) Probe(ctx context.Context, host string, port int, tc probe.TimeoutConfig) *model.CheckResult {
	res := model.NewCheckResult(c.Name(), host, port)
	if !reachTCP(ctx, res, host, port, tc) {
		return res
	}

	creds := append([]probe.Credential{{Username: "postgres", Password: "postgres"}}, c.creds...)
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
		res.Fail(model.ErrKindProtocolError, "postgres handshake not completed")
	}
	return res
}

// open 建立连接并验证凭据
func (c *PostgresCheck) open(ctx context.Context, host string, port int, cred probe.Credential, tc probe.TimeoutConfig) (*sql.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=postgres sslmode=disable connect_timeout=%d",
		host, port, cred.Username, cred.Password, int(tc.Connect.Seconds()))

	db, err := sql.Open("postgres", dsn)
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
func (c *PostgresCheck) introspect(ctx context.Context, db *sql.DB, res *model.CheckResult) {
	var version string
	if err := db.QueryRowContext(ctx, "SELECT version()").Scan(&version); err == nil {
		res.SetField("version", version)
	}

	rows, err := db.QueryContext(ctx, "SELECT datname FROM pg_database WHERE datistemplate = false")
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

// classify 归类 PostgreSQL 错误
// 返回 (kind, confirmed): kind 空串表示认证层失败可继续；confirmed 表示服务身份已确认
func (c *PostgresCheck) classify(err error) (model.ErrorKind, bool) {
	if err == nil {
		return "", false
	}

	// 带 SQLSTATE 的服务端错误意味着确实在和 PostgreSQL 对话
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "28P01", "28000": // password auth failed / invalid authorization
			return "", true
		case "3D000": // 库不存在，认证已通过
			return "", true
		case "53300": // too many connections
			return model.ErrKindProtocolTimeout, true
		default:
			return model.ErrKindProtocolError, true
		}
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "password authentication failed") ||
		strings.Contains(msg, "no password supplied") {
		return "", true
	}
	if strings.Contains(msg, "timeout") ||
		strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "context deadline exceeded") {
		return model.ErrKindProtocolTimeout, false
	}
	return model.ErrKindProtocolError, false
}

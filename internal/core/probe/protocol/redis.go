package protocol

import (
	"context"
	"strings"

	"netrecon/internal/core/model"
	"netrecon/internal/core/probe"

	"github.com/redis/go-redis/v9"
)

// RedisCheck Redis 服务探测器
//
// 检测原理:
// 1. 先尝试无密码 PING，成功即未授权访问
// 2. 未授权失败时逐个尝试默认密码，命中即停
// 3. 任一凭据可用后执行只读 introspection:
//    INFO (版本/角色)、CONFIG GET (dir/requirepass)、DBSIZE、采样少量键名
type RedisCheck struct {
	creds       []probe.Credential
	sampleLimit int
}

func NewRedisCheck(opts probe.Options) *RedisCheck {
	return &RedisCheck{
		creds:       opts.Credentials,
		sampleLimit: opts.SampleLimit,
	}
}

func (c *RedisCheck) Name() string {
	return "redis"
}

func (c *RedisCheck) DefaultPorts() []int {
	return []int{6379}
}

func (c *RedisCheck) Probe(ctx context.Context, host string, port int, tc probe.TimeoutConfig) *model.CheckResult {
	res := model.NewCheckResult(c.Name(), host, port)
	if !reachTCP(ctx, res, host, port, tc) {
		return res
	}

	// 1. 无密码访问
	client, err := c.ping(ctx, host, port, "", tc)
	if err == nil {
		res.Detected = true
		res.SetField("unauthenticated_access", true)
		c.introspect(ctx, client, res)
		client.Close()
		return res
	}
	kind := c.classify(err)
	if kind != "" {
		// 不是 RESP 或者读写超时，别再拿密码试了
		res.Fail(kind, err.Error())
		return res
	}
	// NOAUTH / WRONGPASS: 服务确认是 Redis，只是要密码
	res.Detected = true
	res.SetField("unauthenticated_access", false)

	// 2. 默认密码
	for _, cred := range c.creds {
		if cred.Password == "" {
			continue
		}
		select {
		case <-ctx.Done():
			res.Fail(model.ErrKindProtocolTimeout, ctx.Err().Error())
			return res
		default:
		}

		client, err := c.ping(ctx, host, port, cred.Password, tc)
		if err == nil {
			res.Detected = true
			res.SetField("default_password", cred.Password)
			c.introspect(ctx, client, res)
			client.Close()
			return res
		}
		if k := c.classify(err); k != "" && k != model.ErrKindAuthFailed {
			res.Fail(k, err.Error())
			return res
		}
	}

	// 服务在但所有凭据都失败，负向结果而非系统错误
	res.Fail(model.ErrKindAuthFailed, "no default credential accepted")
	return res
}

// ping 建立客户端并执行 PING
// 调用方负责 Close 成功返回的客户端
func (c *RedisCheck) ping(ctx context.Context, host string, port int, password string, tc probe.TimeoutConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     hostPort(host, port),
		Password: password,
		DB:       0,

		DialTimeout:  tc.Connect,
		ReadTimeout:  tc.Op,
		WriteTimeout: tc.Op,

		// 禁用重试，快速失败
		MaxRetries: 0,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return client, nil
}

// introspect 只读信息收集，每一步失败都只降级
func (c *RedisCheck) introspect(ctx context.Context, client *redis.Client, res *model.CheckResult) {
	if info, err := client.Info(ctx, "server", "replication").Result(); err == nil {
		for _, line := range strings.Split(info, "\n") {
			line = strings.TrimSpace(line)
			if v, ok := strings.CutPrefix(line, "redis_version:"); ok {
				res.SetField("version", v)
			}
			if v, ok := strings.CutPrefix(line, "role:"); ok {
				res.SetField("role", v)
			}
		}
	}

	if cfg, err := client.ConfigGet(ctx, "dir").Result(); err == nil {
		res.SetField("config_dir", cfg["dir"])
	}
	if cfg, err := client.ConfigGet(ctx, "requirepass").Result(); err == nil {
		res.SetField("requirepass_set", cfg["requirepass"] != "")
	}

	if size, err := client.DBSize(ctx).Result(); err == nil {
		res.SetField("dbsize", size)
	}

	// 键名采样：SCAN 一轮就够，不遍历全库
	if keys, _, err := client.Scan(ctx, 0, "*", int64(c.sampleLimit)).Result(); err == nil {
		if len(keys) > c.sampleLimit {
			keys = keys[:c.sampleLimit]
		}
		res.SetField("sample_keys", keys)
	}
}

// classify 归类 go-redis 错误
// 返回空串表示认证层失败 (服务身份已确认)
func (c *RedisCheck) classify(err error) model.ErrorKind {
	if err == nil {
		return ""
	}
	msg := strings.ToLower(err.Error())

	// NOAUTH / WRONGPASS / invalid password: 是 Redis，密码不对
	if strings.Contains(msg, "noauth") ||
		strings.Contains(msg, "wrongpass") ||
		strings.Contains(msg, "invalid password") ||
		strings.Contains(msg, "authentication required") {
		return ""
	}

	if strings.Contains(msg, "timeout") ||
		strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "context deadline exceeded") {
		return model.ErrKindProtocolTimeout
	}

	// RESP 解析失败 (比如对面是 HTTP 服务)
	return model.ErrKindProtocolError
}

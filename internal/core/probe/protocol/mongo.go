package protocol

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"netrecon/internal/core/model"
	"netrecon/internal/core/probe"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// MongoCheck MongoDB 服务探测器
//
// 检测原理:
// 1. 先尝试无凭据连接并 Ping，成功即未授权访问
// 2. 需要认证时逐个尝试默认凭据 (authSource=admin)
// 3. 任一连接可用后只读收集: buildInfo 版本、库名列表 (采样)
type MongoCheck struct {
	creds       []probe.Credential
	sampleLimit int
}

func NewMongoCheck(opts probe.Options) *MongoCheck {
	return &MongoCheck{
		creds:       opts.Credentials,
		sampleLimit: opts.SampleLimit,
	}
}

func (c *MongoCheck) Name() string {
	return "mongo"
}

func (c *MongoCheck) DefaultPorts() []int {
	return []int{27017}
}

func (c *MongoCheck) Probe(ctx context.Context, host string, port int, tc probe.TimeoutConfig) *model.CheckResult {
	res := model.NewCheckResult(c.Name(), host, port)
	if !reachTCP(ctx, res, host, port, tc) {
		return res
	}

	// 1. 无凭据访问
	client, err := c.connect(ctx, host, port, "", "", tc)
	if err == nil {
		res.Detected = true
		res.SetField("unauthenticated_access", true)
		c.introspect(ctx, client, res)
		client.Disconnect(ctx)
		return res
	}
	kind := c.classify(err)
	if kind != "" {
		res.Fail(kind, err.Error())
		return res
	}
	// 认证错误说明确实是 MongoDB
	res.Detected = true
	res.SetField("unauthenticated_access", false)

	// 2. 默认凭据
	for _, cred := range c.creds {
		select {
		case <-ctx.Done():
			res.Fail(model.ErrKindProtocolTimeout, ctx.Err().Error())
			return res
		default:
		}

		client, err := c.connect(ctx, host, port, cred.Username, cred.Password, tc)
		if err == nil {
			res.SetField("default_credential", fmt.Sprintf("%s:%s", cred.Username, cred.Password))
			c.introspect(ctx, client, res)
			client.Disconnect(ctx)
			return res
		}
		if k := c.classify(err); k != "" {
			res.Fail(k, err.Error())
			return res
		}
	}

	res.Fail(model.ErrKindAuthFailed, "no default credential accepted")
	return res
}

// connect 建立客户端并执行 Ping
// 调用方负责 Disconnect 成功返回的客户端
func (c *MongoCheck) connect(ctx context.Context, host string, port int, user, pass string, tc probe.TimeoutConfig) (*mongo.Client, error) {
	uri := fmt.Sprintf("mongodb://%s:%d/admin", host, port)
	if user != "" {
		// 凭据可能含特殊字符，必须 URL 编码
		uri = fmt.Sprintf("mongodb://%s:%s@%s:%d/admin?authSource=admin",
			url.QueryEscape(user), url.QueryEscape(pass), host, port)
	}

	opts := options.Client().
		ApplyURI(uri).
		SetConnectTimeout(tc.Connect).
		SetServerSelectionTimeout(tc.Connect).
		SetSocketTimeout(tc.Op).
		SetDirect(true)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		client.Disconnect(ctx)
		return nil, err
	}
	// 无凭据 Ping 在开启认证的实例上也会成功，用 listDatabases 验证真实权限
	if _, err := client.ListDatabaseNames(ctx, bson.D{}); err != nil {
		client.Disconnect(ctx)
		return nil, err
	}
	return client, nil
}

// introspect 只读信息收集
func (c *MongoCheck) introspect(ctx context.Context, client *mongo.Client, res *model.CheckResult) {
	var buildInfo struct {
		Version string `bson:"version"`
	}
	cmd := client.Database("admin").RunCommand(ctx, bson.D{{Key: "buildInfo", Value: 1}})
	if cmd.Decode(&buildInfo) == nil && buildInfo.Version != "" {
		res.SetField("version", buildInfo.Version)
	}

	names, err := client.ListDatabaseNames(ctx, bson.D{})
	if err != nil {
		return
	}
	if len(names) > c.sampleLimit {
		names = names[:c.sampleLimit]
	}
	res.SetField("databases", names)
}

// classify 归类 MongoDB 错误
// 返回空串表示认证层失败 (服务身份已确认)
func (c *MongoCheck) classify(err error) model.ErrorKind {
	if err == nil {
		return ""
	}
	msg := strings.ToLower(err.Error())

	if strings.Contains(msg, "authentication failed") ||
		strings.Contains(msg, "auth error") ||
		strings.Contains(msg, "unauthorized") ||
		strings.Contains(msg, "requires authentication") ||
		strings.Contains(msg, "not authorized") {
		return ""
	}

	if strings.Contains(msg, "timeout") ||
		strings.Contains(msg, "server selection error") ||
		strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "context deadline exceeded") {
		return model.ErrKindProtocolTimeout
	}
	return model.ErrKindProtocolError
}

package protocol

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"netrecon/internal/core/model"
	"netrecon/internal/core/probe"
)

// ElasticsearchCheck Elasticsearch REST API 探测器
//
// 检测原理:
// 1. GET / 拿集群信息，响应 JSON 含 cluster_name/version 即确认服务
// 2. 200 且无认证头即未授权访问，进一步 GET /_cat/indices 采样索引名
// 3. 401 时逐个尝试默认凭据 (elastic 用户优先)
// 4. 先 HTTP 再 HTTPS，自签名证书直接放行
type ElasticsearchCheck struct {
	creds       []probe.Credential
	sampleLimit int
}

func NewElasticsearchCheck(opts probe.Options) *ElasticsearchCheck {
	return &ElasticsearchCheck{
		creds:       opts.Credentials,
		sampleLimit: opts.SampleLimit,
	}
}

func (c *ElasticsearchCheck) Name() string {
	return "elasticsearch"
}

func (c *ElasticsearchCheck) DefaultPorts() []int {
	return []int{9200}
}

func (c *ElasticsearchCheck) Probe(ctx context.Context, host string, port int, tc probe.TimeoutConfig) *model.CheckResult {
	res := model.NewCheckResult(c.Name(), host, port)
	if !reachTCP(ctx, res, host, port, tc) {
		return res
	}

	client := newHTTPClient(tc)

	scheme, status, body, err := httpGetAnyScheme(ctx, client, host, port, "/", "", "")
	if err != nil {
		res.Fail(classifyIOError(err), err.Error())
		return res
	}

	switch status {
	case http.StatusOK:
		if !c.parseRoot(body, res) {
			res.Fail(model.ErrKindProtocolError, "response is not elasticsearch")
			return res
		}
		res.SetField("unauthenticated_access", true)
		c.sampleIndices(ctx, client, scheme, host, port, "", "", res)
		return res

	case http.StatusUnauthorized:
		// 挂了 x-pack security，身份已确认
		res.Detected = true
		res.SetField("unauthenticated_access", false)

	default:
		res.Fail(model.ErrKindProtocolError, fmt.Sprintf("unexpected status %d", status))
		return res
	}

	creds := append([]probe.Credential{{Username: "elastic", Password: "changeme"}}, c.creds...)
	for _, cred := range creds {
		select {
		case <-ctx.Done():
			res.Fail(model.ErrKindProtocolTimeout, ctx.Err().Error())
			return res
		default:
		}

		status, body, err := httpGet(ctx, client, httpURL(scheme, host, port, "/"), cred.Username, cred.Password)
		if err != nil {
			res.Fail(classifyIOError(err), err.Error())
			return res
		}
		if status == http.StatusOK && c.parseRoot(body, res) {
			res.SetField("default_credential", fmt.Sprintf("%s:%s", cred.Username, cred.Password))
			c.sampleIndices(ctx, client, scheme, host, port, cred.Username, cred.Password, res)
			return res
		}
	}

	res.Fail(model.ErrKindAuthFailed, "no default credential accepted")
	return res
}

// parseRoot 解析 GET / 的集群信息
func (c *ElasticsearchCheck) parseRoot(body []byte, res *model.CheckResult) bool {
	var root struct {
		ClusterName string `json:"cluster_name"`
		Version     struct {
			Number string `json:"number"`
		} `json:"version"`
		Tagline string `json:"tagline"`
	}
	if err := json.Unmarshal(body, &root); err != nil {
		return false
	}
	if root.ClusterName == "" && root.Version.Number == "" {
		return false
	}
	res.Detected = true
	res.SetField("cluster_name", root.ClusterName)
	res.SetField("version", root.Version.Number)
	return true
}

// sampleIndices 采样索引名 (只读)
func (c *ElasticsearchCheck) sampleIndices(ctx context.Context, client *http.Client, scheme, host string, port int, user, pass string, res *model.CheckResult) {
	status, body, err := httpGet(ctx, client, httpURL(scheme, host, port, "/_cat/indices?h=index&format=json"), user, pass)
	if err != nil || status != http.StatusOK {
		return
	}

	var rows []struct {
		Index string `json:"index"`
	}
	if json.Unmarshal(body, &rows) != nil {
		return
	}
	var indices []string
	for _, r := range rows {
		indices = append(indices, r.Index)
		if len(indices) >= c.sampleLimit {
			break
		}
	}
	res.SetField("indices", indices)
}

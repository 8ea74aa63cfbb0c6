package protocol

import (
	"context"
	"crypto/tls"
	"io"
	"net/http"

	"netrecon/internal/core/probe"
)

// newHTTPClient HTTP 探测共用客户端
// 跳过证书校验 (内网服务大多是自签名)，禁用 keep-alive (全是短连接)
func newHTTPClient(tc probe.TimeoutConfig) *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			TLSClientConfig:   &tls.Config{InsecureSkipVerify: true},
			DisableKeepAlives: true,
		},
		Timeout: tc.Connect + tc.Op,
	}
}

// httpGet 发起 GET 并读取响应体 (上限 64KB)
// basicAuth 为空时不带认证头
func httpGet(ctx context.Context, client *http.Client, url string, user, pass string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, nil, err
	}
	if user != "" {
		req.SetBasicAuth(user, pass)
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, body, nil
}

// httpGetAnyScheme 先走 HTTP，连接层失败再试 HTTPS
// 不去预判端口是否启用 TLS，失败重试的成本很低
func httpGetAnyScheme(ctx context.Context, client *http.Client, host string, port int, path string, user, pass string) (string, int, []byte, error) {
	status, body, err := httpGet(ctx, client, httpURL("http", host, port, path), user, pass)
	if err == nil {
		return "http", status, body, nil
	}
	status, body, err = httpGet(ctx, client, httpURL("https", host, port, path), user, pass)
	if err == nil {
		return "https", status, body, nil
	}
	return "", 0, nil, err
}

func httpURL(scheme, host string, port int, path string) string {
	return scheme + "://" + hostPort(host, port) + path
}

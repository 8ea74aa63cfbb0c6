package protocol

import (
	"context"
	"io"
	"net/http"
	"regexp"
	"strings"

	"netrecon/internal/core/lib/network/dialer"
	"netrecon/internal/core/model"
	"netrecon/internal/core/probe"
	"netrecon/internal/pkg/utils"
)

// t3Hello 标准 T3 握手串，只做版本协商不发任何负载
var t3Hello = []byte("t3 12.2.1\nAS:255\nHL:19\n\n")

// wlsVersionRe 从 Server 头或 T3 banner 里抠版本号
var wlsVersionRe = regexp.MustCompile(`\b(\d+\.\d+(?:\.\d+){0,2})\b`)

// wlsTitleRe HTML 标题提取
var wlsTitleRe = regexp.MustCompile(`(?is)<title>(.*?)</title>`)

// wlsRiskFamilies 历史高危版本族 (仅标记，不做任何利用)
var wlsRiskFamilies = []struct {
	re     *regexp.Regexp
	family string
	cves   []string
}{
	{regexp.MustCompile(`\b10\.3(\.\d+)?\b`), "10.3.x", []string{"CVE-2017-10271"}},
	{regexp.MustCompile(`\b12\.1(\.\d+)?\b`), "12.1.x", []string{"CVE-2017-10271"}},
	{regexp.MustCompile(`\b12\.2\.1\.3\b`), "12.2.1.3", []string{"CVE-2020-14882"}},
	{regexp.MustCompile(`\b12\.2\.1\.4\b`), "12.2.1.4", []string{"CVE-2020-14882", "CVE-2023-21839"}},
}

// WebLogicCheck WebLogic 管理面探测器
//
// 检测原理:
// 1. GET / 看 Server 头和页面特征 (weblogic/bea/oracle)
// 2. 探测管理端点暴露: /console、/wls-wsat/CoordinatorPortType、/bea_wls_internal
// 3. 裸 TCP 发 T3 hello，回 HELO 即确认 T3 协议在线
// 4. 提取版本号并对照历史高危版本族做标记
type WebLogicCheck struct{}

func NewWebLogicCheck(_ probe.Options) *WebLogicCheck {
	return &WebLogicCheck{}
}

func (c *WebLogicCheck) Name() string {
	return "weblogic"
}

func (c *WebLogicCheck) DefaultPorts() []int {
	return []int{7001, 7002, 8001, 9001, 80, 443}
}

func (c *WebLogicCheck) Probe(ctx context.Context, host string, port int, tc probe.TimeoutConfig) *model.CheckResult {
	res := model.NewCheckResult(c.Name(), host, port)
	if !reachTCP(ctx, res, host, port, tc) {
		return res
	}

	client := newHTTPClient(tc)

	// 1. 根路径
	scheme, status, header, body, err := c.get(ctx, client, host, port, "/")
	if err != nil {
		// HTTP 不通不代表端口没戏，T3 可能还在
		t3Banner := c.probeT3(ctx, host, port, tc, res)
		if !res.Detected {
			res.Fail(classifyIOError(err), err.Error())
		} else {
			c.assessVersion("", t3Banner, res)
		}
		return res
	}
	res.SetField("root_status", status)

	serverHeader := header.Get("Server")
	if serverHeader != "" {
		res.SetField("server_header", serverHeader)
	}
	if m := wlsTitleRe.FindSubmatch(body); m != nil {
		res.SetField("title", utils.Truncate(strings.Join(strings.Fields(string(m[1])), " "), 200))
	}
	if c.looksLikeWebLogic(serverHeader, string(body)) {
		res.Detected = true
	}

	// 2. 管理端点
	c.checkEndpoint(ctx, client, scheme, host, port, "/console", []int{200, 401, 403, 302}, "admin_console_exposed", res)
	c.checkEndpoint(ctx, client, scheme, host, port, "/wls-wsat/CoordinatorPortType", []int{200, 401, 403, 405, 500}, "wls_wsat_exposed", res)
	c.checkEndpoint(ctx, client, scheme, host, port, "/bea_wls_internal", []int{200, 401, 403, 302}, "bea_wls_internal_exposed", res)

	// 3. T3
	t3Banner := c.probeT3(ctx, host, port, tc, res)

	// 4. 版本与风险标记
	c.assessVersion(serverHeader, t3Banner, res)

	if !res.Detected {
		res.Fail(model.ErrKindProtocolError, "no weblogic fingerprint in http or t3 responses")
	}
	return res
}

// get 按端口惯例选 scheme，失败再换另一个
func (c *WebLogicCheck) get(ctx context.Context, client *http.Client, host string, port int, path string) (string, int, http.Header, []byte, error) {
	schemes := []string{"http", "https"}
	if port == 443 || port == 7002 {
		schemes = []string{"https", "http"}
	}

	var lastErr error
	for _, scheme := range schemes {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, httpURL(scheme, host, port, path), nil)
		if err != nil {
			return "", 0, nil, nil, err
		}
		resp, err := client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 128*1024))
		resp.Body.Close()
		return scheme, resp.StatusCode, resp.Header, body, nil
	}
	return "", 0, nil, nil, lastErr
}

// checkEndpoint 按路径专属的状态码白名单判定暴露
func (c *WebLogicCheck) checkEndpoint(ctx context.Context, client *http.Client, scheme, host string, port int, path string, exposedCodes []int, field string, res *model.CheckResult) {
	status, body, err := httpGet(ctx, client, httpURL(scheme, host, port, path), "", "")
	if err != nil {
		res.SetField(field, false)
		return
	}
	exposed := false
	for _, code := range exposedCodes {
		if status == code {
			exposed = true
			break
		}
	}
	res.SetField(field, exposed)
	if exposed && c.looksLikeWebLogic("", string(body)) {
		res.Detected = true
	}
}

// probeT3 发送 T3 hello 并检查响应标志，返回 banner 供版本提取
func (c *WebLogicCheck) probeT3(ctx context.Context, host string, port int, tc probe.TimeoutConfig, res *model.CheckResult) string {
	conn, err := dialer.DialTCP(ctx, host, port, tc.Connect)
	if err != nil {
		res.SetField("t3_detected", false)
		return ""
	}
	defer conn.Close()

	if err := dialer.WriteAll(conn, t3Hello, tc.Op); err != nil {
		res.SetField("t3_detected", false)
		return ""
	}
	banner, err := dialer.ReadSome(conn, 512, tc.Op)
	if err != nil || len(banner) == 0 {
		res.SetField("t3_detected", false)
		return ""
	}

	text := utils.Printable(string(banner))
	upper := strings.ToUpper(text)
	detected := strings.Contains(upper, "HELO") ||
		strings.Contains(upper, "T3") ||
		strings.Contains(upper, "WEBLOGIC")
	res.SetField("t3_detected", detected)
	if detected {
		res.Detected = true
		res.SetField("t3_banner", utils.Truncate(text, 300))
		return text
	}
	return ""
}

// assessVersion 抽取版本号并标记历史高危版本族
// 只在带 weblogic/oracle/bea 特征的文本里找版本号，避免把无关数字当版本
func (c *WebLogicCheck) assessVersion(serverHeader, t3Banner string, res *model.CheckResult) {
	var version string
	for _, candidate := range []string{serverHeader, t3Banner} {
		if candidate == "" {
			continue
		}
		lower := strings.ToLower(candidate)
		if !strings.Contains(lower, "weblogic") && !strings.Contains(lower, "oracle") &&
			!strings.Contains(lower, "bea") && !strings.Contains(lower, "helo") {
			continue
		}
		if m := wlsVersionRe.FindString(candidate); m != "" {
			version = m
			break
		}
	}
	if version == "" {
		return
	}
	res.SetField("version", version)

	var families, cves []string
	for _, rule := range wlsRiskFamilies {
		if rule.re.MatchString(version) {
			families = append(families, rule.family)
			cves = append(cves, rule.cves...)
		}
	}
	res.SetField("potentially_vulnerable", len(families) > 0)
	if len(families) > 0 {
		res.SetField("matched_families", families)
		res.SetField("notable_cves", cves)
	}
}

func (c *WebLogicCheck) looksLikeWebLogic(serverHeader, body string) bool {
	header := strings.ToLower(serverHeader)
	if strings.Contains(header, "weblogic") || strings.Contains(header, "oracle") || strings.Contains(header, "bea") {
		return true
	}
	lower := strings.ToLower(body)
	return strings.Contains(lower, "weblogic") ||
		strings.Contains(lower, "bea ") ||
		strings.Contains(lower, "oracle fusion middleware")
}

package protocol

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"netrecon/internal/core/model"
	"netrecon/internal/core/probe"
)

// DockerCheck Docker Remote API 探测器
//
// 检测原理:
// 1. 2375 是 dockerd 的明文 TCP 端口，开着基本等于主机失守
// 2. GET /version 响应含 ApiVersion 即确认服务
// 3. 确认后 GET /containers/json 采样容器名 (只读)
type DockerCheck struct {
	sampleLimit int
}

func NewDockerCheck(opts probe.Options) *DockerCheck {
	return &DockerCheck{sampleLimit: opts.SampleLimit}
}

func (c *DockerCheck) Name() string {
	return "docker"
}

func (c *DockerCheck) DefaultPorts() []int {
	return []int{2375}
}

func (c *DockerCheck) Probe(ctx context.Context, host string, port int, tc probe.TimeoutConfig) *model.CheckResult {
	res := model.NewCheckResult(c.Name(), host, port)
	if !reachTCP(ctx, res, host, port, tc) {
		return res
	}

	client := newHTTPClient(tc)

	scheme, status, body, err := httpGetAnyScheme(ctx, client, host, port, "/version", "", "")
	if err != nil {
		res.Fail(classifyIOError(err), err.Error())
		return res
	}
	if status != http.StatusOK {
		res.Fail(model.ErrKindProtocolError, fmt.Sprintf("unexpected status %d", status))
		return res
	}

	var version struct {
		Version       string `json:"Version"`
		APIVersion    string `json:"ApiVersion"`
		Os            string `json:"Os"`
		Arch          string `json:"Arch"`
		KernelVersion string `json:"KernelVersion"`
	}
	if json.Unmarshal(body, &version) != nil || version.APIVersion == "" {
		res.Fail(model.ErrKindProtocolError, "response is not docker remote api")
		return res
	}

	res.Detected = true
	res.SetField("version", version.Version)
	res.SetField("api_version", version.APIVersion)
	res.SetField("os", version.Os)
	res.SetField("arch", version.Arch)
	res.SetField("kernel_version", version.KernelVersion)
	// /version 无需认证即响应，说明 API 对外裸奔
	res.SetField("unauthenticated_access", true)

	c.sampleContainers(ctx, client, scheme, host, port, res)
	return res
}

// sampleContainers 采样运行中的容器名
func (c *DockerCheck) sampleContainers(ctx context.Context, client *http.Client, scheme, host string, port int, res *model.CheckResult) {
	status, body, err := httpGet(ctx, client, httpURL(scheme, host, port, "/containers/json"), "", "")
	if err != nil || status != http.StatusOK {
		return
	}

	var rows []struct {
		Names []string `json:"Names"`
		Image string   `json:"Image"`
	}
	if json.Unmarshal(body, &rows) != nil {
		return
	}

	var containers []string
	for _, r := range rows {
		name := r.Image
		if len(r.Names) > 0 {
			name = r.Names[0] + " (" + r.Image + ")"
		}
		containers = append(containers, name)
		if len(containers) >= c.sampleLimit {
			break
		}
	}
	res.SetField("containers", containers)
}

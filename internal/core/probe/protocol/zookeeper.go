package protocol

import (
	"context"
	"strings"

	"netrecon/internal/core/lib/network/dialer"
	"netrecon/internal/core/model"
	"netrecon/internal/core/probe"
	"netrecon/internal/pkg/utils"
)

// ZooKeeperCheck ZooKeeper 四字命令探测器
//
// 检测原理:
// 1. ZooKeeper 管理端口支持 "四字命令" (ruok/stat/envi)，发送后服务端返回文本并断开
// 2. 每条命令用独立连接 (服务端读完即关，连接不能复用)
// 3. 结果判定: ruok 返回 imok，或 stat/envi 内容包含 "zookeeper" 即确认服务
// 4. 单条命令失败不影响其他命令，全部失败才算协议层失败
type ZooKeeperCheck struct{}

func NewZooKeeperCheck(_ probe.Options) *ZooKeeperCheck {
	return &ZooKeeperCheck{}
}

func (c *ZooKeeperCheck) Name() string {
	return "zookeeper"
}

func (c *ZooKeeperCheck) DefaultPorts() []int {
	return []int{2181}
}

func (c *ZooKeeperCheck) Probe(ctx context.Context, host string, port int, tc probe.TimeoutConfig) *model.CheckResult {
	res := model.NewCheckResult(c.Name(), host, port)
	if !reachTCP(ctx, res, host, port, tc) {
		return res
	}

	fourLetter := make(map[string]any)
	responses := make(map[string]string)
	for _, cmd := range []string{"ruok", "stat", "envi"} {
		text, err := c.fourLetter(ctx, host, port, cmd, tc)
		if err != nil {
			fourLetter[cmd] = map[string]any{"ok": false, "error": err.Error()}
			continue
		}
		responses[cmd] = text
		fourLetter[cmd] = map[string]any{"ok": true, "response": utils.Truncate(text, 4000)}
	}
	res.SetField("four_letter", fourLetter)

	if len(responses) == 0 {
		res.Fail(model.ErrKindProtocolError, "all four-letter commands failed")
		return res
	}

	if strings.Contains(strings.ToLower(responses["ruok"]), "imok") ||
		strings.Contains(strings.ToLower(responses["stat"]), "zookeeper") ||
		strings.Contains(strings.ToLower(responses["envi"]), "zookeeper") {
		res.Detected = true
	}

	// 从 stat/envi 文本中提取版本和角色
	for _, line := range strings.Split(responses["stat"]+"\n"+responses["envi"], "\n") {
		line = strings.TrimSpace(line)
		lower := strings.ToLower(line)
		switch {
		case strings.HasPrefix(lower, "zookeeper version:"):
			res.SetField("version", strings.TrimSpace(line[len("zookeeper version:"):]))
		case strings.HasPrefix(lower, "mode:"):
			res.SetField("mode", strings.TrimSpace(line[len("mode:"):]))
		}
	}

	return res
}

// fourLetter 发送单条四字命令并读取全部响应
func (c *ZooKeeperCheck) fourLetter(ctx context.Context, host string, port int, cmd string, tc probe.TimeoutConfig) (string, error) {
	conn, err := dialer.DialTCP(ctx, host, port, tc.Connect)
	if err != nil {
		return "", err
	}
	defer conn.Close()

	if err := dialer.WriteAll(conn, []byte(cmd), tc.Op); err != nil {
		return "", err
	}
	data, err := dialer.ReadUntilClose(conn, 8192, tc.Op)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

package protocol

import (
	"context"
	"encoding/hex"

	"netrecon/internal/core/lib/network/dialer"
	"netrecon/internal/core/model"
	"netrecon/internal/core/probe"
)

// MQTTCheck MQTT CONNECT/CONNACK 二进制协议探测器
//
// 检测原理:
// 1. 发送 MQTT 3.1.1 CONNECT 包 (匿名, clean session, 固定 client id)
// 2. 合法 broker 必须回 CONNACK (首字节 0x20)，收到即确认服务
// 3. CONNACK 返回码区分匿名准入情况: 0 接受 (未授权访问)，4/5 要求认证
type MQTTCheck struct{}

// mqttConnackCodes CONNACK 返回码语义 (MQTT 3.1.1 3.2.2.3)
var mqttConnackCodes = map[byte]string{
	0: "connection accepted",
	1: "unacceptable protocol version",
	2: "identifier rejected",
	3: "server unavailable",
	4: "bad user name or password",
	5: "not authorized",
}

func NewMQTTCheck(_ probe.Options) *MQTTCheck {
	return &MQTTCheck{}
}

func (c *MQTTCheck) Name() string {
	return "mqtt"
}

func (c *MQTTCheck) DefaultPorts() []int {
	return []int{1883}
}

// buildConnect 构造匿名 CONNECT 包
func (c *MQTTCheck) buildConnect(clientID string) []byte {
	// 可变头: 协议名 "MQTT" + level 4 + flags (clean session) + keepalive 60s
	var variable []byte
	variable = append(variable, 0x00, 0x04, 'M', 'Q', 'T', 'T', 0x04, 0x02, 0x00, 0x3C)
	// 负载: client id
	variable = append(variable, byte(len(clientID)>>8), byte(len(clientID)))
	variable = append(variable, clientID...)

	// 固定头: 报文类型 CONNECT + remaining length (单字节编码，client id 很短，不会超 127)
	packet := []byte{0x10, byte(len(variable))}
	return append(packet, variable...)
}

func (c *MQTTCheck) Probe(ctx context.Context, host string, port int, tc probe.TimeoutConfig) *model.CheckResult {
	res := model.NewCheckResult(c.Name(), host, port)

	conn, err := dialer.DialTCP(ctx, host, port, tc.Connect)
	if err != nil {
		res.Fail(model.ErrKindTCPUnreachable, err.Error())
		return res
	}
	defer conn.Close()
	res.Reachable = true

	if err := dialer.WriteAll(conn, c.buildConnect("netrecon-probe"), tc.Op); err != nil {
		res.Fail(classifyIOError(err), err.Error())
		return res
	}

	// CONNACK 固定 4 字节: 0x20 0x02 <session-present> <return-code>
	resp, err := dialer.ReadFull(conn, 4, tc.Op)
	if err != nil {
		res.Fail(classifyIOError(err), err.Error())
		return res
	}
	res.SetField("raw_response_hex", hex.EncodeToString(resp))

	if resp[0] != 0x20 || resp[1] != 0x02 {
		res.Fail(model.ErrKindProtocolError, "response is not a CONNACK packet")
		return res
	}

	res.Detected = true
	code := resp[3]
	res.SetField("connack_code", int(code))
	if desc, ok := mqttConnackCodes[code]; ok {
		res.SetField("connack_desc", desc)
	}
	res.SetField("anonymous_access", code == 0)
	res.SetField("auth_required", code == 4 || code == 5)

	return res
}

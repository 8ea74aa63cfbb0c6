package protocol

import (
	"context"
	"strings"

	"netrecon/internal/core/model"
	"netrecon/internal/core/probe"
	"netrecon/internal/pkg/utils"

	"github.com/gosnmp/gosnmp"
)

// SNMP 系统组 OID
const (
	oidSysDescr  = "1.3.6.1.2.1.1.1.0"
	oidSysUpTime = "1.3.6.1.2.1.1.3.0"
	oidSysName   = "1.3.6.1.2.1.1.5.0"
)

// SNMPCheck SNMP 服务探测器
//
// 检测原理:
// 1. SNMP 走 UDP，不经过 TCP 可达性门控
// 2. 逐个尝试配置的 community 对 sysDescr 做 GET，有响应即确认服务
// 3. 命中后补充读取 sysName / sysUpTime
// 4. UDP 无响应无法区分"端口关闭"和"community 错误"，全部尝试失败归为认证失败
type SNMPCheck struct {
	communities []string
}

// NewSNMPCheck community 列表构造时拷贝注入，之后不可变
func NewSNMPCheck(opts probe.Options) *SNMPCheck {
	return &SNMPCheck{
		communities: append([]string(nil), opts.Communities...),
	}
}

func (c *SNMPCheck) Name() string {
	return "snmp"
}

func (c *SNMPCheck) DefaultPorts() []int {
	return []int{161}
}

func (c *SNMPCheck) Probe(ctx context.Context, host string, port int, tc probe.TimeoutConfig) *model.CheckResult {
	res := model.NewCheckResult(c.Name(), host, port)

	for _, community := range c.communities {
		select {
		case <-ctx.Done():
			res.Fail(model.ErrKindProtocolTimeout, ctx.Err().Error())
			return res
		default:
		}

		client := &gosnmp.GoSNMP{
			Target:    host,
			Port:      uint16(port),
			Community: community,
			Version:   gosnmp.Version2c,
			Timeout:   tc.Op,
			Retries:   0,
		}
		if err := client.Connect(); err != nil {
			continue
		}

		pkt, err := client.Get([]string{oidSysDescr, oidSysUpTime, oidSysName})
		if err != nil {
			client.Conn.Close()
			continue
		}

		// 有 SNMP 响应，UDP 语义下这是唯一的可达性证据
		res.Reachable = true
		res.Detected = true
		res.SetField("community", community)
		c.collect(pkt, res)
		client.Conn.Close()
		return res
	}

	// 全部 community 超时: 可能端口关闭，也可能 community 不对
	res.Fail(model.ErrKindAuthFailed, "no configured community string accepted")
	return res
}

// collect 提取系统组变量
func (c *SNMPCheck) collect(pkt *gosnmp.SnmpPacket, res *model.CheckResult) {
	for _, v := range pkt.Variables {
		oid := strings.TrimPrefix(v.Name, ".")
		switch oid {
		case oidSysDescr:
			if b, ok := v.Value.([]byte); ok {
				res.SetField("sys_descr", utils.Truncate(utils.Printable(string(b)), 512))
			}
		case oidSysName:
			if b, ok := v.Value.([]byte); ok {
				res.SetField("sys_name", utils.Printable(string(b)))
			}
		case oidSysUpTime:
			res.SetField("sys_uptime_ticks", gosnmp.ToBigInt(v.Value).Int64())
		}
	}
}

package model

import (
	"fmt"
	"time"
)

// Summary 聚合统计
// 完全由 CheckResult 集合推导，聚合时重新计算，不单独维护状态
type Summary struct {
	TotalTargets int            `json:"total_targets" yaml:"total_targets"`
	TotalChecks  int            `json:"total_checks" yaml:"total_checks"`
	Reachable    int            `json:"reachable" yaml:"reachable"`
	Detected     int            `json:"detected" yaml:"detected"`
	Errors       map[string]int `json:"errors,omitempty" yaml:"errors,omitempty"`       // 按 ErrorKind 分类的失败计数
	Exposures    map[string]int `json:"exposures,omitempty" yaml:"exposures,omitempty"` // 由调用方谓词提供的协议相关暴露计数
}

// Report 一次完整运行的输出
type Report struct {
	GeneratedAt time.Time      `json:"generated_at" yaml:"generated_at"`
	Service     string         `json:"service" yaml:"service"`
	Ports       []int          `json:"ports" yaml:"ports"`
	Summary     Summary        `json:"summary" yaml:"summary"`
	Results     []*CheckResult `json:"results" yaml:"results"`
}

// Headers 实现 TabularData 接口
func (s Summary) Headers() []string {
	return []string{"Targets", "Checks", "Reachable", "Detected"}
}

// Rows 实现 TabularData 接口
func (s Summary) Rows() [][]string {
	return [][]string{{
		fmt.Sprintf("%d", s.TotalTargets),
		fmt.Sprintf("%d", s.TotalChecks),
		fmt.Sprintf("%d", s.Reachable),
		fmt.Sprintf("%d", s.Detected),
	}}
}

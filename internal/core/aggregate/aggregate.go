package aggregate

import (
	"time"

	"netrecon/internal/core/model"
)

// Predicate 协议相关的暴露计数谓词
// 协议语义留在各 Check 写入的 Fields 里，聚合器本身不含任何按协议分支的逻辑，
// 调用方按需传入谓词列表即可复用同一个聚合器
type Predicate struct {
	Name  string
	Match func(r *model.CheckResult) bool
}

// FieldTrue 返回一个 "字段为 true" 谓词，覆盖绝大多数暴露计数场景
func FieldTrue(name, field string) Predicate {
	return Predicate{
		Name: name,
		Match: func(r *model.CheckResult) bool {
			v, ok := r.Field(field).(bool)
			return ok && v
		},
	}
}

// Aggregate 把原始结果集归并为一份报告
//
// 纯函数：不做 IO，不修改输入
// Summary 全部由 results 重新计数得出，与输入顺序无关
// Results 在写入报告前按 (target, port) 排序，保证同输入产出确定性的报告
func Aggregate(service string, ports []int, results []*model.CheckResult, predicates []Predicate) *model.Report {
	summary := model.Summary{
		TotalChecks: len(results),
	}

	targets := make(map[string]struct{})
	for _, r := range results {
		targets[r.Target] = struct{}{}

		if r.Reachable {
			summary.Reachable++
		}
		if r.Detected {
			summary.Detected++
		}
		if r.ErrorKind != "" {
			if summary.Errors == nil {
				summary.Errors = make(map[string]int)
			}
			summary.Errors[string(r.ErrorKind)]++
		}
		for _, p := range predicates {
			if p.Match(r) {
				if summary.Exposures == nil {
					summary.Exposures = make(map[string]int)
				}
				summary.Exposures[p.Name]++
			}
		}
	}
	summary.TotalTargets = len(targets)

	sorted := make([]*model.CheckResult, len(results))
	copy(sorted, results)
	model.SortResults(sorted)

	return &model.Report{
		GeneratedAt: time.Now().UTC(),
		Service:     service,
		Ports:       ports,
		Summary:     summary,
		Results:     sorted,
	}
}

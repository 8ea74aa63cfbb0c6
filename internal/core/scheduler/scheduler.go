/*
 * @author: Sun977
 * @date: 2026.08.12
 * @description: 有界并发探测调度器，驱动 Check 遍历全部 WorkItem
 */

package scheduler

import (
	"context"
	"fmt"
	"time"

	"netrecon/internal/core/lib/network/qos"
	"netrecon/internal/core/model"
	"netrecon/internal/core/probe"
	"netrecon/internal/pkg/logger"
)

// Config 调度配置
type Config struct {
	// Concurrency 全局并发上限，<=0 时钳制为 1
	Concurrency int

	// Timeouts 传递给每次 Probe 的单步超时配置
	Timeouts probe.TimeoutConfig

	// RunTimeout 整体运行截止时间，0 表示不限制
	// 到期后放弃 (不等待) 仍在执行的探测，未完成的 WorkItem 以 timed_out 记录
	RunTimeout time.Duration
}

type indexedResult struct {
	idx int
	res *model.CheckResult
}

// BuildWorkItems 生成 targets x ports 的笛卡尔积
func BuildWorkItems(targets []string, ports []int) []model.WorkItem {
	items := make([]model.WorkItem, 0, len(targets)*len(ports))
	for _, t := range targets {
		for _, p := range ports {
			items = append(items, model.WorkItem{Target: t, Port: p})
		}
	}
	return items
}

// Run 以有界并发执行全部探测单元
//
// 保证:
// - 任意时刻在飞的探测不超过 Concurrency
// - 每个 WorkItem 恰好产出一个结果，单项失败不影响其他项
// - Check 实现即使违反无 panic 契约，也会在这里被兜住并转成 unhandled 结果
// - 不做任何重试
//
// 返回的结果顺序与完成顺序相关，确定性排序由上层 (Aggregator/Reporter) 负责
func Run(ctx context.Context, items []model.WorkItem, check probe.Check, cfg Config) []*model.CheckResult {
	if len(items) == 0 {
		return []*model.CheckResult{}
	}

	if cfg.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.RunTimeout)
		defer cancel()
	}

	gate := qos.NewGate(cfg.Concurrency)
	resultChan := make(chan indexedResult, len(items))

	logger.Debugf("scheduler: dispatching %d work items (concurrency=%d, service=%s)",
		len(items), gate.MaxLimit(), check.Name())

	// 结果通过带缓冲的通道回收，不 join worker：
	// 运行截止后在飞的探测被直接放弃，它们写入缓冲通道后自行退出
	for i := range items {
		go func(idx int, item model.WorkItem) {
			if err := gate.Acquire(ctx); err != nil {
				// 整体截止时间先到，该单元未开始探测
				res := model.NewCheckResult(check.Name(), item.Target, item.Port)
				res.Fail(model.ErrKindTimedOut, "run deadline exceeded before probe started")
				resultChan <- indexedResult{idx, res}
				return
			}
			defer gate.Release()

			resultChan <- indexedResult{idx, runOne(ctx, check, item, cfg.Timeouts, gate)}
		}(i, items[i])
	}

	results := make([]*model.CheckResult, len(items))
	collected := 0
	abandoned := false
	for collected < len(items) {
		select {
		case ir := <-resultChan:
			results[ir.idx] = ir.res
			collected++
		case <-ctx.Done():
			// 放弃在飞探测，把未完成的单元标记为 timed_out
			// 先把通道里已经就绪的结果吃干净，不浪费已完成的工作
			for drained := true; drained; {
				select {
				case ir := <-resultChan:
					results[ir.idx] = ir.res
					collected++
				default:
					drained = false
				}
			}
			for idx := range results {
				if results[idx] == nil {
					res := model.NewCheckResult(check.Name(), items[idx].Target, items[idx].Port)
					res.Fail(model.ErrKindTimedOut, "abandoned at run deadline")
					results[idx] = res
					collected++
					abandoned = true
				}
			}
		}
	}

	if abandoned {
		logger.Warnf("scheduler: run deadline hit, in-flight %s probes abandoned", check.Name())
	}

	return results
}

// runOne 执行单个探测，并把 panic 兜成 unhandled 结果
// Check 的契约是永不 panic，这里是调度器边界的防御
func runOne(ctx context.Context, check probe.Check, item model.WorkItem, tc probe.TimeoutConfig, gate *qos.Gate) (res *model.CheckResult) {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("scheduler: check %s panicked on %s: %v", check.Name(), item.Addr(), r)
			res = model.NewCheckResult(check.Name(), item.Target, item.Port)
			res.Fail(model.ErrKindUnhandled, fmt.Sprintf("panic: %v", r))
		}
	}()

	res = check.Probe(ctx, item.Target, item.Port, tc)
	if res == nil {
		// 防御：实现返回 nil 同样违反契约
		res = model.NewCheckResult(check.Name(), item.Target, item.Port)
		res.Fail(model.ErrKindUnhandled, "check returned nil result")
		return res
	}

	// 反馈给闸门：超时/不可达触发退避，成功触发恢复
	switch res.ErrorKind {
	case model.ErrKindTCPUnreachable, model.ErrKindProtocolTimeout:
		gate.OnFailure()
	default:
		if res.Reachable {
			gate.OnSuccess()
		}
	}

	return res
}

package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"netrecon/internal/core/model"
	"netrecon/internal/core/probe"
)

// fakeCheck 可编程的探测器桩
type fakeCheck struct {
	name  string
	probe func(ctx context.Context, target string, port int, tc probe.TimeoutConfig) *model.CheckResult
}

func (f *fakeCheck) Name() string        { return f.name }
func (f *fakeCheck) DefaultPorts() []int { return []int{1} }
func (f *fakeCheck) Probe(ctx context.Context, target string, port int, tc probe.TimeoutConfig) *model.CheckResult {
	return f.probe(ctx, target, port, tc)
}

func okCheck() *fakeCheck {
	return &fakeCheck{
		name: "fake",
		probe: func(_ context.Context, target string, port int, _ probe.TimeoutConfig) *model.CheckResult {
			res := model.NewCheckResult("fake", target, port)
			res.Reachable = true
			res.Detected = true
			return res
		},
	}
}

func TestBuildWorkItems(t *testing.T) {
	items := BuildWorkItems([]string{"a", "b"}, []int{80, 443})
	if len(items) != 4 {
		t.Fatalf("expected 4 items, got %d", len(items))
	}
	if items[0].Target != "a" || items[0].Port != 80 {
		t.Errorf("unexpected first item: %+v", items[0])
	}
	if items[3].Target != "b" || items[3].Port != 443 {
		t.Errorf("unexpected last item: %+v", items[3])
	}
}

// 测试每个 WorkItem 恰好产出一个结果
func TestRunProducesOneResultPerItem(t *testing.T) {
	items := BuildWorkItems([]string{"h1", "h2", "h3"}, []int{1, 2, 3})
	results := Run(context.Background(), items, okCheck(), Config{Concurrency: 4})

	if len(results) != len(items) {
		t.Fatalf("expected %d results, got %d", len(items), len(results))
	}
	for i, res := range results {
		if res == nil {
			t.Fatalf("result %d is nil", i)
		}
		if res.Target != items[i].Target || res.Port != items[i].Port {
			t.Errorf("result %d out of order: got %s:%d, want %s", i, res.Target, res.Port, items[i].Addr())
		}
	}
}

func TestRunEmptyItems(t *testing.T) {
	results := Run(context.Background(), nil, okCheck(), Config{Concurrency: 4})
	if results == nil || len(results) != 0 {
		t.Fatalf("expected empty non-nil slice, got %v", results)
	}
}

// 测试在飞探测数从不超过并发上限
func TestRunRespectsConcurrencyLimit(t *testing.T) {
	const limit = 5
	var inFlight, peak int64

	check := &fakeCheck{
		name: "fake",
		probe: func(_ context.Context, target string, port int, _ probe.TimeoutConfig) *model.CheckResult {
			cur := atomic.AddInt64(&inFlight, 1)
			for {
				old := atomic.LoadInt64(&peak)
				if cur <= old || atomic.CompareAndSwapInt64(&peak, old, cur) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt64(&inFlight, -1)

			res := model.NewCheckResult("fake", target, port)
			res.Reachable = true
			return res
		},
	}

	items := BuildWorkItems([]string{"h1", "h2", "h3", "h4"}, []int{1, 2, 3, 4, 5})
	Run(context.Background(), items, check, Config{Concurrency: limit})

	if got := atomic.LoadInt64(&peak); got > limit {
		t.Errorf("concurrency limit violated: peak %d > limit %d", got, limit)
	}
}

// 测试 Check panic 被兜成 unhandled 结果，不影响其他单元
func TestRunContainsPanic(t *testing.T) {
	check := &fakeCheck{
		name: "fake",
		probe: func(_ context.Context, target string, port int, _ probe.TimeoutConfig) *model.CheckResult {
			if target == "bad" {
				panic("boom")
			}
			res := model.NewCheckResult("fake", target, port)
			res.Reachable = true
			return res
		},
	}

	items := BuildWorkItems([]string{"good", "bad"}, []int{1})
	results := Run(context.Background(), items, check, Config{Concurrency: 2})

	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].ErrorKind != "" {
		t.Errorf("good target should succeed, got error %q", results[0].Error)
	}
	if results[1].ErrorKind != model.ErrKindUnhandled {
		t.Errorf("panicked target should be unhandled, got %q", results[1].ErrorKind)
	}
	if results[1].Reachable {
		t.Error("panicked result should not be reachable")
	}
}

// 测试返回 nil 的违约 Check 同样被兜住
func TestRunHandlesNilResult(t *testing.T) {
	check := &fakeCheck{
		name: "fake",
		probe: func(_ context.Context, _ string, _ int, _ probe.TimeoutConfig) *model.CheckResult {
			return nil
		},
	}

	results := Run(context.Background(), BuildWorkItems([]string{"h"}, []int{1}), check, Config{Concurrency: 1})
	if results[0] == nil || results[0].ErrorKind != model.ErrKindUnhandled {
		t.Fatalf("expected unhandled result, got %+v", results[0])
	}
}

// 测试整体截止时间到期后放弃在飞探测并标记 timed_out
func TestRunDeadlineAbandonsInFlight(t *testing.T) {
	block := make(chan struct{})
	defer close(block)

	check := &fakeCheck{
		name: "fake",
		probe: func(_ context.Context, target string, port int, _ probe.TimeoutConfig) *model.CheckResult {
			<-block // 模拟挂死的探测
			res := model.NewCheckResult("fake", target, port)
			res.Reachable = true
			return res
		},
	}

	items := BuildWorkItems([]string{"h1", "h2", "h3"}, []int{1})
	start := time.Now()
	results := Run(context.Background(), items, check, Config{
		Concurrency: 2,
		RunTimeout:  50 * time.Millisecond,
	})
	elapsed := time.Since(start)

	if elapsed > 2*time.Second {
		t.Fatalf("run did not abandon in-flight probes, took %v", elapsed)
	}
	if len(results) != len(items) {
		t.Fatalf("expected %d results, got %d", len(items), len(results))
	}
	for i, res := range results {
		if res.ErrorKind != model.ErrKindTimedOut {
			t.Errorf("result %d: expected timed_out, got %q", i, res.ErrorKind)
		}
	}
}

package aggregate

import (
	"math/rand"
	"reflect"
	"testing"

	"netrecon/internal/core/model"
)

func sampleResults() []*model.CheckResult {
	reachable := func(target string, port int, detected bool, fields map[string]any) *model.CheckResult {
		res := model.NewCheckResult("redis", target, port)
		res.Reachable = true
		res.Detected = detected
		for k, v := range fields {
			res.SetField(k, v)
		}
		return res
	}
	failed := func(target string, port int, kind model.ErrorKind) *model.CheckResult {
		res := model.NewCheckResult("redis", target, port)
		res.Fail(kind, "x")
		return res
	}

	return []*model.CheckResult{
		reachable("10.0.0.1", 6379, true, map[string]any{"unauthenticated_access": true}),
		reachable("10.0.0.1", 6380, true, map[string]any{"unauthenticated_access": false}),
		failed("10.0.0.2", 6379, model.ErrKindTCPUnreachable),
		failed("10.0.0.2", 6380, model.ErrKindProtocolTimeout),
		failed("10.0.0.3", 6379, model.ErrKindTCPUnreachable),
	}
}

func TestAggregateCounts(t *testing.T) {
	report := Aggregate("redis", []int{6379, 6380}, sampleResults(), []Predicate{
		FieldTrue("unauthenticated_access", "unauthenticated_access"),
	})

	s := report.Summary
	if s.TotalTargets != 3 {
		t.Errorf("TotalTargets = %d, want 3", s.TotalTargets)
	}
	if s.TotalChecks != 5 {
		t.Errorf("TotalChecks = %d, want 5", s.TotalChecks)
	}
	if s.Reachable != 2 {
		t.Errorf("Reachable = %d, want 2", s.Reachable)
	}
	if s.Detected != 2 {
		t.Errorf("Detected = %d, want 2", s.Detected)
	}
	if s.Errors["tcp_unreachable"] != 2 || s.Errors["protocol_timeout"] != 1 {
		t.Errorf("unexpected error counts: %v", s.Errors)
	}
	if s.Exposures["unauthenticated_access"] != 1 {
		t.Errorf("unexpected exposures: %v", s.Exposures)
	}
}

// 测试聚合与输入顺序无关：打乱输入后 Summary 和结果顺序都不变
func TestAggregateOrderIndependent(t *testing.T) {
	preds := []Predicate{FieldTrue("unauthenticated_access", "unauthenticated_access")}
	base := Aggregate("redis", []int{6379, 6380}, sampleResults(), preds)

	for seed := int64(0); seed < 5; seed++ {
		shuffled := sampleResults()
		rand.New(rand.NewSource(seed)).Shuffle(len(shuffled), func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})

		got := Aggregate("redis", []int{6379, 6380}, shuffled, preds)

		if !reflect.DeepEqual(got.Summary, base.Summary) {
			t.Fatalf("seed %d: summary differs: %+v vs %+v", seed, got.Summary, base.Summary)
		}
		for i := range base.Results {
			if got.Results[i].Target != base.Results[i].Target ||
				got.Results[i].Port != base.Results[i].Port {
				t.Fatalf("seed %d: result order differs at %d", seed, i)
			}
		}
	}
}

// 测试聚合不修改输入切片
func TestAggregateDoesNotMutateInput(t *testing.T) {
	results := sampleResults()
	first := results[0]

	Aggregate("redis", []int{6379}, results, nil)

	if results[0] != first {
		t.Error("input slice was reordered")
	}
}

func TestFieldTruePredicate(t *testing.T) {
	p := FieldTrue("exposed", "open")

	res := model.NewCheckResult("fake", "h", 1)
	res.Reachable = true

	if p.Match(res) {
		t.Error("missing field should not match")
	}
	res.SetField("open", "yes")
	if p.Match(res) {
		t.Error("non-bool field should not match")
	}
	res.SetField("open", true)
	if !p.Match(res) {
		t.Error("true field should match")
	}
}

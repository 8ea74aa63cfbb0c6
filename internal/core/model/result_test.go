package model

import (
	"testing"
)

// 测试不可达结果拒绝写入字段
func TestSetFieldRequiresReachable(t *testing.T) {
	res := NewCheckResult("redis", "10.0.0.1", 6379)

	res.SetField("version", "7.2.0")
	if res.Fields != nil {
		t.Errorf("expected no fields on unreachable result, got %v", res.Fields)
	}

	res.Reachable = true
	res.SetField("version", "7.2.0")
	if got := res.Field("version"); got != "7.2.0" {
		t.Errorf("expected version field, got %v", got)
	}
}

func TestFieldMissing(t *testing.T) {
	res := NewCheckResult("redis", "10.0.0.1", 6379)
	if got := res.Field("nope"); got != nil {
		t.Errorf("expected nil for missing field, got %v", got)
	}
}

func TestFailFormatsError(t *testing.T) {
	res := NewCheckResult("ftp", "10.0.0.1", 21)
	res.Fail(ErrKindTCPUnreachable, "connection refused")

	if res.ErrorKind != ErrKindTCPUnreachable {
		t.Errorf("unexpected kind: %s", res.ErrorKind)
	}
	if res.Error != "tcp_unreachable: connection refused" {
		t.Errorf("unexpected error string: %s", res.Error)
	}

	// cause 为空时只留分类标签
	res2 := NewCheckResult("ftp", "10.0.0.1", 21)
	res2.Fail(ErrKindAuthFailed, "")
	if res2.Error != "auth_failed" {
		t.Errorf("unexpected error string: %s", res2.Error)
	}
}

func TestSortResults(t *testing.T) {
	results := []*CheckResult{
		{Target: "10.0.0.2", Port: 80},
		{Target: "10.0.0.1", Port: 443},
		{Target: "10.0.0.1", Port: 80},
		{Target: "10.0.0.10", Port: 80},
	}
	SortResults(results)

	want := []struct {
		target string
		port   int
	}{
		{"10.0.0.1", 80},
		{"10.0.0.1", 443},
		{"10.0.0.10", 80},
		{"10.0.0.2", 80},
	}
	for i, w := range want {
		if results[i].Target != w.target || results[i].Port != w.port {
			t.Errorf("position %d: got %s:%d, want %s:%d",
				i, results[i].Target, results[i].Port, w.target, w.port)
		}
	}
}

package probe

import (
	"context"
	"reflect"
	"sort"
	"testing"

	"netrecon/internal/core/model"
)

type stubCheck struct{ name string }

func (s *stubCheck) Name() string        { return s.name }
func (s *stubCheck) DefaultPorts() []int { return []int{1} }
func (s *stubCheck) Probe(_ context.Context, target string, port int, _ TimeoutConfig) *model.CheckResult {
	return model.NewCheckResult(s.name, target, port)
}

func TestRegistry(t *testing.T) {
	Register("zzz-test", func(_ Options) Check { return &stubCheck{name: "zzz-test"} })
	Register("aaa-test", func(_ Options) Check { return &stubCheck{name: "aaa-test"} })

	check, err := New("zzz-test", DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if check.Name() != "zzz-test" {
		t.Errorf("Name = %q", check.Name())
	}

	if _, err := New("no-such-service", DefaultOptions()); err == nil {
		t.Error("expected error for unknown service")
	}

	names := Names()
	if !sortedContains(names, "aaa-test") || !sortedContains(names, "zzz-test") {
		t.Errorf("Names() missing registered checks: %v", names)
	}
	sorted := append([]string(nil), names...)
	sort.Strings(sorted)
	if !reflect.DeepEqual(names, sorted) {
		t.Errorf("Names() not sorted: %v", names)
	}
}

func TestRegisterDuplicatePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic on duplicate registration")
		}
	}()
	Register("dup-test", func(_ Options) Check { return &stubCheck{name: "dup-test"} })
	Register("dup-test", func(_ Options) Check { return &stubCheck{name: "dup-test"} })
}

func sortedContains(names []string, want string) bool {
	for _, n := range names {
		if n == want {
			return true
		}
	}
	return false
}

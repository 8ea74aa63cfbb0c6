package target

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func writeTargets(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "targets.txt")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadFile(t *testing.T) {
	path := writeTargets(t, `# 内网段
10.0.0.1

10.0.0.2
  10.0.0.3
10.0.0.2
# 尾注
`)

	targets, err := LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"10.0.0.1", "10.0.0.2", "10.0.0.3"}
	if !reflect.DeepEqual(targets, want) {
		t.Errorf("got %v, want %v", targets, want)
	}
}

func TestLoadFileEmpty(t *testing.T) {
	path := writeTargets(t, "# 只有注释\n\n")

	_, err := LoadFile(path)
	var empty *ErrEmptyTargetList
	if !errors.As(err, &empty) {
		t.Fatalf("expected ErrEmptyTargetList, got %v", err)
	}
	if empty.Path != path {
		t.Errorf("error path = %q, want %q", empty.Path, path)
	}
}

func TestLoadFileMissing(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "nope.txt")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestParsePorts(t *testing.T) {
	ports, err := ParsePorts("443, 80,80,8080")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(ports, []int{80, 443, 8080}) {
		t.Errorf("got %v", ports)
	}
}

func TestParsePortsInvalid(t *testing.T) {
	for _, spec := range []string{"0", "70000", "-1", "abc", "80,x", "", ","} {
		if _, err := ParsePorts(spec); err == nil {
			t.Errorf("spec %q: expected error", spec)
		}
	}
}

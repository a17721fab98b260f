package fs2

import (
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/opencontainers/runtime-spec/specs-go"

	"github.com/guni973/ace/libcontainer/cgroups"
	"github.com/guni973/ace/libcontainer/configs"
)

func TestDefaultDirPath(t *testing.T) {
	tests := []struct {
		cgroup *configs.Cgroup
		want   string
	}{
		{&configs.Cgroup{Parent: "ace", Name: "stretch"}, "/sys/fs/cgroup/ace/stretch"},
		{&configs.Cgroup{Path: "/custom/place"}, "/sys/fs/cgroup/custom/place"},
		{&configs.Cgroup{Name: "solo"}, "/sys/fs/cgroup/solo"},
	}
	for _, tt := range tests {
		if got := defaultDirPath(tt.cgroup); got != tt.want {
			t.Errorf("defaultDirPath(%+v) = %q, want %q", tt.cgroup, got, tt.want)
		}
	}
}

func TestNewManagerRejectsRelativePath(t *testing.T) {
	if _, err := NewManager(&configs.Cgroup{Name: "x"}, "relative/path"); err == nil {
		t.Error("expected an error for a relative cgroup dir")
	}
}

// TestManagerLifecycle exercises create, membership, limits and destroy
// against the real unified hierarchy. Needs root and cgroup v2.
func TestManagerLifecycle(t *testing.T) {
	if os.Geteuid() != 0 {
		t.Skip("requires root")
	}
	if !cgroups.IsCgroup2UnifiedMode() {
		t.Skip("requires the cgroup v2 unified hierarchy")
	}

	name := fmt.Sprintf("ace-test-%d", os.Getpid())
	m, err := NewManager(&configs.Cgroup{Parent: "ace", Name: name}, "")
	if err != nil {
		t.Fatal(err)
	}
	defer m.Destroy()

	if err := m.Apply(-1); err != nil {
		t.Fatalf("Apply(-1): %v", err)
	}
	if _, err := os.Stat(m.Path()); err != nil {
		t.Fatalf("cgroup directory missing after Apply: %v", err)
	}

	limit := int64(32)
	if err := m.Set(&specs.LinuxResources{Pids: &specs.LinuxPids{Limit: limit}}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	content, err := cgroups.ReadFile(m.Path(), "pids.max")
	if err != nil {
		t.Fatal(err)
	}
	if got := strings.TrimSpace(content); got != "32" {
		t.Errorf("pids.max = %q, want 32", got)
	}

	if err := m.Destroy(); err != nil {
		t.Fatalf("Destroy: %v", err)
	}
	if _, err := os.Stat(m.Path()); !os.IsNotExist(err) {
		t.Errorf("cgroup directory still present after Destroy")
	}
}

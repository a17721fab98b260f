package rootfs

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// countingTool writes a shell script that appends one line to a counter file
// per invocation and creates a marker inside the target rootfs.
func countingTool(t *testing.T) (tool, counter string) {
	t.Helper()
	dir := t.TempDir()
	counter = filepath.Join(dir, "count")
	tool = filepath.Join(dir, "bootstrap.sh")
	script := "#!/bin/sh\necho run >> " + counter + "\nmkdir -p \"$1/bin\"\ntouch \"$1/bin/sh\"\n"
	if err := os.WriteFile(tool, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}
	return tool, counter
}

func invocations(t *testing.T, counter string) int {
	t.Helper()
	data, err := os.ReadFile(counter)
	if os.IsNotExist(err) {
		return 0
	}
	if err != nil {
		t.Fatal(err)
	}
	return strings.Count(string(data), "run")
}

func TestEnsureIdempotent(t *testing.T) {
	tool, counter := countingTool(t)
	m := NewManager(t.TempDir(), []string{tool})

	first, err := m.Ensure("stretch")
	if err != nil {
		t.Fatalf("first ensure: %v", err)
	}
	second, err := m.Ensure("stretch")
	if err != nil {
		t.Fatalf("second ensure: %v", err)
	}
	if first != second {
		t.Errorf("ensure returned different paths: %q then %q", first, second)
	}
	if n := invocations(t, counter); n != 1 {
		t.Errorf("bootstrap tool ran %d times, want 1", n)
	}
}

func TestEnsureRepopulatesEmptyDir(t *testing.T) {
	tool, counter := countingTool(t)
	base := t.TempDir()
	m := NewManager(base, []string{tool})

	// pre-create an empty rootfs directory; it must still be bootstrapped
	if err := os.MkdirAll(m.Path("empty"), 0o755); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Ensure("empty"); err != nil {
		t.Fatal(err)
	}
	if n := invocations(t, counter); n != 1 {
		t.Errorf("bootstrap tool ran %d times, want 1", n)
	}
}

func TestEnsureBootstrapFailure(t *testing.T) {
	dir := t.TempDir()
	tool := filepath.Join(dir, "fail.sh")
	if err := os.WriteFile(tool, []byte("#!/bin/sh\nexit 42\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	m := NewManager(t.TempDir(), []string{tool})

	_, err := m.Ensure("broken")
	var bErr *BootstrapError
	if !errors.As(err, &bErr) {
		t.Fatalf("expected BootstrapError, got %v", err)
	}
	if bErr.ExitCode != 42 {
		t.Errorf("exit code = %d, want 42", bErr.ExitCode)
	}
}

func TestEnsureNoTool(t *testing.T) {
	m := NewManager(t.TempDir(), nil)
	_, err := m.Ensure("naked")
	var bErr *BootstrapError
	if !errors.As(err, &bErr) {
		t.Fatalf("expected BootstrapError, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	tool, _ := countingTool(t)
	base := t.TempDir()
	m := NewManager(base, []string{tool})

	if _, err := m.Ensure("victim"); err != nil {
		t.Fatal(err)
	}
	if err := m.Delete("victim"); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(base, "victim")); !os.IsNotExist(err) {
		t.Errorf("container directory still present after delete: %v", err)
	}
}

func TestPathDeterministic(t *testing.T) {
	m := NewManager("/var/lib/ace/containers", nil)
	want := "/var/lib/ace/containers/web/rootfs"
	if got := m.Path("web"); got != want {
		t.Errorf("Path(web) = %q, want %q", got, want)
	}
}

package libcontainer

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/guni973/ace/libcontainer/specconv"
)

// TestMain doubles as the container init when the test binary is re-execed
// through /proc/self/exe, the same way the engine's hidden init command
// does.
func TestMain(m *testing.M) {
	if len(os.Args) > 1 && os.Args[1] == "init" {
		runtime.GOMAXPROCS(1)
		runtime.LockOSThread()
		if err := StartInitialization(); err != nil {
			os.Exit(1)
		}
		panic("init returned without exec")
	}
	os.Exit(m.Run())
}

// shellBootstrap writes a bootstrap tool that builds a minimal rootfs from
// the host's /bin/sh and whatever libraries it links against.
func shellBootstrap(t *testing.T) []string {
	t.Helper()
	script := filepath.Join(t.TempDir(), "bootstrap.sh")
	content := `#!/bin/sh
set -e
root="$1"
mkdir -p "$root/bin"
cp /bin/sh "$root/bin/sh"
for lib in $(ldd /bin/sh 2>/dev/null | grep -o '/[^ )]*' | sort -u || true); do
	mkdir -p "$root${lib%/*}"
	cp "$lib" "$root$lib"
done
exit 0
`
	if err := os.WriteFile(script, []byte(content), 0o755); err != nil {
		t.Fatal(err)
	}
	return []string{script}
}

// runShellContainer takes a container through the full lifecycle with a
// bootstrapped shell rootfs and returns the workload's exit status.
func runShellContainer(t *testing.T, name, command string) (int, error) {
	t.Helper()
	config, err := specconv.CreateConfig(&specconv.CreateOpts{
		Name:      name,
		Command:   command,
		Root:      t.TempDir(),
		Bootstrap: shellBootstrap(t),
	})
	if err != nil {
		t.Fatal(err)
	}
	container, err := Create(name, config)
	if err != nil {
		t.Fatal(err)
	}
	return container.Run(&Process{Init: true})
}

// TestRunPropagatesExitStatus runs a real container end to end and checks
// the workload's exit code survives the whole lifecycle. Needs root.
func TestRunPropagatesExitStatus(t *testing.T) {
	if os.Geteuid() != 0 {
		t.Skip("requires root")
	}
	name := fmt.Sprintf("it-exit-%d", os.Getpid())
	status, err := runShellContainer(t, name, "exit 42")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if status != 42 {
		t.Errorf("exit status = %d, want 42", status)
	}
}

// TestRunIsolatesPidNamespace asserts the workload sees only its own
// process subtree: it runs as pid 1 and the fresh /proc lists (almost)
// nothing else. Needs root.
func TestRunIsolatesPidNamespace(t *testing.T) {
	if os.Geteuid() != 0 {
		t.Skip("requires root")
	}
	name := fmt.Sprintf("it-pidns-%d", os.Getpid())
	status, err := runShellContainer(t, name,
		`set -- /proc/[0-9]*; test -d /proc/1 && test "$#" -le 2`)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if status != 0 {
		t.Errorf("container sees host processes, check command exited %d", status)
	}
}

// TestRunPlacesWorkloadInCgroup asserts the workload runs inside the
// container's control group: the pid is added before the init config is
// even released, so the exec'd command inherits membership and its
// /proc/self/cgroup names the group. Needs root.
func TestRunPlacesWorkloadInCgroup(t *testing.T) {
	if os.Geteuid() != 0 {
		t.Skip("requires root")
	}
	name := fmt.Sprintf("it-cg-%d", os.Getpid())
	command := fmt.Sprintf(
		`ok=1; while read -r line; do case "$line" in *%s*) ok=0 ;; esac; done < /proc/self/cgroup; exit $ok`,
		name)
	status, err := runShellContainer(t, name, command)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if status != 0 {
		t.Errorf("/proc/self/cgroup does not mention %s, check command exited %d", name, status)
	}
}

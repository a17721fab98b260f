package libcontainer

import (
	"errors"
	"os/exec"
	"testing"
)

func TestTeardownReverseOrder(t *testing.T) {
	c := &Container{id: "t"}
	var order []string
	for _, name := range []string{"cgroup", "network", "mounts"} {
		name := name
		c.push(name, func() error {
			order = append(order, name)
			return nil
		})
	}
	if err := c.teardown(); err != nil {
		t.Fatalf("teardown: %v", err)
	}
	want := []string{"mounts", "network", "cgroup"}
	if len(order) != len(want) {
		t.Fatalf("released %d steps, want %d", len(order), len(want))
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("release %d = %s, want %s", i, order[i], want[i])
		}
	}
}

func TestTeardownCollectsFailures(t *testing.T) {
	c := &Container{id: "t"}
	boom := errors.New("boom")
	var released []string
	c.push("cgroup", func() error {
		released = append(released, "cgroup")
		return nil
	})
	c.push("network", func() error {
		released = append(released, "network")
		return boom
	})

	err := c.teardown()
	if err == nil {
		t.Fatal("teardown succeeded despite a failing releaser")
	}
	if !errors.Is(err, ErrFailedCleanup) {
		t.Errorf("teardown error = %v, want ErrFailedCleanup", err)
	}
	if !errors.Is(err, boom) {
		t.Errorf("teardown error does not wrap the release failure: %v", err)
	}
	// a failing step must not stop the remaining ones
	if len(released) != 2 || released[1] != "cgroup" {
		t.Errorf("released = %v, want both steps with cgroup last", released)
	}
}

func TestTeardownEmptyStack(t *testing.T) {
	c := &Container{id: "t"}
	if err := c.teardown(); err != nil {
		t.Fatalf("teardown with nothing acquired: %v", err)
	}
}

func TestExitStatus(t *testing.T) {
	cmd := exec.Command("/bin/sh", "-c", "exit 3")
	_ = cmd.Run()
	if got := exitStatus(cmd.ProcessState); got != 3 {
		t.Errorf("exitStatus = %d, want 3", got)
	}

	cmd = exec.Command("/bin/sh", "-c", "kill -KILL $$")
	_ = cmd.Run()
	// signal deaths follow the 128+n shell convention, SIGKILL is 9
	if got := exitStatus(cmd.ProcessState); got != 137 {
		t.Errorf("exitStatus after SIGKILL = %d, want 137", got)
	}

	if got := exitStatus(nil); got != 1 {
		t.Errorf("exitStatus(nil) = %d, want 1", got)
	}
}

func TestStatusString(t *testing.T) {
	tests := []struct {
		status Status
		want   string
	}{
		{Created, "created"},
		{RootfsReady, "rootfs-ready"},
		{NamespacesEntered, "namespaces-entered"},
		{NetworkAttached, "network-attached"},
		{Running, "running"},
		{Exited, "exited"},
		{CleanedUp, "cleaned-up"},
		{FailedCleanup, "failed-cleanup"},
		{Status(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.status.String(); got != tt.want {
			t.Errorf("Status(%d).String() = %q, want %q", tt.status, got, tt.want)
		}
	}
}

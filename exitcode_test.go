package main

import (
	"errors"
	"fmt"
	"testing"

	"github.com/guni973/ace/libcontainer"
	"github.com/guni973/ace/libcontainer/cgroups"
	"github.com/guni973/ace/libcontainer/network"
	"github.com/guni973/ace/libcontainer/rootfs"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, 0},
		{"bootstrap", &rootfs.BootstrapError{Tool: "mmdebstrap", ExitCode: 2}, 10},
		{"wrapped bootstrap", fmt.Errorf("run: %w", &rootfs.BootstrapError{Tool: "x", ExitCode: 1}), 10},
		{"cgroup unavailable", fmt.Errorf("apply: %w", cgroups.ErrUnavailable), 11},
		{"cgroup busy", cgroups.ErrBusy, 11},
		{"namespace", libcontainer.ErrNamespaceSetup, 12},
		{"mount", fmt.Errorf("%w: mounting proc", libcontainer.ErrMountFailed), 12},
		{"network collision", network.ErrInterfaceNameCollision, 13},
		{"exec", libcontainer.ErrExecFailed, 14},
		{"permission", libcontainer.ErrPermissionDenied, 15},
		{"cleanup", fmt.Errorf("%w: release network", libcontainer.ErrFailedCleanup), 16},
		{"generic", errors.New("something else"), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := exitCode(tt.err); got != tt.want {
				t.Errorf("exitCode(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestExitCodeCleanupWins(t *testing.T) {
	// A failed run followed by a failed cleanup reports the cleanup code.
	joined := errors.Join(
		fmt.Errorf("%w: no such file", libcontainer.ErrExecFailed),
		fmt.Errorf("%w: release cgroup", libcontainer.ErrFailedCleanup),
	)
	if got := exitCode(joined); got != codeFailedCleanup {
		t.Errorf("exitCode(joined) = %d, want %d", got, codeFailedCleanup)
	}
}

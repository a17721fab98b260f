package cgroups

import (
	"errors"

	"github.com/opencontainers/runtime-spec/specs-go"
)

var (
	// ErrUnavailable reports that the cgroup filesystem is not mounted, or
	// not writable with the caller's privileges. This is reported, not
	// retried.
	ErrUnavailable = errors.New("cgroup filesystem unavailable")

	// ErrBusy reports a destroy attempt on a group that still has member
	// processes. The lifecycle reaps the child before destroying its group,
	// so observing ErrBusy is an ordering violation, not an expected runtime
	// condition.
	ErrBusy = errors.New("cgroup has live member processes")
)

// Manager owns one container's control group.
type Manager interface {
	// Apply creates the cgroup (if needed) and moves pid into it. A pid of
	// -1 creates the group without adding a process.
	Apply(pid int) error

	// Set writes resource limits into the group's controller files. Nil
	// resources (or nil members) leave the corresponding controller alone.
	Set(r *specs.LinuxResources) error

	// Path returns the absolute directory of the group; on cgroup v1 this is
	// the memory controller's path.
	Path() string

	// Destroy removes the group directory. The group must have no member
	// processes left.
	Destroy() error
}

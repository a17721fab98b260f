package libcontainer

import "errors"

var (
	// ErrPermissionDenied means the engine lacks the capabilities to create
	// namespaces, mount filesystems or manipulate interfaces. Checked before
	// any setup so no partial state is ever acquired without privilege.
	ErrPermissionDenied = errors.New("insufficient privileges")

	// ErrNamespaceSetup covers clone and in-child isolation failures that
	// are not mount related.
	ErrNamespaceSetup = errors.New("namespace setup failed")

	// ErrMountFailed covers root swapping and pseudo-filesystem mounts
	// inside the new mount namespace.
	ErrMountFailed = errors.New("mount failed")

	// ErrExecFailed means the container command could not be executed, e.g.
	// the binary does not exist inside the rootfs.
	ErrExecFailed = errors.New("exec failed")

	// ErrFailedCleanup aggregates teardown failures. It always wraps the
	// collected release errors; leaking a cgroup directory or a veth
	// silently would poison later runs.
	ErrFailedCleanup = errors.New("cleanup failed")
)

package libcontainer

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/guni973/ace/libcontainer/cgroups"
	"github.com/guni973/ace/libcontainer/configs"
	"github.com/guni973/ace/libcontainer/network"
	"github.com/guni973/ace/libcontainer/rootfs"
	"github.com/guni973/ace/libcontainer/utils"
)

// Status tracks how far a run has progressed. It only ever moves forward;
// teardown looks at the releaser stack, not the status, to decide what to
// undo.
type Status int

const (
	// Created means the container exists but no resources are acquired.
	Created Status = iota
	// RootfsReady means the root filesystem is populated on disk.
	RootfsReady
	// NamespacesEntered means the init child is cloned and has finished
	// its in-namespace setup.
	NamespacesEntered
	// NetworkAttached means the veth pair is wired to the bridge.
	NetworkAttached
	// Running means the workload has taken over the init child.
	Running
	// Exited means the workload has terminated but resources remain.
	Exited
	// CleanedUp means every acquired resource was released.
	CleanedUp
	// FailedCleanup means at least one release step failed; the details
	// are in the error returned from Run.
	FailedCleanup
)

func (s Status) String() string {
	switch s {
	case Created:
		return "created"
	case RootfsReady:
		return "rootfs-ready"
	case NamespacesEntered:
		return "namespaces-entered"
	case NetworkAttached:
		return "network-attached"
	case Running:
		return "running"
	case Exited:
		return "exited"
	case CleanedUp:
		return "cleaned-up"
	case FailedCleanup:
		return "failed-cleanup"
	default:
		return "unknown"
	}
}

// releaser is one undo step pushed after its resource is acquired. The
// stack is popped in reverse so release order is the exact mirror of
// acquisition order.
type releaser struct {
	name    string
	release func() error
}

// Container drives a single run of a named container from resource
// acquisition through teardown. It is not safe for concurrent use; the CLI
// runs one container per process.
type Container struct {
	id            string
	config        *configs.Config
	cgroupManager cgroups.Manager
	rootfsManager *rootfs.Manager

	initProcess parentProcess
	endpoint    *network.Endpoint
	status      Status
	releasers   []releaser
}

func (c *Container) ID() string { return c.id }

func (c *Container) Status() Status { return c.status }

// Signal forwards sig to the container init. Before the child exists or
// after it has been reaped this is a no-op.
func (c *Container) Signal(sig os.Signal) error {
	if c.initProcess == nil {
		return nil
	}
	return c.initProcess.signal(sig)
}

func (c *Container) push(name string, release func() error) {
	c.releasers = append(c.releasers, releaser{name: name, release: release})
}

// Run takes the container through its whole lifecycle and returns the
// workload's exit status. Setup failures abort the forward path; teardown
// runs unconditionally once any resource was acquired, and its failures are
// reported even when the workload itself succeeded.
func (c *Container) Run(process *Process) (int, error) {
	exit, runErr := c.run(process)

	cleanupErr := c.teardown()
	if cleanupErr != nil {
		c.status = FailedCleanup
		if runErr != nil {
			return exit, errors.Join(runErr, cleanupErr)
		}
		return exit, cleanupErr
	}
	c.status = CleanedUp
	if runErr != nil {
		return exit, runErr
	}
	return exit, nil
}

func (c *Container) run(process *Process) (int, error) {
	if err := checkPrivileges(c.config.Network != nil); err != nil {
		return 1, err
	}

	if _, err := c.rootfsManager.Ensure(c.id); err != nil {
		return 1, err
	}
	c.status = RootfsReady

	parent, err := c.newParentProcess(process)
	if err != nil {
		return 1, err
	}
	c.initProcess = parent

	// The cgroup directory exists before the clone so the manager's Apply
	// in start only has to add the pid.
	if err := c.cgroupManager.Apply(-1); err != nil {
		return 1, err
	}
	c.push("cgroup", c.cgroupManager.Destroy)
	if c.config.Cgroups != nil && c.config.Cgroups.Resources != nil {
		if err := c.cgroupManager.Set(c.config.Cgroups.Resources); err != nil {
			return 1, err
		}
	}

	if err := parent.start(); err != nil {
		_ = parent.terminate()
		return 1, err
	}
	if err := parent.ready(); err != nil {
		_ = parent.terminate()
		return 1, err
	}
	c.status = NamespacesEntered
	logrus.Debugf("container %s: init pid %d reported ready", c.id, parent.pid())

	if c.config.Network != nil {
		ep, err := network.Attach(parent.pid(), c.id, c.config.Network)
		if err != nil {
			_ = parent.terminate()
			return 1, err
		}
		c.endpoint = ep
		c.push("network", func() error { return network.Detach(ep) })
		c.status = NetworkAttached
	}

	if err := parent.run(); err != nil {
		_ = parent.terminate()
		return 1, err
	}
	if err := parent.execWait(); err != nil {
		_ = parent.terminate()
		return 1, err
	}
	c.status = Running

	state, err := parent.wait()
	if err != nil {
		return 1, err
	}
	c.status = Exited
	return exitStatus(state), nil
}

// teardown reaps the init child first, then pops the releaser stack. The
// child must be gone before anything else: the cgroup cannot be removed
// while it holds a pid, and deleting the veth is only safe once its
// namespace is unreferenced. Every step runs even when earlier ones fail;
// the failures are collected rather than masking each other.
func (c *Container) teardown() error {
	var errs []error
	if c.initProcess != nil {
		if err := c.initProcess.terminate(); err != nil {
			errs = append(errs, fmt.Errorf("terminate init: %w", err))
		}
	}
	for i := len(c.releasers) - 1; i >= 0; i-- {
		r := c.releasers[i]
		if err := r.release(); err != nil {
			errs = append(errs, fmt.Errorf("release %s: %w", r.name, err))
			logrus.Errorf("container %s: releasing %s: %v", c.id, r.name, err)
		}
	}
	c.releasers = nil
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrFailedCleanup, errors.Join(errs...))
	}
	return nil
}

// newParentProcess builds the re-exec command that becomes the container
// init: this binary again, the hidden init subcommand, cloned straight into
// the new namespaces with the child half of the sync socketpair as fd 3.
func (c *Container) newParentProcess(process *Process) (*initProcess, error) {
	parentPipe, childPipe, err := utils.NewSockPair("init")
	if err != nil {
		return nil, fmt.Errorf("unable to create init pipe: %w", err)
	}

	cmd := exec.Command("/proc/self/exe", "init")
	cmd.Stdin = process.Stdin
	cmd.Stdout = process.Stdout
	cmd.Stderr = process.Stderr
	if cmd.Stdin == nil {
		cmd.Stdin = os.Stdin
	}
	if cmd.Stdout == nil {
		cmd.Stdout = os.Stdout
	}
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}
	cmd.ExtraFiles = append(process.ExtraFiles, childPipe)
	cmd.Env = append(os.Environ(),
		fmt.Sprintf("%s=%d", initPipeEnv, 3+len(process.ExtraFiles)),
	)
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Cloneflags: c.config.Namespaces.CloneFlags(),
	}

	return &initProcess{
		cmd:             cmd,
		messageSockPair: filePair{parent: parentPipe, child: childPipe},
		manager:         c.cgroupManager,
		config: &initConfig{
			Name:     c.id,
			Rootfs:   c.config.Rootfs,
			Hostname: c.config.Hostname,
			Args:     c.config.Args,
			Env:      c.config.Env,
		},
	}, nil
}

// exitStatus mirrors the shell convention for signal deaths.
func exitStatus(state *os.ProcessState) int {
	if state == nil {
		return 1
	}
	ws := state.Sys().(syscall.WaitStatus)
	if ws.Signaled() {
		return 128 + int(ws.Signal())
	}
	return ws.ExitStatus()
}

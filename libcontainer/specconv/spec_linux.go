// Package specconv translates the engine's run options into a libcontainer
// Config.
package specconv

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/docker/go-units"
	"github.com/opencontainers/runtime-spec/specs-go"

	"github.com/guni973/ace/libcontainer/configs"
	"github.com/guni973/ace/libcontainer/rootfs"
)

type CreateOpts struct {
	// Name is the container name; it doubles as hostname and cgroup name.
	Name string

	// Command is the shell command to execute; empty means an interactive
	// shell.
	Command string

	// Root is the engine state directory, e.g. /var/lib/ace.
	Root string

	// Bootstrap is the external bootstrap tool argv prefix.
	Bootstrap []string

	// Network enables the bridge/veth attachment when non-nil.
	Network *configs.Network

	// Resources carries optional cgroup limits.
	Resources *specs.LinuxResources
}

// The PATH the container command is resolved against and started with.
const defaultPath = "PATH=/bin:/usr/bin:/usr/local/bin:/sbin:/usr/sbin"

// CreateConfig builds a container Config from run options.
func CreateConfig(opts *CreateOpts) (*configs.Config, error) {
	if opts.Name == "" {
		return nil, errors.New("container name must be specified")
	}
	root := opts.Root
	if !filepath.IsAbs(root) {
		return nil, fmt.Errorf("state root %q: not an absolute path", root)
	}

	args := []string{"/bin/sh"}
	if opts.Command != "" {
		args = []string{"/bin/sh", "-c", opts.Command}
	}

	config := &configs.Config{
		Rootfs:   rootfs.Path(filepath.Join(root, "containers"), opts.Name),
		Hostname: opts.Name,
		Args:     args,
		Env: []string{
			defaultPath,
			"LC_ALL=C",
			"TERM=xterm",
			"HOSTNAME=" + opts.Name,
		},
		Namespaces: configs.Namespaces{
			{Type: configs.NEWNS},
			{Type: configs.NEWPID},
			{Type: configs.NEWUTS},
			{Type: configs.NEWIPC},
			{Type: configs.NEWNET},
		},
		Cgroups: &configs.Cgroup{
			Name:      opts.Name,
			Parent:    "ace",
			Resources: opts.Resources,
		},
		Network:   opts.Network,
		Bootstrap: opts.Bootstrap,
	}
	return config, nil
}

// ParseResources converts the human-readable limit flags into runtime-spec
// resources. Empty flags yield nil members, which the cgroup managers treat
// as "write no limit file".
func ParseResources(memory string, cpus float64, pidsLimit int64) (*specs.LinuxResources, error) {
	if memory == "" && cpus == 0 && pidsLimit == 0 {
		return nil, nil
	}
	r := &specs.LinuxResources{}
	if memory != "" {
		limit, err := units.RAMInBytes(memory)
		if err != nil {
			return nil, fmt.Errorf("invalid memory limit %q: %w", memory, err)
		}
		r.Memory = &specs.LinuxMemory{Limit: &limit}
	}
	if cpus != 0 {
		if cpus < 0 {
			return nil, fmt.Errorf("invalid cpu limit %v: must be positive", cpus)
		}
		period := uint64(100000)
		quota := int64(cpus * float64(period))
		r.CPU = &specs.LinuxCPU{Quota: &quota, Period: &period}
	}
	if pidsLimit != 0 {
		r.Pids = &specs.LinuxPids{Limit: pidsLimit}
	}
	return r, nil
}

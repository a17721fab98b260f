package fs

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/opencontainers/runtime-spec/specs-go"

	"github.com/guni973/ace/libcontainer/cgroups"
	"github.com/guni973/ace/libcontainer/configs"
)

// The v1 controllers this engine manages. Everything else is left to the
// host's default hierarchy.
var subsystems = []string{"cpu", "memory", "pids"}

const legacyMountpoint = "/sys/fs/cgroup"

type Manager struct {
	mu      sync.Mutex
	cgroups *configs.Cgroup
	paths   map[string]string
}

func NewManager(cg *configs.Cgroup, paths map[string]string) (*Manager, error) {
	if paths == nil {
		paths = initPaths(cg)
	}
	return &Manager{
		cgroups: cg,
		paths:   paths,
	}, nil
}

func initPaths(cg *configs.Cgroup) map[string]string {
	inner := cg.Path
	if inner == "" {
		inner = filepath.Join("/", cg.Parent, cg.Name)
	}
	paths := make(map[string]string, len(subsystems))
	for _, sys := range subsystems {
		paths[sys] = filepath.Join(legacyMountpoint, sys, inner)
	}
	return paths
}

func (m *Manager) Apply(pid int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, sys := range subsystems {
		path := m.paths[sys]
		if err := os.MkdirAll(path, 0o755); err != nil {
			if os.IsPermission(err) {
				return fmt.Errorf("%w: %v", cgroups.ErrUnavailable, err)
			}
			return err
		}
		if err := cgroups.WriteCgroupProc(path, pid); err != nil {
			return err
		}
	}
	return nil
}

func (m *Manager) Set(r *specs.LinuxResources) error {
	if r == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if r.Memory != nil && r.Memory.Limit != nil {
		val := strconv.FormatInt(*r.Memory.Limit, 10)
		if err := cgroups.WriteFile(m.paths["memory"], "memory.limit_in_bytes", val); err != nil {
			return err
		}
	}
	if r.CPU != nil && r.CPU.Quota != nil {
		period := uint64(100000)
		if r.CPU.Period != nil && *r.CPU.Period != 0 {
			period = *r.CPU.Period
		}
		if err := cgroups.WriteFile(m.paths["cpu"], "cpu.cfs_period_us", strconv.FormatUint(period, 10)); err != nil {
			return err
		}
		if err := cgroups.WriteFile(m.paths["cpu"], "cpu.cfs_quota_us", strconv.FormatInt(*r.CPU.Quota, 10)); err != nil {
			return err
		}
	}
	if r.Pids != nil && r.Pids.Limit != 0 {
		val := "max"
		if r.Pids.Limit > 0 {
			val = strconv.FormatInt(r.Pids.Limit, 10)
		}
		if err := cgroups.WriteFile(m.paths["pids"], "pids.max", val); err != nil {
			return err
		}
	}
	return nil
}

func (m *Manager) Path() string {
	return m.paths["memory"]
}

func (m *Manager) Destroy() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, sys := range subsystems {
		if err := cgroups.RemovePath(m.paths[sys]); err != nil {
			return err
		}
	}
	return nil
}

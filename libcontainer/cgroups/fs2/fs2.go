package fs2

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/opencontainers/runtime-spec/specs-go"

	"github.com/guni973/ace/libcontainer/cgroups"
	"github.com/guni973/ace/libcontainer/configs"
)

type Manager struct {
	config *configs.Cgroup
	// dirPath is like "/sys/fs/cgroup/ace/stretch".
	dirPath string
}

// NewManager creates a manager for cgroup v2 unified hierarchy.
// dirPath is like "/sys/fs/cgroup/ace/stretch".
// If dirPath is empty, it is automatically set using config.
func NewManager(config *configs.Cgroup, dirPath string) (*Manager, error) {
	if dirPath == "" {
		dirPath = defaultDirPath(config)
	}
	if !filepath.IsAbs(dirPath) {
		return nil, fmt.Errorf("invalid cgroup dir path %q", dirPath)
	}
	return &Manager{
		config:  config,
		dirPath: dirPath,
	}, nil
}

func defaultDirPath(c *configs.Cgroup) string {
	innerPath := c.Path
	if innerPath == "" {
		innerPath = filepath.Join("/", c.Parent, c.Name)
	}
	return filepath.Join(cgroups.UnifiedMountpoint, innerPath)
}

func (m *Manager) Apply(pid int) error {
	if err := CreateCgroupPath(m.dirPath, m.config); err != nil {
		return err
	}
	if err := cgroups.WriteCgroupProc(m.dirPath, pid); err != nil {
		if os.IsPermission(err) {
			return fmt.Errorf("%w: %v", cgroups.ErrUnavailable, err)
		}
		return err
	}
	return nil
}

func (m *Manager) Set(r *specs.LinuxResources) error {
	if r == nil {
		return nil
	}
	if r.Memory != nil && r.Memory.Limit != nil {
		val := "max"
		if *r.Memory.Limit > 0 {
			val = strconv.FormatInt(*r.Memory.Limit, 10)
		}
		if err := cgroups.WriteFile(m.dirPath, "memory.max", val); err != nil {
			return err
		}
	}
	if r.CPU != nil && r.CPU.Quota != nil {
		period := uint64(100000)
		if r.CPU.Period != nil && *r.CPU.Period != 0 {
			period = *r.CPU.Period
		}
		quota := "max"
		if *r.CPU.Quota > 0 {
			quota = strconv.FormatInt(*r.CPU.Quota, 10)
		}
		val := fmt.Sprintf("%s %d", quota, period)
		if err := cgroups.WriteFile(m.dirPath, "cpu.max", val); err != nil {
			return err
		}
	}
	if r.Pids != nil && r.Pids.Limit != 0 {
		val := "max"
		if r.Pids.Limit > 0 {
			val = strconv.FormatInt(r.Pids.Limit, 10)
		}
		if err := cgroups.WriteFile(m.dirPath, "pids.max", val); err != nil {
			return err
		}
	}
	return nil
}

func (m *Manager) Path() string {
	return m.dirPath
}

func (m *Manager) Destroy() error {
	return cgroups.RemovePath(m.dirPath)
}

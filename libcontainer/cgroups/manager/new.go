package manager

import (
	"errors"

	"github.com/guni973/ace/libcontainer/cgroups"
	"github.com/guni973/ace/libcontainer/cgroups/fs"
	"github.com/guni973/ace/libcontainer/cgroups/fs2"
	"github.com/guni973/ace/libcontainer/configs"
)

// New picks the cgroup manager matching the mounted hierarchy: the unified
// v2 hierarchy where available, the per-controller v1 layout otherwise.
func New(config *configs.Cgroup) (cgroups.Manager, error) {
	if config == nil {
		return nil, errors.New("cgroups/manager.New: config must not be nil")
	}
	if cgroups.IsCgroup2UnifiedMode() {
		return fs2.NewManager(config, "")
	}
	return fs.NewManager(config, nil)
}

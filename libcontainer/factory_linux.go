package libcontainer

import (
	"fmt"
	"path/filepath"

	"github.com/guni973/ace/libcontainer/cgroups/manager"
	"github.com/guni973/ace/libcontainer/configs"
	"github.com/guni973/ace/libcontainer/configs/validate"
	"github.com/guni973/ace/libcontainer/rootfs"
)

// Create validates config and assembles a Container ready to Run. No kernel
// resources are touched here; the container directory appears on disk only
// once Run ensures the rootfs.
func Create(id string, config *configs.Config) (*Container, error) {
	if err := validate.ID(id); err != nil {
		return nil, err
	}
	if config == nil {
		return nil, fmt.Errorf("no container config supplied")
	}
	if err := validate.Validate(config); err != nil {
		return nil, err
	}
	cm, err := manager.New(config.Cgroups)
	if err != nil {
		return nil, err
	}
	// config.Rootfs is <base>/<name>/rootfs; the manager owns <base>.
	base := filepath.Dir(filepath.Dir(config.Rootfs))
	return &Container{
		id:            id,
		config:        config,
		cgroupManager: cm,
		rootfsManager: rootfs.NewManager(base, config.Bootstrap),
		status:        Created,
	}, nil
}

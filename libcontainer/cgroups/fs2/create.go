package fs2

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/moby/sys/mountinfo"

	"github.com/guni973/ace/libcontainer/cgroups"
	"github.com/guni973/ace/libcontainer/configs"
)

func supportedControllers() (string, error) {
	return cgroups.ReadFile(cgroups.UnifiedMountpoint, "cgroup.controllers")
}

// CreateCgroupPath creates the cgroup v2 path, enabling all the supported
// controllers in the intermediate directories' subtree_control on the way
// down. Directories created here are removed again if a later step fails.
func CreateCgroupPath(path string, c *configs.Cgroup) (Err error) {
	if !strings.HasPrefix(path, cgroups.UnifiedMountpoint) {
		return fmt.Errorf("invalid cgroup path %s", path)
	}
	if mounted, err := mountinfo.Mounted(cgroups.UnifiedMountpoint); err != nil || !mounted {
		return fmt.Errorf("%w: %s is not mounted", cgroups.ErrUnavailable, cgroups.UnifiedMountpoint)
	}

	content, err := supportedControllers()
	if err != nil {
		return fmt.Errorf("%w: %v", cgroups.ErrUnavailable, err)
	}
	ctrs := strings.Fields(content)
	res := "+" + strings.Join(ctrs, " +")

	elements := strings.Split(strings.TrimPrefix(path, cgroups.UnifiedMountpoint), "/")
	current := cgroups.UnifiedMountpoint
	var created []string
	defer func() {
		if Err != nil {
			for i := len(created) - 1; i >= 0; i-- {
				_ = os.Remove(created[i])
			}
		}
	}()
	for i, elem := range elements {
		if elem == "" {
			continue
		}
		current = filepath.Join(current, elem)
		if err := os.Mkdir(current, 0o755); err != nil {
			if !os.IsExist(err) {
				if os.IsPermission(err) {
					return fmt.Errorf("%w: %v", cgroups.ErrUnavailable, err)
				}
				return err
			}
		} else {
			created = append(created, current)
		}
		// enable the controllers for the children of every intermediate
		// directory; the leaf itself must not have subtree_control set or
		// adding a process would fail with EBUSY
		if i < len(elements)-1 {
			if err := cgroups.WriteFile(current, "cgroup.subtree_control", res); err != nil {
				// the kernel rejects the write wholesale if a single
				// controller is unavailable here, so retry one by one
				for _, ctr := range ctrs {
					_ = cgroups.WriteFile(current, "cgroup.subtree_control", "+"+ctr)
				}
			}
		}
	}
	return nil
}

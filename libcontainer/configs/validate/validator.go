package validate

import (
	"errors"
	"fmt"
	"net"
	"path/filepath"
	"regexp"

	"github.com/guni973/ace/libcontainer/configs"
)

// Container names become a directory component under the state root and the
// seed of the veth interface names, so the allowed alphabet is the
// intersection of both worlds.
var nameRegexp = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_.-]*$`)

const maxNameLen = 64

type check func(config *configs.Config) error

func Validate(config *configs.Config) error {
	checks := []check{
		rootfs,
		hostname,
		namespaces,
		network,
	}
	for _, c := range checks {
		if err := c(config); err != nil {
			return err
		}
	}
	return nil
}

// ID checks that a container name is usable both as a filesystem path
// component and as a network-interface-name fragment.
func ID(id string) error {
	if id == "" {
		return errors.New("invalid container name: empty")
	}
	if len(id) > maxNameLen {
		return fmt.Errorf("invalid container name %q: longer than %d characters", id, maxNameLen)
	}
	if !nameRegexp.MatchString(id) {
		return fmt.Errorf("invalid container name %q: must match %s", id, nameRegexp.String())
	}
	return nil
}

// rootfs validates that the rootfs is an absolute, clean path. The directory
// itself may not exist yet; the rootfs manager creates it on first run.
func rootfs(config *configs.Config) error {
	if config.Rootfs == "" {
		return errors.New("invalid rootfs: path is empty")
	}
	if !filepath.IsAbs(config.Rootfs) {
		return fmt.Errorf("invalid rootfs %q: not an absolute path", config.Rootfs)
	}
	if filepath.Clean(config.Rootfs) != config.Rootfs {
		return fmt.Errorf("invalid rootfs %q: not a clean path", config.Rootfs)
	}
	return nil
}

func hostname(config *configs.Config) error {
	if config.Hostname != "" && !config.Namespaces.Contains(configs.NEWUTS) {
		return errors.New("unable to set hostname without a private UTS namespace")
	}
	return nil
}

func namespaces(config *configs.Config) error {
	for _, t := range []configs.NamespaceType{configs.NEWNS, configs.NEWPID} {
		if !config.Namespaces.Contains(t) {
			return fmt.Errorf("namespace %s is required", t)
		}
	}
	return nil
}

func network(config *configs.Config) error {
	if config.Network == nil {
		return nil
	}
	if !config.Namespaces.Contains(configs.NEWNET) {
		return errors.New("unable to attach a veth without a private network namespace")
	}
	if config.Network.Bridge == "" {
		return errors.New("invalid network: bridge name is empty")
	}
	if _, _, err := net.ParseCIDR(config.Network.BridgeAddress); err != nil {
		return fmt.Errorf("invalid bridge address %q: %w", config.Network.BridgeAddress, err)
	}
	return nil
}

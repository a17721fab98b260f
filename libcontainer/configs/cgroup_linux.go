package configs

import (
	"github.com/opencontainers/runtime-spec/specs-go"
)

type Cgroup struct {
	// Name specifies the name of the cgroup
	Name string `json:"name,omitempty"`

	// Parent specifies the name of parent of cgroup or slice
	Parent string `json:"parent,omitempty"`

	// Path specifies the path to cgroups that are created and/or joined by the container.
	// The path is assumed to be relative to the host system cgroup mountpoint.
	Path string `json:"path"`

	// Resources contains various cgroups settings to apply. A nil Resources
	// (or a nil member) means no limit file is written for that controller.
	Resources *specs.LinuxResources `json:"resources,omitempty"`
}

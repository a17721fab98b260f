package configs

// Config defines configuration options for executing a process inside a contained environment.
type Config struct {
	// Path to a directory containing the container's root filesystem.
	Rootfs string `json:"rootfs"`

	// Hostname sets the container's hostname, normally the container name.
	Hostname string `json:"hostname"`

	// Args is the command executed as init inside the container. The first
	// element is resolved against PATH inside the new root.
	Args []string `json:"args"`

	// Env is the environment of the container process.
	Env []string `json:"env"`

	// Cgroups specifies specific cgroup settings for the various subsystems that the container is
	// placed into to limit the resources the container has available.
	Cgroups *Cgroup `json:"cgroups"`

	// Namespaces specifies the container's namespaces that it should setup when cloning the init process.
	// If a namespace is not provided that namespace is shared from the container's parent process.
	Namespaces Namespaces `json:"namespaces"`

	// Network describes the bridge/veth attachment for the container. A nil
	// Network leaves the container with only an unconfigured loopback
	// interface in its fresh network namespace.
	Network *Network `json:"network,omitempty"`

	// Bootstrap is the argv prefix of the external tool that populates an
	// empty rootfs; the rootfs path is appended as the final argument.
	Bootstrap []string `json:"bootstrap,omitempty"`

	// Labels are user defined metadata that is stored in the config and populated on the state.
	Labels []string `json:"labels,omitempty"`
}

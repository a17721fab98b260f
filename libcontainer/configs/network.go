package configs

// Network defines the bridge attachment for a container. The host end of the
// veth pair is enslaved to Bridge; the container end is renamed, addressed
// and routed through the bridge address.
type Network struct {
	// Bridge is the name of the host bridge the veth host end joins.
	Bridge string `json:"bridge"`

	// BridgeAddress is the bridge's address in CIDR notation, e.g.
	// "10.42.0.1/24". It doubles as the container's default gateway and
	// defines the subnet container addresses are derived from.
	BridgeAddress string `json:"bridge_address"`

	// Mtu sets the mtu value for the veth pair and is inherited by the
	// container interface. Zero means the kernel default.
	Mtu int `json:"mtu,omitempty"`
}

package network

import (
	"fmt"
	"hash/fnv"
)

// Kernel interface names are capped at 15 characters (IFNAMSIZ minus the NUL
// terminator). Veth names carry a 3-character prefix, leaving 12 for the
// container key.
const (
	ifNameMax  = 15
	keyBudget  = ifNameMax - 3
	hostPrefix = "ve-"
	peerPrefix = "vp-"
)

// deriveKey maps a container name onto the interface-name budget. Short
// names pass through untouched; long names keep a readable prefix and gain
// an FNV-32a suffix of the full name. Two running containers whose derived
// keys collide are a documented limitation: Attach fails with
// ErrInterfaceNameCollision rather than silently reusing the link.
func deriveKey(name string) string {
	if len(name) <= keyBudget {
		return name
	}
	h := fnv.New32a()
	h.Write([]byte(name))
	return fmt.Sprintf("%.4s%08x", name, h.Sum32())
}

// VethNames returns the deterministic host-side and container-side veth
// names for a container.
func VethNames(name string) (host, peer string) {
	key := deriveKey(name)
	return hostPrefix + key, peerPrefix + key
}

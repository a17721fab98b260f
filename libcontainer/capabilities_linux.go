package libcontainer

import (
	"fmt"
	"strings"

	"github.com/syndtr/gocapability/capability"
)

// checkPrivileges fails fast when the engine lacks the capabilities that
// namespace, mount and interface manipulation require. Probing up front
// keeps a permission problem from surfacing halfway through setup with
// kernel resources already acquired.
func checkPrivileges(networked bool) error {
	caps, err := capability.NewPid2(0)
	if err != nil {
		return fmt.Errorf("read own capabilities: %w", err)
	}
	if err := caps.Load(); err != nil {
		return fmt.Errorf("load own capabilities: %w", err)
	}
	required := []capability.Cap{
		capability.CAP_SYS_ADMIN,
		capability.CAP_SYS_CHROOT,
		capability.CAP_MKNOD,
	}
	if networked {
		required = append(required, capability.CAP_NET_ADMIN)
	}
	var missing []string
	for _, c := range required {
		if !caps.Get(capability.EFFECTIVE, c) {
			missing = append(missing, c.String())
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing capabilities: %s", ErrPermissionDenied, strings.Join(missing, ", "))
	}
	return nil
}

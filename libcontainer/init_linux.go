package libcontainer

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	securejoin "github.com/cyphar/filepath-securejoin"
	"golang.org/x/sys/unix"

	"github.com/guni973/ace/libcontainer/utils"
)

// StartInitialization is the entry point of the container init. It runs
// inside the freshly cloned namespaces as PID 1: it loads the config from
// the sync pipe, isolates the mount namespace, reports readiness, and execs
// the container command once the parent says go.
func StartInitialization() error {
	fdStr := os.Getenv(initPipeEnv)
	fd, err := strconv.Atoi(fdStr)
	if err != nil {
		return fmt.Errorf("%s=%q: %w", initPipeEnv, fdStr, err)
	}
	pipe := os.NewFile(uintptr(fd), "init-c")
	defer pipe.Close()

	dec := json.NewDecoder(pipe)
	enc := json.NewEncoder(pipe)

	var config initConfig
	if err := dec.Decode(&config); err != nil {
		return fmt.Errorf("reading init config: %w", err)
	}

	if err := setupContainer(&config); err != nil {
		_ = writeSyncError(enc, err)
		return err
	}
	if err := writeSync(enc, procReady); err != nil {
		return err
	}
	// Block until the parent has finished the host-side setup that needs
	// this process's namespaces (moving the veth in, cgroup limits).
	if err := readSync(dec, procRun); err != nil {
		return err
	}

	return execProcess(&config, enc)
}

func execProcess(config *initConfig, enc *json.Encoder) error {
	if len(config.Args) == 0 {
		err := fmt.Errorf("%w: no command specified", ErrExecFailed)
		_ = writeSyncError(enc, err)
		return err
	}
	// resolve the command against the container's own PATH
	for _, kv := range config.Env {
		if strings.HasPrefix(kv, "PATH=") {
			os.Setenv("PATH", strings.TrimPrefix(kv, "PATH="))
		}
	}
	name, err := exec.LookPath(config.Args[0])
	if err != nil {
		err = fmt.Errorf("%w: %v", ErrExecFailed, err)
		_ = writeSyncError(enc, err)
		return err
	}
	if err := unix.Exec(name, config.Args, config.Env); err != nil {
		err = fmt.Errorf("%w: exec %s: %v", ErrExecFailed, name, err)
		_ = writeSyncError(enc, err)
		return err
	}
	panic("unreachable")
}

// setupContainer performs the in-child isolation: private mount
// propagation, pseudo-filesystems, root swap and hostname. Everything here
// must happen before readiness is signalled; the parent's network attach
// depends on the namespaces existing, the exec depends on the new root.
func setupContainer(config *initConfig) error {
	// Changes to the mount table must not leak back to the host through
	// shared propagation.
	if err := unix.Mount("", "/", "", unix.MS_PRIVATE|unix.MS_REC, ""); err != nil {
		return fmt.Errorf("%w: making / private: %v", ErrMountFailed, err)
	}
	// pivot_root requires the new root to be a mount point
	if err := unix.Mount(config.Rootfs, config.Rootfs, "bind", unix.MS_BIND|unix.MS_REC, ""); err != nil {
		return fmt.Errorf("%w: bind-mounting rootfs %s: %v", ErrMountFailed, config.Rootfs, err)
	}
	if err := mountPseudoFilesystems(config.Rootfs); err != nil {
		return err
	}
	if err := createDeviceNodes(config.Rootfs); err != nil {
		return err
	}
	// Mark inherited descriptors close-on-exec before the root swap so no
	// handle can keep a host directory reachable from inside.
	if err := utils.CloseExecFrom(3); err != nil {
		return fmt.Errorf("%w: %v", ErrNamespaceSetup, err)
	}
	if err := pivotRoot(config.Rootfs); err != nil {
		return err
	}
	if config.Hostname != "" {
		if err := unix.Sethostname([]byte(config.Hostname)); err != nil {
			return fmt.Errorf("%w: sethostname %q: %v", ErrNamespaceSetup, config.Hostname, err)
		}
	}
	return nil
}

// The virtual filesystems userspace expects; a new mount namespace starts
// without them, and most shells and utilities malfunction when they are
// absent.
var pseudoMounts = []struct {
	source string
	target string
	fstype string
	flags  uintptr
	data   string
}{
	{"proc", "/proc", "proc", unix.MS_NOSUID | unix.MS_NOEXEC | unix.MS_NODEV, ""},
	{"sysfs", "/sys", "sysfs", unix.MS_NOSUID | unix.MS_NOEXEC | unix.MS_NODEV, ""},
	{"tmpfs", "/dev", "tmpfs", unix.MS_NOSUID | unix.MS_STRICTATIME, "mode=755"},
	{"devpts", "/dev/pts", "devpts", unix.MS_NOSUID | unix.MS_NOEXEC, "newinstance,ptmxmode=0666,mode=0620"},
}

func mountPseudoFilesystems(rootfs string) error {
	for _, m := range pseudoMounts {
		dest, err := securejoin.SecureJoin(rootfs, m.target)
		if err != nil {
			return fmt.Errorf("%w: resolving %s in rootfs: %v", ErrMountFailed, m.target, err)
		}
		if err := os.MkdirAll(dest, 0o755); err != nil {
			return fmt.Errorf("%w: creating %s: %v", ErrMountFailed, dest, err)
		}
		if err := unix.Mount(m.source, dest, m.fstype, m.flags, m.data); err != nil {
			return fmt.Errorf("%w: mounting %s on %s: %v", ErrMountFailed, m.fstype, dest, err)
		}
	}
	return nil
}

var deviceNodes = []struct {
	path  string
	major uint32
	minor uint32
}{
	{"/dev/null", 1, 3},
	{"/dev/zero", 1, 5},
	{"/dev/full", 1, 7},
	{"/dev/random", 1, 8},
	{"/dev/urandom", 1, 9},
	{"/dev/tty", 5, 0},
}

// createDeviceNodes populates the fresh /dev tmpfs with the nodes minimal
// userspace needs.
func createDeviceNodes(rootfs string) error {
	for _, d := range deviceNodes {
		dest, err := securejoin.SecureJoin(rootfs, d.path)
		if err != nil {
			return fmt.Errorf("%w: resolving %s in rootfs: %v", ErrMountFailed, d.path, err)
		}
		mode := uint32(unix.S_IFCHR | 0o666)
		if err := unix.Mknod(dest, mode, int(unix.Mkdev(d.major, d.minor))); err != nil && !os.IsExist(err) {
			return fmt.Errorf("%w: mknod %s: %v", ErrMountFailed, dest, err)
		}
	}
	ptmx, err := securejoin.SecureJoin(rootfs, "/dev/ptmx")
	if err != nil {
		return fmt.Errorf("%w: resolving /dev/ptmx: %v", ErrMountFailed, err)
	}
	if err := os.Symlink("pts/ptmx", ptmx); err != nil && !os.IsExist(err) {
		return fmt.Errorf("%w: symlink /dev/ptmx: %v", ErrMountFailed, err)
	}
	return nil
}

// pivotRoot swaps the filesystem root for rootfs, leaving no path to the
// old root reachable from inside the container.
func pivotRoot(rootfs string) error {
	const putOld = ".pivot-old"
	if err := os.MkdirAll(filepath.Join(rootfs, putOld), 0o700); err != nil {
		return fmt.Errorf("%w: preparing %s: %v", ErrMountFailed, putOld, err)
	}
	if err := unix.PivotRoot(rootfs, filepath.Join(rootfs, putOld)); err != nil {
		return fmt.Errorf("%w: pivot_root into %s: %v", ErrMountFailed, rootfs, err)
	}
	if err := unix.Chdir("/"); err != nil {
		return fmt.Errorf("%w: chdir /: %v", ErrMountFailed, err)
	}
	if err := unix.Unmount("/"+putOld, unix.MNT_DETACH); err != nil {
		return fmt.Errorf("%w: unmounting old root: %v", ErrMountFailed, err)
	}
	if err := os.Remove("/" + putOld); err != nil {
		return fmt.Errorf("%w: removing %s: %v", ErrMountFailed, putOld, err)
	}
	return nil
}

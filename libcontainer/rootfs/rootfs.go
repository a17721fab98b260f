// Package rootfs owns the persistent on-disk state of a container: one
// directory per name, populated once by an external bootstrap tool and
// reused by every later run.
package rootfs

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/mrunalp/fileutils"
	"github.com/sirupsen/logrus"
)

// BootstrapError reports a non-zero exit of the external bootstrap tool. The
// tool's output is never inspected, only its status.
type BootstrapError struct {
	Tool     string
	ExitCode int
	Err      error
}

func (e *BootstrapError) Error() string {
	return fmt.Sprintf("bootstrap tool %s failed with exit code %d", e.Tool, e.ExitCode)
}

func (e *BootstrapError) Unwrap() error { return e.Err }

type Manager struct {
	// Base is the directory holding one subdirectory per container.
	Base string

	// Bootstrap is the argv prefix of the external tool; the rootfs path is
	// appended as the final argument.
	Bootstrap []string
}

func NewManager(base string, bootstrap []string) *Manager {
	return &Manager{Base: base, Bootstrap: bootstrap}
}

// Path returns the deterministic rootfs directory for a container name.
func Path(base, name string) string {
	return filepath.Join(base, name, "rootfs")
}

func (m *Manager) Path(name string) string {
	return Path(m.Base, name)
}

// Ensure makes sure the container's rootfs exists and is populated,
// invoking the bootstrap tool synchronously when it is missing or empty. A
// non-empty rootfs is never re-bootstrapped; destroying a populated tree to
// re-run the tool would lose container state.
func (m *Manager) Ensure(name string) (string, error) {
	dir := m.Path(name)
	entries, err := os.ReadDir(dir)
	if err == nil && len(entries) > 0 {
		logrus.Debugf("rootfs %s already populated, skipping bootstrap", dir)
		return dir, nil
	}
	if err != nil && !os.IsNotExist(err) {
		return "", fmt.Errorf("inspect rootfs %s: %w", dir, err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create rootfs %s: %w", dir, err)
	}
	if err := m.bootstrap(dir); err != nil {
		return "", err
	}
	if err := seedNetworkFiles(dir); err != nil {
		return "", err
	}
	return dir, nil
}

func (m *Manager) bootstrap(dir string) error {
	if len(m.Bootstrap) == 0 {
		return &BootstrapError{Tool: "(none)", ExitCode: -1, Err: fmt.Errorf("no bootstrap tool configured")}
	}
	args := append(append([]string(nil), m.Bootstrap[1:]...), dir)
	cmd := exec.Command(m.Bootstrap[0], args...)
	out := logrus.StandardLogger().WriterLevel(logrus.DebugLevel)
	defer out.Close()
	cmd.Stdout = out
	cmd.Stderr = out

	logrus.Infof("bootstrapping rootfs %s with %s", dir, m.Bootstrap[0])
	// Blocks until the tool exits; package fetches can take minutes and
	// cancellation is the tool's own signal handling.
	if err := cmd.Run(); err != nil {
		code := -1
		if exitErr, ok := err.(*exec.ExitError); ok {
			code = exitErr.ExitCode()
		}
		return &BootstrapError{Tool: m.Bootstrap[0], ExitCode: code, Err: err}
	}
	return nil
}

// seedNetworkFiles copies the host's name resolution setup into a freshly
// bootstrapped tree so the container can resolve names out of the box.
func seedNetworkFiles(dir string) error {
	etc := filepath.Join(dir, "etc")
	if err := os.MkdirAll(etc, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", etc, err)
	}
	for _, f := range []string{"hosts", "resolv.conf"} {
		src := filepath.Join("/etc", f)
		if _, err := os.Stat(src); err != nil {
			logrus.Debugf("skipping %s: %v", src, err)
			continue
		}
		if err := fileutils.CopyFile(src, filepath.Join(etc, f)); err != nil {
			return fmt.Errorf("copy %s into rootfs: %w", src, err)
		}
	}
	return nil
}

// Delete removes a container's directory, rootfs included. Callers must not
// invoke it while the container is running.
func (m *Manager) Delete(name string) error {
	dir := filepath.Join(m.Base, name)
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("delete container directory %s: %w", dir, err)
	}
	logrus.Infof("deleted %s", dir)
	return nil
}

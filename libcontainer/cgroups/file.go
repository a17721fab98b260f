package cgroups

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// OpenFile opens a cgroup file under dir. It is a no-frills variant of the
// usual os.OpenFile that refuses to follow symlinks and double-checks the
// file really lives on a cgroup filesystem, so a crafted container name can
// not redirect limit writes elsewhere.
func OpenFile(dir, file string, flags int) (*os.File, error) {
	if dir == "" {
		return nil, fmt.Errorf("no directory specified for %s", file)
	}
	path := filepath.Join(dir, filepath.Clean("/"+file))
	flags |= unix.O_NOFOLLOW | unix.O_CLOEXEC

	fd, err := unix.Openat2(unix.AT_FDCWD, path, &unix.OpenHow{
		Flags:   uint64(flags),
		Resolve: unix.RESOLVE_NO_MAGICLINKS | unix.RESOLVE_NO_SYMLINKS,
	})
	if err != nil {
		// openat2 needs Linux 5.6+.
		if errors.Is(err, unix.ENOSYS) {
			return openFallback(path, flags, 0)
		}
		return nil, &os.PathError{Op: "openat2", Path: path, Err: err}
	}
	return os.NewFile(uintptr(fd), path), nil
}

// openFallback is a var so the openat2 path can be pinned down in tests.
var openFallback = openAndCheck

func openAndCheck(path string, flags int, mode os.FileMode) (*os.File, error) {
	f, err := os.OpenFile(path, flags, mode)
	if err != nil {
		return nil, err
	}
	var st unix.Statfs_t
	if err := unix.Fstatfs(int(f.Fd()), &st); err != nil {
		f.Close()
		return nil, &os.PathError{Op: "statfs", Path: path, Err: err}
	}
	if st.Type != unix.CGROUP_SUPER_MAGIC && st.Type != unix.CGROUP2_SUPER_MAGIC {
		f.Close()
		return nil, fmt.Errorf("%s is not on a cgroup filesystem", path)
	}
	return f, nil
}

func ReadFile(dir, file string) (string, error) {
	f, err := OpenFile(dir, file, unix.O_RDONLY)
	if err != nil {
		return "", err
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func WriteFile(dir, file, data string) error {
	f, err := OpenFile(dir, file, unix.O_WRONLY)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := f.WriteString(data); err != nil {
		return fmt.Errorf("failed to write %q to %q: %w", data, f.Name(), err)
	}
	return nil
}

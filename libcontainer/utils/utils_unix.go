package utils

import (
	"fmt"
	"os"
	"strconv"

	"golang.org/x/sys/unix"
)

func NewSockPair(name string) (parent *os.File, child *os.File, err error) {
	fds, err := unix.Socketpair(unix.AF_LOCAL, unix.SOCK_STREAM|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return nil, nil, err
	}
	return os.NewFile(uintptr(fds[1]), name+"-p"), os.NewFile(uintptr(fds[0]), name+"-c"), nil
}

// CloseExecFrom sets the close-on-exec flag on every open file descriptor
// >= minFd, so no inherited handle referring to host directories survives
// into the container command.
func CloseExecFrom(minFd int) error {
	fdDir, err := os.Open("/proc/self/fd")
	if err != nil {
		return fmt.Errorf("open /proc/self/fd: %w", err)
	}
	defer fdDir.Close()

	names, err := fdDir.Readdirnames(-1)
	if err != nil {
		return fmt.Errorf("list /proc/self/fd: %w", err)
	}
	for _, name := range names {
		fd, err := strconv.Atoi(name)
		if err != nil {
			// the fd directory holds only numeric names; skip anything else
			continue
		}
		if fd < minFd || fd == int(fdDir.Fd()) {
			continue
		}
		unix.CloseOnExec(fd)
	}
	return nil
}

package cgroups

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/opencontainers/runc/libcontainer/userns"
	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

const (
	CgroupProcesses = "cgroup.procs"

	// UnifiedMountpoint is where the cgroup v2 hierarchy lives on every
	// current distribution.
	UnifiedMountpoint = "/sys/fs/cgroup"
)

var (
	isUnifiedOnce sync.Once
	isUnified     bool
)

// IsCgroup2UnifiedMode returns whether we are running in cgroup v2 unified mode.
func IsCgroup2UnifiedMode() bool {
	isUnifiedOnce.Do(func() {
		var st unix.Statfs_t
		err := unix.Statfs(UnifiedMountpoint, &st)
		if err != nil {
			if os.IsNotExist(err) && userns.RunningInUserNS() {
				// ignore the "not found" error if running in userns
				logrus.WithError(err).Debugf("%s missing, assuming cgroup v1", UnifiedMountpoint)
				isUnified = false
				return
			}
			panic(fmt.Sprintf("cannot statfs cgroup root: %s", err))
		}
		isUnified = st.Type == unix.CGROUP2_SUPER_MAGIC
	})
	return isUnified
}

// WriteCgroupProc writes the specified pid into the cgroup's cgroup.procs file.
func WriteCgroupProc(dir string, pid int) error {
	// Normally dir should not be empty, one case is that cgroup subsystem
	// is not mounted, we will get empty dir, and we want it fail here.
	if dir == "" {
		return fmt.Errorf("no such directory for %s", CgroupProcesses)
	}

	// Dont attach any pid to the cgroup if -1 is specified as a pid
	if pid == -1 {
		return nil
	}

	file, err := OpenFile(dir, CgroupProcesses, os.O_WRONLY)
	if err != nil {
		return fmt.Errorf("failed to write %v: %w", pid, err)
	}
	defer file.Close()

	for i := 0; i < 5; i++ {
		_, err = file.WriteString(strconv.Itoa(pid))
		if err == nil {
			return nil
		}

		// EINVAL might mean that the task being added to cgroup.procs is in state
		// TASK_NEW. We should attempt to do so again.
		if errors.Is(err, unix.EINVAL) {
			time.Sleep(30 * time.Millisecond)
			continue
		}

		return fmt.Errorf("failed to write %v: %w", pid, err)
	}
	return err
}

// readProcs returns the pids currently in the group. Used to tell an
// emptied-but-racing group apart from a genuinely busy one on destroy.
func readProcs(dir string) ([]int, error) {
	content, err := ReadFile(dir, CgroupProcesses)
	if err != nil {
		return nil, err
	}
	var pids []int
	for _, line := range strings.Split(content, "\n") {
		if line == "" {
			continue
		}
		pid, err := strconv.Atoi(line)
		if err != nil {
			return nil, fmt.Errorf("unexpected pid %q in %s: %w", line, CgroupProcesses, err)
		}
		pids = append(pids, pid)
	}
	return pids, nil
}

// RemovePath removes a cgroup directory, translating the kernel's refusal
// into the package error taxonomy.
func RemovePath(dir string) error {
	err := os.Remove(dir)
	switch {
	case err == nil, os.IsNotExist(err):
		return nil
	case errors.Is(err, unix.EBUSY), errors.Is(err, unix.ENOTEMPTY):
		pids, procsErr := readProcs(dir)
		if procsErr == nil && len(pids) > 0 {
			return fmt.Errorf("%w: %s holds %v", ErrBusy, dir, pids)
		}
		return fmt.Errorf("%w: %s", ErrBusy, dir)
	default:
		return err
	}
}

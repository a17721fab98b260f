package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/guni973/ace/libcontainer"
	"github.com/guni973/ace/libcontainer/cgroups"
	"github.com/guni973/ace/libcontainer/network"
	"github.com/guni973/ace/libcontainer/rootfs"
)

// Engine failures map to fixed exit codes so scripts can tell a workload
// exit status from an engine problem without parsing logs.
const (
	codeBootstrapFailed   = 10
	codeCgroupUnavailable = 11
	codeNamespaceSetup    = 12
	codeNetworkSetup      = 13
	codeExecFailed        = 14
	codePermissionDenied  = 15
	codeFailedCleanup     = 16
	codeGeneric           = 1
)

// exitCode classifies err into the engine's exit code scheme. Cleanup
// failures take precedence when both a run error and a cleanup error are
// joined; leaked kernel state is the more actionable problem.
func exitCode(err error) int {
	var bootstrapErr *rootfs.BootstrapError
	switch {
	case err == nil:
		return 0
	case errors.Is(err, libcontainer.ErrFailedCleanup):
		return codeFailedCleanup
	case errors.As(err, &bootstrapErr):
		return codeBootstrapFailed
	case errors.Is(err, cgroups.ErrUnavailable), errors.Is(err, cgroups.ErrBusy):
		return codeCgroupUnavailable
	case errors.Is(err, network.ErrInterfaceNameCollision):
		return codeNetworkSetup
	case errors.Is(err, libcontainer.ErrExecFailed):
		return codeExecFailed
	case errors.Is(err, libcontainer.ErrMountFailed), errors.Is(err, libcontainer.ErrNamespaceSetup):
		return codeNamespaceSetup
	case errors.Is(err, libcontainer.ErrPermissionDenied):
		return codePermissionDenied
	default:
		return codeGeneric
	}
}

func fatal(err error) {
	fatalWithCode(err, codeGeneric)
}

func fatalWithCode(err error, code int) {
	// Make sure the error is written to the logger.
	logrus.Error(err)
	if !logrusToStderr() {
		fmt.Fprintln(os.Stderr, err)
	}
	os.Exit(code)
}

package main

import (
	"os"
	"runtime"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"

	"github.com/guni973/ace/libcontainer"
)

func init() {
	if len(os.Args) > 1 && os.Args[1] == "init" {
		// The init child must stay on one thread until exec: namespace
		// membership and the later pivot_root are per-thread state, and a
		// goroutine migrating off the cloned thread would escape them.
		runtime.GOMAXPROCS(1)
		runtime.LockOSThread()
	}
}

var initCommand = cli.Command{
	Name:   "init",
	Hidden: true,
	Usage:  `initialize the namespaces and launch the process (do not call it outside of ace)`,
	Action: func(context *cli.Context) error {
		if err := libcontainer.StartInitialization(); err != nil {
			// The parent gets the structured error over the sync pipe; this
			// log is for the engine's own debugging output.
			logrus.Debugf("init failed: %v", err)
			os.Exit(1)
		}
		panic("libcontainer: container init failed to exec")
	},
}

package main

import (
	"path/filepath"

	"github.com/urfave/cli"

	"github.com/guni973/ace/libcontainer/configs/validate"
	"github.com/guni973/ace/libcontainer/rootfs"
)

// stateBase resolves the directory holding per-container state under the
// global --root.
func stateBase(context *cli.Context) string {
	return filepath.Join(context.GlobalString("root"), "containers")
}

var deleteCommand = cli.Command{
	Name:  "delete",
	Usage: "delete a container's persistent rootfs",
	ArgsUsage: `--name <container-name>

The container must not be running; the engine does not track live state
across invocations and will not stop a running container for you.`,
	Flags: []cli.Flag{
		cli.StringFlag{
			Name:  "name",
			Usage: "container name",
		},
	},
	Action: func(context *cli.Context) error {
		name := context.String("name")
		if err := validate.ID(name); err != nil {
			return err
		}
		m := rootfs.NewManager(stateBase(context), nil)
		return m.Delete(name)
	},
}

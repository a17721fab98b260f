package main

import (
	"errors"

	"github.com/urfave/cli"

	"github.com/guni973/ace/libcontainer/network"
)

var networkCommand = cli.Command{
	Name:  "network",
	Usage: "manage the shared host bridge",
	Description: `Creates or deletes the bridge that networked containers attach
to. 'ace run --net' creates the bridge on demand, so this command is only
needed to pre-create it with a different address or to clean it up.`,
	Flags: []cli.Flag{
		cli.BoolFlag{
			Name:  "create-bridge",
			Usage: "create the bridge and assign it the bridge address",
		},
		cli.BoolFlag{
			Name:  "delete-bridge",
			Usage: "delete the bridge",
		},
		cli.StringFlag{
			Name:  "bridge",
			Value: "ace0",
			Usage: "bridge name",
		},
		cli.StringFlag{
			Name:  "bridge-addr",
			Value: "10.42.0.1/24",
			Usage: "bridge address in CIDR form",
		},
	},
	Action: func(context *cli.Context) error {
		name := context.String("bridge")
		switch {
		case context.Bool("create-bridge") && context.Bool("delete-bridge"):
			return errors.New("--create-bridge and --delete-bridge are mutually exclusive")
		case context.Bool("create-bridge"):
			return network.EnsureBridge(name, context.String("bridge-addr"), 0)
		case context.Bool("delete-bridge"):
			return network.DeleteBridge(name)
		default:
			return errors.New("one of --create-bridge or --delete-bridge is required")
		}
	},
}

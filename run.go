package main

import (
	"os"
	"os/signal"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"
	"golang.org/x/sys/unix"

	"github.com/guni973/ace/libcontainer"
	"github.com/guni973/ace/libcontainer/configs"
	"github.com/guni973/ace/libcontainer/specconv"
)

var runCommand = cli.Command{
	Name:  "run",
	Usage: "run a command in a new container",
	ArgsUsage: `--name <container-name> [command options]

Where "<container-name>" selects the container's rootfs under the state
root, bootstrapping it on first use. Without --exec an interactive shell is
started.`,
	Flags: []cli.Flag{
		cli.StringFlag{
			Name:  "name",
			Usage: "container name, also used as hostname and cgroup name",
		},
		cli.StringFlag{
			Name:  "exec",
			Usage: "shell command to run instead of an interactive shell",
		},
		cli.BoolFlag{
			Name:  "net",
			Usage: "attach the container to the host bridge",
		},
		cli.StringFlag{
			Name:  "bridge",
			Value: "ace0",
			Usage: "host bridge to attach to (implies --net)",
		},
		cli.StringFlag{
			Name:  "bridge-addr",
			Value: "10.42.0.1/24",
			Usage: "bridge address in CIDR form, also the container gateway",
		},
		cli.StringFlag{
			Name:  "memory",
			Usage: "memory limit (e.g. 512m)",
		},
		cli.Float64Flag{
			Name:  "cpus",
			Usage: "cpu limit in cores (e.g. 0.5)",
		},
		cli.Int64Flag{
			Name:  "pids-limit",
			Usage: "maximum number of processes, 0 for unlimited",
		},
		cli.StringSliceFlag{
			Name:  "bootstrap-cmd",
			Usage: "argv of the rootfs bootstrap tool; the rootfs path is appended",
		},
	},
	Action: func(context *cli.Context) error {
		status, err := startContainer(context)
		if err != nil {
			fatalWithCode(err, exitCode(err))
		}
		// The workload's exit status becomes ours.
		os.Exit(status)
		return nil
	},
}

func createContainer(context *cli.Context) (*libcontainer.Container, error) {
	resources, err := specconv.ParseResources(
		context.String("memory"),
		context.Float64("cpus"),
		context.Int64("pids-limit"),
	)
	if err != nil {
		return nil, err
	}

	var net *configs.Network
	if context.Bool("net") || context.IsSet("bridge") || context.IsSet("bridge-addr") {
		net = &configs.Network{
			Bridge:        context.String("bridge"),
			BridgeAddress: context.String("bridge-addr"),
		}
	}

	name := context.String("name")
	config, err := specconv.CreateConfig(&specconv.CreateOpts{
		Name:      name,
		Command:   context.String("exec"),
		Root:      context.GlobalString("root"),
		Bootstrap: context.StringSlice("bootstrap-cmd"),
		Network:   net,
		Resources: resources,
	})
	if err != nil {
		return nil, err
	}
	return libcontainer.Create(name, config)
}

type runner struct {
	container *libcontainer.Container
}

func (r *runner) run() (int, error) {
	process := &libcontainer.Process{Init: true}
	r.forwardSignals()
	return r.container.Run(process)
}

// forwardSignals relays termination signals to the container init so ^C in
// the invoking terminal reaches the workload instead of killing only the
// engine.
func (r *runner) forwardSignals() {
	sigs := make(chan os.Signal, 16)
	signal.Notify(sigs, unix.SIGTERM, unix.SIGINT, unix.SIGQUIT, unix.SIGHUP)
	go func() {
		for sig := range sigs {
			logrus.Debugf("forwarding %s to container %s", sig, r.container.ID())
			if err := r.container.Signal(sig); err != nil {
				logrus.Warnf("forwarding %s: %v", sig, err)
			}
		}
	}()
}

func startContainer(context *cli.Context) (int, error) {
	container, err := createContainer(context)
	if err != nil {
		return -1, err
	}
	// the default workload is an interactive shell, which reads EOF and
	// exits immediately when nothing is attached to stdin
	if context.String("exec") == "" && !isTerminal(os.Stdin) {
		logrus.Warnf("stdin is not a terminal; the interactive shell in %s will exit at once (use --exec for detached runs)", container.ID())
	}
	r := &runner{container: container}
	return r.run()
}

package libcontainer

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"github.com/guni973/ace/libcontainer/cgroups"
)

const (
	// initPipeEnv tells the re-execed child which fd carries the sync
	// channel.
	initPipeEnv = "_ACE_INITPIPE"

	// signalGrace is how long a terminated child gets before the kill
	// escalation.
	signalGrace = 10 * time.Second
)

type filePair struct {
	parent *os.File
	child  *os.File
}

// initConfig is everything the container init needs, shipped over the sync
// pipe right after clone.
type initConfig struct {
	Name     string   `json:"name"`
	Rootfs   string   `json:"rootfs"`
	Hostname string   `json:"hostname"`
	Args     []string `json:"args"`
	Env      []string `json:"env"`
}

type parentProcess interface {
	pid() int
	start() error
	ready() error
	run() error
	execWait() error
	wait() (*os.ProcessState, error)
	terminate() error
	signal(sig os.Signal) error
}

type initProcess struct {
	cmd             *exec.Cmd
	messageSockPair filePair
	manager         cgroups.Manager
	config          *initConfig

	enc *json.Encoder
	dec *json.Decoder

	state *os.ProcessState
}

func (p *initProcess) pid() int {
	return p.cmd.Process.Pid
}

// start clones the child into its new namespaces, places it into the
// container cgroup before it performs any significant work, and hands it
// the init configuration.
func (p *initProcess) start() error {
	err := p.cmd.Start()
	_ = p.messageSockPair.child.Close()
	if err != nil {
		return fmt.Errorf("%w: unable to start init: %v", ErrNamespaceSetup, err)
	}
	p.enc = json.NewEncoder(p.messageSockPair.parent)
	p.dec = json.NewDecoder(p.messageSockPair.parent)

	// Apply control group settings to the pid before releasing the config;
	// the child blocks reading it, so the limits are in place before any
	// container-controlled code runs.
	if err := p.manager.Apply(p.pid()); err != nil {
		return fmt.Errorf("unable to apply cgroup configuration: %w", err)
	}
	if err := p.enc.Encode(p.config); err != nil {
		return fmt.Errorf("can't send init config to pipe: %w", err)
	}
	return nil
}

// ready blocks until the child reports namespace and mount setup complete,
// or relays the child's failure.
func (p *initProcess) ready() error {
	return readSync(p.dec, procReady)
}

// run releases the child to exec the container command.
func (p *initProcess) run() error {
	return writeSync(p.enc, procRun)
}

// execWait drains the sync channel after procRun. A successful exec closes
// the child's end via close-on-exec, so EOF here means the workload is
// running; a procError means the exec itself failed.
func (p *initProcess) execWait() error {
	var msg syncMessage
	if err := p.dec.Decode(&msg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("reading final sync: %w", err)
	}
	if msg.Type == procError {
		return syncError(msg)
	}
	return fmt.Errorf("unexpected sync message %q after run", msg.Type)
}

// wait blocks until the child exits and collects its state.
func (p *initProcess) wait() (*os.ProcessState, error) {
	if p.state != nil {
		return p.state, nil
	}
	state, err := p.cmd.Process.Wait()
	if err != nil {
		return nil, fmt.Errorf("waiting for init: %w", err)
	}
	p.state = state
	return state, nil
}

// terminate reaps a child that may still be running: a non-blocking check,
// SIGTERM, a grace period, then SIGKILL. Called on the teardown path; the
// cgroup cannot be removed and the veth not safely deleted until the child
// is gone.
func (p *initProcess) terminate() error {
	if p.cmd.Process == nil || p.state != nil {
		return nil
	}
	done := make(chan struct{})
	go func() {
		state, err := p.cmd.Process.Wait()
		if err == nil {
			p.state = state
		}
		close(done)
	}()

	_ = p.cmd.Process.Signal(unix.SIGTERM)
	select {
	case <-done:
	case <-time.After(signalGrace):
		logrus.Warnf("container init %d did not exit within %s, killing", p.pid(), signalGrace)
		_ = p.cmd.Process.Kill()
		<-done
	}
	return nil
}

func (p *initProcess) signal(sig os.Signal) error {
	if p.cmd.Process == nil {
		return fmt.Errorf("init process not started")
	}
	return p.cmd.Process.Signal(sig)
}

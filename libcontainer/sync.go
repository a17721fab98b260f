package libcontainer

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// The readiness handshake between the engine and the container init is a
// stream of JSON messages over a socketpair. The child reports procReady
// once namespaces, mounts and hostname are in place (or procError with the
// reason), the parent answers procRun after the network half that needs the
// child's namespaces is done. A successful exec closes the child's end via
// close-on-exec, so EOF after procRun means the workload is running.
type syncType string

const (
	procError syncType = "procError"
	procReady syncType = "procReady"
	procRun   syncType = "procRun"
)

type syncMessage struct {
	Type    syncType `json:"type"`
	Kind    string   `json:"kind,omitempty"`
	Message string   `json:"message,omitempty"`
}

func writeSync(enc *json.Encoder, t syncType) error {
	if err := enc.Encode(syncMessage{Type: t}); err != nil {
		return fmt.Errorf("writing sync %q: %w", t, err)
	}
	return nil
}

// writeSyncError ships a child-side failure to the parent, keeping enough
// type information for the parent to rebuild the right error class.
func writeSyncError(enc *json.Encoder, setupErr error) error {
	kind, base := "namespace", ErrNamespaceSetup
	switch {
	case errors.Is(setupErr, ErrMountFailed):
		kind, base = "mount", ErrMountFailed
	case errors.Is(setupErr, ErrExecFailed):
		kind, base = "exec", ErrExecFailed
	}
	msg := strings.TrimPrefix(setupErr.Error(), base.Error()+": ")
	return enc.Encode(syncMessage{Type: procError, Kind: kind, Message: msg})
}

// readSync blocks until the expected message arrives. A received procError
// is rebuilt into the matching sentinel error; EOF means the peer died
// before reporting.
func readSync(dec *json.Decoder, expected syncType) error {
	var msg syncMessage
	if err := dec.Decode(&msg); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: sync channel closed before %q", ErrNamespaceSetup, expected)
		}
		return fmt.Errorf("reading sync %q: %w", expected, err)
	}
	if msg.Type == procError {
		return syncError(msg)
	}
	if msg.Type != expected {
		return fmt.Errorf("unexpected sync message %q, want %q", msg.Type, expected)
	}
	return nil
}

func syncError(msg syncMessage) error {
	base := ErrNamespaceSetup
	switch msg.Kind {
	case "mount":
		base = ErrMountFailed
	case "exec":
		base = ErrExecFailed
	}
	if msg.Message == "" {
		return base
	}
	return fmt.Errorf("%w: %s", base, msg.Message)
}

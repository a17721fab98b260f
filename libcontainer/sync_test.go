package libcontainer

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/guni973/ace/libcontainer/utils"
)

func syncPair(t *testing.T) (parentEnc *json.Encoder, parentDec *json.Decoder, childEnc *json.Encoder, childDec *json.Decoder) {
	t.Helper()
	parent, child, err := utils.NewSockPair("sync-test")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		parent.Close()
		child.Close()
	})
	return json.NewEncoder(parent), json.NewDecoder(parent), json.NewEncoder(child), json.NewDecoder(child)
}

func TestSyncReady(t *testing.T) {
	_, parentDec, childEnc, _ := syncPair(t)
	if err := writeSync(childEnc, procReady); err != nil {
		t.Fatal(err)
	}
	if err := readSync(parentDec, procReady); err != nil {
		t.Fatalf("expected clean ready, got %v", err)
	}
}

func TestSyncRun(t *testing.T) {
	parentEnc, _, _, childDec := syncPair(t)
	if err := writeSync(parentEnc, procRun); err != nil {
		t.Fatal(err)
	}
	if err := readSync(childDec, procRun); err != nil {
		t.Fatalf("expected clean run, got %v", err)
	}
}

func TestSyncErrorRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		in   error
		want error
	}{
		{
			name: "mount failure",
			in:   fmt.Errorf("%w: mounting proc: permission denied", ErrMountFailed),
			want: ErrMountFailed,
		},
		{
			name: "exec failure",
			in:   fmt.Errorf("%w: /bin/sh: no such file", ErrExecFailed),
			want: ErrExecFailed,
		},
		{
			name: "plain failure",
			in:   errors.New("sethostname: operation not permitted"),
			want: ErrNamespaceSetup,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, parentDec, childEnc, _ := syncPair(t)
			if err := writeSyncError(childEnc, tt.in); err != nil {
				t.Fatal(err)
			}
			err := readSync(parentDec, procReady)
			if err == nil {
				t.Fatal("expected the child error to surface")
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("error %v does not unwrap to %v", err, tt.want)
			}
		})
	}
}

func TestSyncEOFBeforeReady(t *testing.T) {
	parent, child, err := utils.NewSockPair("sync-test")
	if err != nil {
		t.Fatal(err)
	}
	defer parent.Close()
	child.Close()

	err = readSync(json.NewDecoder(parent), procReady)
	if err == nil {
		t.Fatal("expected an error when the child dies before reporting")
	}
	if !errors.Is(err, ErrNamespaceSetup) {
		t.Errorf("EOF before ready should be a namespace setup failure, got %v", err)
	}
}

package utils

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"testing"

	"golang.org/x/sys/unix"
)

func TestNewSockPair(t *testing.T) {
	parent, child, err := NewSockPair("test")
	if err != nil {
		t.Fatal(err)
	}
	defer parent.Close()
	defer child.Close()

	// Check unix.SOCK_STREAM works
	// parent -> child
	parentMessage := "Test message from parent"
	if _, err := parent.Write([]byte(parentMessage)); err != nil {
		t.Fatal(err)
	}
	buf := make([]byte, 1024)
	n, err := child.Read(buf)
	if err != nil {
		t.Fatal(err)
	}
	childMessage := string(buf[:n])
	if parentMessage != childMessage {
		t.Errorf("Got: %s, but expected: %s", childMessage, parentMessage)
	}
	// child -> parent
	childMessage = "Test message from child"
	if _, err := child.Write([]byte(childMessage)); err != nil {
		t.Fatal(err)
	}
	buf = make([]byte, 1024)
	n, err = parent.Read(buf)
	if err != nil {
		t.Fatal(err)
	}
	parentMessage = string(buf[:n])
	if parentMessage != childMessage {
		t.Errorf("Got: %s, but expected: %s", parentMessage, childMessage)
	}

	// Check unix.SOCK_CLOEXEC works
	var out bytes.Buffer
	cmd := exec.Command("/bin/sh", "-c", "ls -l /proc/self/fd")
	cmd.Stdout = &out
	if err = cmd.Run(); err != nil {
		t.Fatal(err)
	}
	if bytes.Contains(out.Bytes(), []byte(fmt.Sprintf(" %d ->", child.Fd()))) || bytes.Contains(out.Bytes(), []byte(fmt.Sprintf(" %d ->", parent.Fd()))) {
		t.Error("Socket file descriptor was not closed by exec")
	}
}

func TestCloseExecFrom(t *testing.T) {
	// dup(2) clears close-on-exec, so this fd would leak across exec
	fd, err := unix.Dup(int(os.Stdout.Fd()))
	if err != nil {
		t.Fatal(err)
	}
	defer unix.Close(fd)

	if err := CloseExecFrom(3); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	cmd := exec.Command("/bin/sh", "-c", "ls -l /proc/self/fd")
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		t.Fatal(err)
	}
	if bytes.Contains(out.Bytes(), []byte(fmt.Sprintf(" %d ->", fd))) {
		t.Errorf("fd %d leaked across exec:\n%s", fd, out.String())
	}
}

package libcontainer

import (
	"io"
	"os"
)

// Process specifies the stdio wiring of the container's init command; the
// command itself comes from the container Config. Nil streams fall back to
// the engine's own stdio, connecting an interactive shell to the invoking
// terminal.
type Process struct {
	Init       bool
	Stdin      io.Reader
	Stdout     io.Writer
	Stderr     io.Writer
	ExtraFiles []*os.File
}

package main

import (
	"os"

	"github.com/containerd/console"
)

// isTerminal reports whether f is attached to a terminal. The engine passes
// its stdio through to the container unchanged, so this only affects
// logging; a detached run behaves identically.
func isTerminal(f *os.File) bool {
	_, err := console.ConsoleFromFile(f)
	return err == nil
}

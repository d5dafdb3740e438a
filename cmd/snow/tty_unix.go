//go:build linux

package main

import (
	"os"

	"golang.org/x/sys/unix"
)

// isTerminal reports whether f is connected to a terminal, the same sort
// of build-tagged syscall probe the teacher uses to special-case real
// files (see fileid_otherunix.go). Used to warn before writing extracted
// binary payload straight to an interactive terminal.
func isTerminal(f *os.File) bool {
	_, err := unix.IoctlGetTermios(int(f.Fd()), unix.TCGETS)
	return err == nil
}

//go:build !windows

package util

import (
	"os"
	"syscall"
)

// ShutdownSignals returns the signals that interrupt a recording.
func ShutdownSignals() []os.Signal {
	return []os.Signal{syscall.SIGINT, syscall.SIGTERM}
}

// GracefulSignal asks a process to finish its output and exit.
func GracefulSignal(p *os.Process) error {
	return p.Signal(syscall.SIGINT)
}

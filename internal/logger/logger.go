// Package logger defines the injectable logging surface used across
// the engine's subsystems.
package logger

import (
	"fmt"
	"log"
	"os"
)

// Logger receives informational and error messages. The engine's
// packages do not log through it themselves; cmd/flashstore-demo uses
// it for progress and error output.
type Logger interface {
	Infof(format string, args ...any)
	Errorf(format string, args ...any)
}

// Default writes through the standard library's log package to
// stderr.
type Default struct {
	l *log.Logger
}

// NewDefault returns a Logger writing to os.Stderr.
func NewDefault() *Default {
	return &Default{l: log.New(os.Stderr, "", log.LstdFlags)}
}

func (d *Default) Infof(format string, args ...any) {
	d.l.Output(2, fmt.Sprintf("INFO: "+format, args...))
}

func (d *Default) Errorf(format string, args ...any) {
	d.l.Output(2, fmt.Sprintf("ERROR: "+format, args...))
}

// Noop discards everything, for tests that don't care about log output.
type Noop struct{}

func (Noop) Infof(string, ...any)  {}
func (Noop) Errorf(string, ...any) {}

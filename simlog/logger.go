// Package simlog centralizes the golog.Logger construction used across
// the simulator: every component takes a constructor-supplied
// golog.Logger, never a package-global.
package simlog

import (
	"testing"

	"github.com/edaniels/golog"
	"go.uber.org/zap"
)

// New returns a development logger suitable for CLI use.
func New(name string) golog.Logger {
	return golog.NewDevelopmentLogger(name)
}

// Quiet returns a fatal-level logger for runs that should stay silent,
// such as benchmarks or bulk scenario sweeps.
func Quiet() golog.Logger {
	logger, err := zap.Config{
		Level:             zap.NewAtomicLevelAt(zap.FatalLevel),
		Encoding:          "console",
		DisableStacktrace: true,
		OutputPaths:       []string{"stderr"},
	}.Build()
	if err != nil {
		return golog.NewLogger("quiet")
	}
	return logger.Sugar()
}

// Test returns a logger that writes through t, for use in tests that want
// solver/scheduler diagnostics on failure.
func Test(t *testing.T) golog.Logger {
	return golog.NewTestLogger(t)
}

// Package cmd wraps subprocess execution behind an interface so that every
// tmux invocation can be intercepted in tests.
package cmd

import (
	"os/exec"

	"slotmux/log"
)

// Executor runs external commands. All tmux interactions go through this
// interface; tests substitute a mock from cmd/cmd_test.
type Executor interface {
	// Run executes the command and waits for it to complete.
	Run(cmd *exec.Cmd) error
	// Output executes the command and returns its stdout.
	Output(cmd *exec.Cmd) ([]byte, error)
}

type realExecutor struct{}

// MakeExecutor returns an Executor backed by os/exec.
func MakeExecutor() Executor {
	return realExecutor{}
}

func (e realExecutor) Run(cmd *exec.Cmd) error {
	done := log.GetProfiler().StartCall(verbOf(cmd))
	err := cmd.Run()
	done(err != nil)
	return err
}

func (e realExecutor) Output(cmd *exec.Cmd) ([]byte, error) {
	done := log.GetProfiler().StartCall(verbOf(cmd))
	out, err := cmd.Output()
	done(err != nil)
	return out, err
}

// verbOf extracts the subcommand (e.g. "new-window") for profiling.
func verbOf(cmd *exec.Cmd) string {
	if len(cmd.Args) > 1 {
		return cmd.Args[1]
	}
	if len(cmd.Args) == 1 {
		return cmd.Args[0]
	}
	return cmd.Path
}

// Package cmd_test provides a mock Executor for tests.
package cmd_test

import "os/exec"

// MockCmdExec implements cmd.Executor with injectable behavior.
type MockCmdExec struct {
	RunFunc    func(cmd *exec.Cmd) error
	OutputFunc func(cmd *exec.Cmd) ([]byte, error)
}

func (m MockCmdExec) Run(cmd *exec.Cmd) error {
	return m.RunFunc(cmd)
}

func (m MockCmdExec) Output(cmd *exec.Cmd) ([]byte, error) {
	return m.OutputFunc(cmd)
}

package publish

import (
	"bytes"
	"context"
	"os/exec"
)

// Result is the captured output of an external command. It is filled in
// even when the command fails.
type Result struct {
	Stdout string
	Stderr string
}

// Runner executes external commands. Tests substitute a recording fake.
type Runner interface {
	Run(ctx context.Context, dir, name string, args ...string) (Result, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

// Run executes name in dir and captures stdout and stderr separately.
func (ExecRunner) Run(ctx context.Context, dir, name string, args ...string) (Result, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return Result{Stdout: stdout.String(), Stderr: stderr.String()}, err
}

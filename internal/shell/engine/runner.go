package engine

import (
	"context"
	"os"
	"os/exec"
)

// Runner executes an external command and returns its combined output.
type Runner interface {
	Run(ctx context.Context, env []string, name string, args ...string) (string, error)
}

// ExecRunner runs commands with os/exec in Dir. env is appended to the
// current process environment.
type ExecRunner struct {
	Dir string
}

// Run implements Runner.
func (r ExecRunner) Run(ctx context.Context, env []string, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = r.Dir
	cmd.Env = append(os.Environ(), env...)
	out, err := cmd.CombinedOutput()
	return string(out), err
}

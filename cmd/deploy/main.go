// Command deploy brings a compose stack up in dependency order and verifies
// it is healthy.
//
// Usage:
//
//	deploy [--config file] [--method local|production] [--no-build] [--force-env] [--skip-checks]
//	deploy status [--method m]
//	deploy reset [--method m] [--volumes]
//	deploy cloud-info [--write] [--force]
//	deploy version
//
// Exit codes:
//
//	0   success
//	1   a stage failed, or status found the stack unhealthy
//	2   configuration or usage error
//	3   missing prerequisite
//	130 interrupted
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
)

// Version information (set by build)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

// =============================================================================
// Exit Codes
// =============================================================================

const (
	ExitSuccess             = 0
	ExitFailure             = 1
	ExitConfigError         = 2
	ExitMissingPrerequisite = 3
	ExitInterrupted         = 130
)

// exitError carries an exit code for a failure that has already been reported.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := &app{
		stdout:     os.Stdout,
		stderr:     os.Stderr,
		lookPath:   exec.LookPath,
		newDrivers: newDockerDrivers,
	}
	return a.run(ctx, os.Args)
}

// run executes args and maps the outcome to an exit code.
func (a *app) run(ctx context.Context, args []string) int {
	err := a.command().Run(ctx, args)
	if err == nil {
		return ExitSuccess
	}

	var exitErr *exitError
	if errors.As(err, &exitErr) {
		return exitErr.code
	}
	// Flag parsing and unknown commands
	fmt.Fprintf(a.stderr, "error: %v\n", err)
	return ExitConfigError
}

package orchestrator

import (
	"fmt"
	"io"

	"github.com/artpar/stackup/internal/core/domain"
)

// Reporter receives operator-facing progress. It is separate from logging.
type Reporter interface {
	Stage(stage domain.Stage)
	Step(format string, args ...any)
}

type nopReporter struct{}

func (nopReporter) Stage(domain.Stage)   {}
func (nopReporter) Step(string, ...any) {}

// TextReporter writes progress as plain lines.
type TextReporter struct {
	W io.Writer
}

// Stage implements Reporter.
func (r TextReporter) Stage(stage domain.Stage) {
	fmt.Fprintf(r.W, "==> %s\n", stage)
}

// Step implements Reporter.
func (r TextReporter) Step(format string, args ...any) {
	fmt.Fprintf(r.W, "    "+format+"\n", args...)
}

package domain

import "time"

// Result is the terminal outcome of one deployment attempt.
type Result struct {
	RunID      string
	Method     Method
	Success    bool
	Stage      Stage        // failing stage, or the last stage reached on success
	Err        *DeployError // nil on success
	EnvWritten []string     // env files created during this attempt
	Started    []string     // services whose start call succeeded, in order
	Endpoints  []Endpoint   // resolved http probe URLs, set on success
	StartedAt  time.Time
	FinishedAt time.Time
}

// Endpoint is a service URL an operator can open.
type Endpoint struct {
	Service string
	URL     string
}

// Duration returns how long the attempt took.
func (r Result) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Kind returns the taxonomy name of the failure, or "" on success.
func (r Result) Kind() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Kind()
}

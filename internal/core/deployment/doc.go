// Package deployment provides pure functions for deployment planning.
//
// This package contains the functional core logic that turns a configured
// profile and a parsed compose file into a start plan. All functions are pure
// (no I/O, no side effects).
//
// # Functions
//
//   - Ordering: Sort services by dependencies (TopologicalSort, Dependents)
//   - Variables: Substitute ${VAR:-default} placeholders (SubstituteVariables, ResolveProbe)
//   - Plan: Merge configured and compose dependencies into a start order (BuildPlan)
//
// # Usage
//
// The imperative shell (internal/shell/orchestrator) builds a plan during
// prerequisite checks, then starts services in plan order.
//
//	plan, err := deployment.BuildPlan(profile, spec)
//	for _, svc := range plan.Services {
//	    probe := deployment.ResolveProbe(svc.Health, env)
//	}
package deployment

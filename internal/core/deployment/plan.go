package deployment

import (
	"errors"
	"fmt"
	"sort"

	"github.com/artpar/stackup/internal/core/compose"
	"github.com/artpar/stackup/internal/core/domain"
)

// =============================================================================
// Start Plan
// =============================================================================

// Plan is the start order for one deployment, derived from the profile and
// the compose file it points at.
type Plan struct {
	// Services in start order, with dependencies from both sources merged.
	Services []domain.ServiceDescriptor
	// Built lists services the compose file builds from source.
	Built []string
	// Pulled lists services the compose file runs from a prebuilt image.
	Pulled []string
}

// Names returns the service names in start order.
func (p Plan) Names() []string {
	return domain.ServiceNames(p.Services)
}

// BuildPlan merges the configured services with the dependencies declared in
// the compose file and orders them for start.
//
// Every configured service must exist in the compose file, and every compose
// dependency of a configured service must itself be configured, since it is
// started and health checked on its own. Violations are configuration errors.
func BuildPlan(profile domain.Profile, spec *compose.ParsedSpec) (Plan, error) {
	if spec == nil {
		return Plan{}, domain.NewConfigurationError("compose file has no services")
	}

	var plan Plan
	merged := make([]domain.ServiceDescriptor, 0, len(profile.Services))
	for _, svc := range profile.Services {
		def, ok := spec.Service(svc.Name)
		if !ok {
			return Plan{}, domain.NewConfigurationError(fmt.Sprintf(
				"service %s is not defined in %s", svc.Name, profile.ComposeFile))
		}

		deps := make(map[string]bool, len(svc.DependsOn)+len(def.DependsOn))
		for _, dep := range svc.DependsOn {
			deps[dep] = true
		}
		for _, dep := range def.DependsOn {
			if _, configured := profile.Service(dep); !configured {
				return Plan{}, domain.NewConfigurationError(fmt.Sprintf(
					"service %s depends on %s in %s, but %s has no health probe configured",
					svc.Name, dep, profile.ComposeFile, dep))
			}
			deps[dep] = true
		}

		out := svc
		out.DependsOn = make([]string, 0, len(deps))
		for dep := range deps {
			out.DependsOn = append(out.DependsOn, dep)
		}
		sort.Strings(out.DependsOn)
		merged = append(merged, out)

		if def.NeedsBuild() {
			plan.Built = append(plan.Built, svc.Name)
		}
		if def.Image != "" {
			plan.Pulled = append(plan.Pulled, svc.Name)
		}
	}

	ordered, err := TopologicalSort(merged)
	if err != nil {
		if errors.Is(err, ErrDependencyCycle) {
			return Plan{}, domain.NewConfigurationError(err.Error())
		}
		return Plan{}, err
	}
	plan.Services = ordered
	return plan, nil
}

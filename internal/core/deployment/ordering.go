package deployment

import (
	"errors"
	"fmt"
	"strings"

	"github.com/artpar/stackup/internal/core/domain"
)

// ErrDependencyCycle is returned when services cannot be ordered.
var ErrDependencyCycle = errors.New("dependency cycle between services")

// =============================================================================
// Service Ordering Functions
// =============================================================================

// TopologicalSort orders services so that every service comes after the
// services it depends on, using Kahn's algorithm.
//
// Ties are broken by input order, so the result is deterministic:
//
//	// Services: frontend → backend → redis
//	services := []domain.ServiceDescriptor{
//	    {Name: "frontend", DependsOn: []string{"backend"}},
//	    {Name: "backend", DependsOn: []string{"redis"}},
//	    {Name: "redis"},
//	}
//	sorted, _ := TopologicalSort(services)
//	// Result: [redis, backend, frontend]
//
// Dependencies on names that are not in services are ignored. A cycle yields
// ErrDependencyCycle naming the services involved.
func TopologicalSort(services []domain.ServiceDescriptor) ([]domain.ServiceDescriptor, error) {
	if len(services) == 0 {
		return services, nil
	}

	index := make(map[string]int, len(services))
	for i, svc := range services {
		index[svc.Name] = i
	}

	inDegree := make([]int, len(services))
	dependents := make([][]int, len(services))
	for i, svc := range services {
		for _, dep := range svc.DependsOn {
			j, ok := index[dep]
			if !ok {
				continue
			}
			inDegree[i]++
			dependents[j] = append(dependents[j], i)
		}
	}

	// Ready set kept in input order
	ready := make([]bool, len(services))
	for i := range services {
		ready[i] = inDegree[i] == 0
	}

	result := make([]domain.ServiceDescriptor, 0, len(services))
	done := make([]bool, len(services))
	for len(result) < len(services) {
		next := -1
		for i := range services {
			if ready[i] && !done[i] {
				next = i
				break
			}
		}
		if next < 0 {
			break
		}

		done[next] = true
		result = append(result, services[next])
		for _, d := range dependents[next] {
			inDegree[d]--
			if inDegree[d] == 0 {
				ready[d] = true
			}
		}
	}

	if len(result) < len(services) {
		var stuck []string
		for i, svc := range services {
			if !done[i] {
				stuck = append(stuck, svc.Name)
			}
		}
		return nil, fmt.Errorf("%w: %s", ErrDependencyCycle, strings.Join(stuck, ", "))
	}
	return result, nil
}

// Dependents returns the names of every service that transitively depends on
// name, in the order they appear in services.
func Dependents(services []domain.ServiceDescriptor, name string) []string {
	affected := map[string]bool{name: true}
	changed := true
	for changed {
		changed = false
		for _, svc := range services {
			if affected[svc.Name] {
				continue
			}
			for _, dep := range svc.DependsOn {
				if affected[dep] {
					affected[svc.Name] = true
					changed = true
					break
				}
			}
		}
	}

	var out []string
	for _, svc := range services {
		if svc.Name != name && affected[svc.Name] {
			out = append(out, svc.Name)
		}
	}
	return out
}

package deployment

import (
	"testing"

	"github.com/artpar/stackup/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// TopologicalSort Tests
// =============================================================================

func svc(name string, deps ...string) domain.ServiceDescriptor {
	return domain.ServiceDescriptor{Name: name, DependsOn: deps}
}

func TestTopologicalSort_Empty(t *testing.T) {
	result, err := TopologicalSort(nil)
	require.NoError(t, err)
	assert.Empty(t, result)
}

func TestTopologicalSort_NoDependencies_KeepsInputOrder(t *testing.T) {
	result, err := TopologicalSort([]domain.ServiceDescriptor{svc("web"), svc("api"), svc("db")})
	require.NoError(t, err)
	assert.Equal(t, []string{"web", "api", "db"}, domain.ServiceNames(result))
}

func TestTopologicalSort_Stack(t *testing.T) {
	services := []domain.ServiceDescriptor{
		svc("frontend", "backend"),
		svc("backend", "redis"),
		svc("redis"),
	}
	result, err := TopologicalSort(services)
	require.NoError(t, err)
	assert.Equal(t, []string{"redis", "backend", "frontend"}, domain.ServiceNames(result))
}

func TestTopologicalSort_DiamondDependencies(t *testing.T) {
	//       web
	//      /   \
	//    api   cache
	//      \   /
	//       db
	services := []domain.ServiceDescriptor{
		svc("web", "api", "cache"),
		svc("api", "db"),
		svc("cache", "db"),
		svc("db"),
	}
	result, err := TopologicalSort(services)
	require.NoError(t, err)
	assert.Equal(t, []string{"db", "api", "cache", "web"}, domain.ServiceNames(result))
}

func TestTopologicalSort_MultipleRoots(t *testing.T) {
	services := []domain.ServiceDescriptor{
		svc("web", "api"),
		svc("api"),
		svc("worker", "db"),
		svc("db"),
	}
	result, err := TopologicalSort(services)
	require.NoError(t, err)
	assert.Equal(t, []string{"api", "web", "db", "worker"}, domain.ServiceNames(result))
}

func TestTopologicalSort_DeepChain(t *testing.T) {
	services := []domain.ServiceDescriptor{
		svc("a", "b"), svc("b", "c"), svc("c", "d"), svc("d", "e"), svc("e"),
	}
	result, err := TopologicalSort(services)
	require.NoError(t, err)
	assert.Equal(t, []string{"e", "d", "c", "b", "a"}, domain.ServiceNames(result))
}

func TestTopologicalSort_Cycle(t *testing.T) {
	services := []domain.ServiceDescriptor{svc("a", "b"), svc("b", "a"), svc("c")}
	_, err := TopologicalSort(services)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDependencyCycle)
	assert.Contains(t, err.Error(), "a, b")
	assert.NotContains(t, err.Error(), ", c")
}

func TestTopologicalSort_MissingDependencyIgnored(t *testing.T) {
	result, err := TopologicalSort([]domain.ServiceDescriptor{svc("web", "api")})
	require.NoError(t, err)
	assert.Equal(t, []string{"web"}, domain.ServiceNames(result))
}

func TestTopologicalSort_PreservesServiceData(t *testing.T) {
	services := []domain.ServiceDescriptor{
		{Name: "backend", DependsOn: []string{"redis"}, Health: domain.HealthProbe{Type: domain.ProbeHTTP, URL: "http://localhost:8000"}},
		{Name: "redis", Health: domain.HealthProbe{Type: domain.ProbeCommand, Command: []string{"redis-cli", "ping"}}},
	}
	result, err := TopologicalSort(services)
	require.NoError(t, err)
	require.Len(t, result, 2)
	assert.Equal(t, services[1], result[0])
	assert.Equal(t, services[0], result[1])
}

// =============================================================================
// Dependents Tests
// =============================================================================

func TestDependents(t *testing.T) {
	services := []domain.ServiceDescriptor{
		svc("redis"),
		svc("backend", "redis"),
		svc("frontend", "backend"),
		svc("docs"),
	}

	assert.Equal(t, []string{"backend", "frontend"}, Dependents(services, "redis"))
	assert.Equal(t, []string{"frontend"}, Dependents(services, "backend"))
	assert.Empty(t, Dependents(services, "frontend"))
	assert.Empty(t, Dependents(services, "docs"))
}

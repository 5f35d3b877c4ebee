package orchestrator

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/artpar/stackup/internal/core/domain"
	"github.com/artpar/stackup/internal/shell/credentials"
	"github.com/artpar/stackup/internal/shell/engine"
)

// =============================================================================
// Fake Driver
// =============================================================================

// fakeDriver records every engine call.
type fakeDriver struct {
	mu     sync.Mutex
	calls  []string
	probes map[string][]domain.HealthProbe

	pingErr   error
	buildOut  string
	buildErr  error
	startErr  map[string]error
	health    func(svc domain.ServiceDescriptor) error
	states    []engine.ContainerState
	downCalls []bool
	env       map[string]string // last SetEnv value
}

func newFakeDriver() *fakeDriver {
	return &fakeDriver{
		probes:   map[string][]domain.HealthProbe{},
		startErr: map[string]error{},
		health:   func(domain.ServiceDescriptor) error { return nil },
	}
}

func (f *fakeDriver) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeDriver) Ping(context.Context) error {
	f.record("ping")
	return f.pingErr
}

func (f *fakeDriver) Build(context.Context) (string, error) {
	f.record("build")
	return f.buildOut, f.buildErr
}

func (f *fakeDriver) Start(_ context.Context, service string) error {
	f.record("start " + service)
	return f.startErr[service]
}

func (f *fakeDriver) HealthCheck(_ context.Context, svc domain.ServiceDescriptor) error {
	f.mu.Lock()
	f.calls = append(f.calls, "health "+svc.Name)
	f.probes[svc.Name] = append(f.probes[svc.Name], svc.Health)
	health := f.health
	f.mu.Unlock()
	return health(svc)
}

func (f *fakeDriver) Down(_ context.Context, removeVolumes bool) error {
	f.record("down")
	f.mu.Lock()
	f.downCalls = append(f.downCalls, removeVolumes)
	f.mu.Unlock()
	return nil
}

func (f *fakeDriver) PS(context.Context) ([]engine.ContainerState, error) {
	f.record("ps")
	return f.states, nil
}

func (f *fakeDriver) SetEnv(env map[string]string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.env = env
}

// started returns the services Start was called for, in order.
func (f *fakeDriver) started() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.calls {
		if len(c) > 6 && c[:6] == "start " {
			out = append(out, c[6:])
		}
	}
	return out
}

func (f *fakeDriver) called(call string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == call {
			n++
		}
	}
	return n
}

func (f *fakeDriver) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// unhealthy makes the named services fail every probe.
func unhealthy(names ...string) func(domain.ServiceDescriptor) error {
	return func(svc domain.ServiceDescriptor) error {
		for _, n := range names {
			if svc.Name == n {
				return engine.NewEngineError("probe", n, "connection refused", "", engine.ErrProbeFailed)
			}
		}
		return nil
	}
}

// =============================================================================
// Workspace Fixture
// =============================================================================

const composeFile = `
services:
  redis:
    image: redis:7-alpine
  backend:
    build: ./backend
    depends_on:
      redis:
        condition: service_healthy
  frontend:
    build: ./frontend
    depends_on:
      - backend
`

const composeProdFile = `
services:
  redis:
    image: redis:7-alpine
  backend:
    image: ghcr.io/acme/backend:latest
    depends_on:
      - redis
  frontend:
    image: ghcr.io/acme/frontend:latest
    depends_on:
      - backend
`

const backendTemplate = "SUPABASE_URL=\nSUPABASE_ANON_KEY=\nSUPABASE_SERVICE_ROLE_KEY=\nREDIS_HOST=redis\nREDIS_PORT=6379\n"
const frontendTemplate = "NEXT_PUBLIC_BACKEND_URL=http://localhost:8000/api\n"

var allCredentials = map[string]string{
	"SUPABASE_URL":              "https://x.supabase.co",
	"SUPABASE_ANON_KEY":         "anon",
	"SUPABASE_SERVICE_ROLE_KEY": "service-role",
}

type fixture struct {
	root    string
	driver  *fakeDriver
	env     map[string]string // process environment seen by the resolver
	tools   map[string]bool
	factory int               // driver factory calls
	gotEnv  map[string]string // env passed to the driver factory
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	root := t.TempDir()
	write := func(rel, content string) {
		path := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	write("docker-compose.yaml", composeFile)
	write("docker-compose.prod.yaml", composeProdFile)
	write("backend/.env.example", backendTemplate)
	write("frontend/.env.example", frontendTemplate)

	env := map[string]string{}
	for k, v := range allCredentials {
		env[k] = v
	}
	return &fixture{
		root:   root,
		driver: newFakeDriver(),
		env:    env,
		tools:  map[string]bool{"docker": true, "git": true},
	}
}

func testTiming() domain.Timing {
	return domain.Timing{
		DependencyTimeout: 200 * time.Millisecond,
		HealthDeadline:    300 * time.Millisecond,
		PollInterval:      10 * time.Millisecond,
	}
}

func testProfile(method domain.Method) domain.Profile {
	p := domain.Profile{
		Method:      method,
		ProjectName: "suna",
		ComposeFile: "docker-compose.yaml",
		BuildMode:   domain.BuildModeBuild,
		EnvFiles: []domain.EnvFile{
			{Template: "backend/.env.example", Target: "backend/.env"},
			{Template: "frontend/.env.example", Target: "frontend/.env.local"},
		},
		RequiredCredentials: []string{"SUPABASE_URL", "SUPABASE_ANON_KEY", "SUPABASE_SERVICE_ROLE_KEY"},
		RequiredTools:       []string{"docker", "git"},
		Services: []domain.ServiceDescriptor{
			{Name: "redis", Health: domain.HealthProbe{Type: domain.ProbeCommand, Command: []string{"redis-cli", "ping"}}},
			{Name: "backend", DependsOn: []string{"redis"}, Health: domain.HealthProbe{Type: domain.ProbeHTTP, URL: "http://localhost:${BACKEND_PORT:-8000}/api/health"}},
			{Name: "frontend", DependsOn: []string{"backend"}, Health: domain.HealthProbe{Type: domain.ProbeHTTP, URL: "http://localhost:3000"}},
		},
		Timing: testTiming(),
	}
	if method == domain.MethodProduction {
		p.ComposeFile = "docker-compose.prod.yaml"
		p.BuildMode = domain.BuildModePull
	}
	return p
}

func (f *fixture) orchestrator(profiles ...domain.Profile) *Orchestrator {
	if len(profiles) == 0 {
		profiles = []domain.Profile{testProfile(domain.MethodLocal), testProfile(domain.MethodProduction)}
	}
	lookupEnv := func(name string) (string, bool) {
		v, ok := f.env[name]
		return v, ok
	}
	return New(profiles,
		func(_ domain.Profile, env map[string]string) (Driver, error) {
			f.factory++
			f.gotEnv = env
			return f.driver, nil
		},
		WithRoot(f.root),
		WithResolverFactory(func(envFiles []string) CredentialResolver {
			return credentials.NewResolver(envFiles, credentials.WithLookupEnv(lookupEnv))
		}),
		WithLookPath(func(tool string) (string, error) {
			if f.tools[tool] {
				return "/usr/bin/" + tool, nil
			}
			return "", errors.New("executable file not found in $PATH")
		}),
	)
}

// engineEnv returns the environment engine commands would see last.
func (f *fixture) engineEnv() map[string]string {
	f.driver.mu.Lock()
	defer f.driver.mu.Unlock()
	if f.driver.env != nil {
		return f.driver.env
	}
	return f.gotEnv
}

func (f *fixture) path(rel string) string {
	return filepath.Join(f.root, rel)
}

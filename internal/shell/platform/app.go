// Package platform prepares configuration files for third-party hosting
// platforms. Nothing here talks to a platform: files are rendered for the
// operator to commit, and secrets are only ever named, never written.
package platform

import (
	"net/url"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/artpar/stackup/internal/core/compose"
	"github.com/artpar/stackup/internal/core/domain"
)

// Kind classifies a service for platforms that treat caches specially.
type Kind string

const (
	KindWeb   Kind = "web"
	KindCache Kind = "cache"
)

// App is the platform-neutral description of the stack.
type App struct {
	Name     string
	Repo     string // owner/name on GitHub, optional
	Branch   string
	Region   string
	Services []Service
}

// Service is one deployable unit.
type Service struct {
	Name       string
	Kind       Kind
	SourceDir  string // build context, relative to the repository root
	Dockerfile string // relative to the repository root
	Image      string // used when the service is not built from source
	Port       uint32
	HealthPath string
	DependsOn  []string
	EnvKeys    []string // variables to be set in the platform dashboard
}

// DependsOnCache reports whether s directly depends on app's cache.
func (s Service) DependsOnCache(app App) bool {
	cache, ok := app.Cache()
	return ok && slices.Contains(s.DependsOn, cache.Name)
}

// Describe builds an App from the compose file and the configured services.
// envKeys maps service name to the variable names its env template defines.
func Describe(name string, spec *compose.ParsedSpec, services []domain.ServiceDescriptor, envKeys map[string][]string) App {
	app := App{Name: name, Branch: "main"}
	for _, svc := range services {
		def, ok := spec.Service(svc.Name)
		if !ok {
			continue
		}

		out := Service{
			Name:      svc.Name,
			Kind:      KindWeb,
			Image:     def.Image,
			DependsOn: mergeDeps(svc.DependsOn, def.DependsOn),
			EnvKeys:   envKeys[svc.Name],
		}
		if isCacheImage(def.Image) {
			out.Kind = KindCache
		}
		if def.Build != nil {
			out.SourceDir = cleanRel(def.Build.Context)
			dockerfile := def.Build.Dockerfile
			if dockerfile == "" {
				dockerfile = "Dockerfile"
			}
			out.Dockerfile = path.Join(out.SourceDir, filepath.ToSlash(dockerfile))
			out.Image = ""
		}
		if len(def.Ports) > 0 {
			out.Port = def.Ports[0]
		}
		if svc.Health.Type == domain.ProbeHTTP {
			out.HealthPath = healthPath(svc.Health.URL)
		}
		app.Services = append(app.Services, out)
	}
	return app
}

// EnvKeysByService groups template variable names by the service whose
// directory holds the template, e.g. backend/.env.example → backend.
func EnvKeysByService(envFiles []domain.EnvFile, keysOf func(template string) ([]string, error)) (map[string][]string, error) {
	out := make(map[string][]string, len(envFiles))
	for _, ef := range envFiles {
		service := strings.SplitN(filepath.ToSlash(filepath.Clean(ef.Template)), "/", 2)[0]
		keys, err := keysOf(ef.Template)
		if err != nil {
			return nil, err
		}
		merged := append(out[service], keys...)
		slices.Sort(merged)
		out[service] = slices.Compact(merged)
	}
	return out, nil
}

// Cache returns the first cache service, if any.
func (a App) Cache() (Service, bool) {
	for _, s := range a.Services {
		if s.Kind == KindCache {
			return s, true
		}
	}
	return Service{}, false
}

func mergeDeps(a, b []string) []string {
	deps := slices.Concat(a, b)
	slices.Sort(deps)
	return slices.Compact(deps)
}

func isCacheImage(image string) bool {
	repo := image
	if i := strings.LastIndex(repo, "/"); i >= 0 {
		repo = repo[i+1:]
	}
	repo, _, _ = strings.Cut(repo, ":")
	return repo == "redis" || repo == "valkey" || repo == "keydb"
}

func cleanRel(p string) string {
	p = path.Clean(filepath.ToSlash(p))
	return strings.TrimPrefix(p, "./")
}

// healthPath extracts the path of a probe URL, ignoring placeholders in the
// host part.
func healthPath(raw string) string {
	if i := strings.Index(raw, "://"); i >= 0 {
		rest := raw[i+3:]
		if j := strings.Index(rest, "/"); j >= 0 {
			if u, err := url.Parse(rest[j:]); err == nil && u.Path != "" {
				return u.Path
			}
		}
	}
	return "/"
}

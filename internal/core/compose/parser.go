package compose

import (
	"context"
	"maps"
	"slices"
	"strings"

	"github.com/compose-spec/compose-go/v2/loader"
	"github.com/compose-spec/compose-go/v2/types"
	"gopkg.in/yaml.v3"
)

// parseProjectName is the throwaway project name used while loading in memory.
const parseProjectName = "stackup-parse"

// ParseComposeSpec parses Docker Compose YAML into a ParsedSpec. env feeds
// ${VAR} interpolation and may be nil. Dependency cycles and undefined
// depends_on targets are reported by the compose loader.
func ParseComposeSpec(yamlContent string, env map[string]string) (*ParsedSpec, error) {
	if strings.TrimSpace(yamlContent) == "" {
		return nil, ErrEmptyInput
	}

	project, err := load(yamlContent, env)
	if err != nil {
		return nil, err
	}
	if len(project.Services) == 0 {
		return nil, ErrNoServices
	}

	spec := &ParsedSpec{Services: make([]Service, 0, len(project.Services))}
	for _, name := range slices.Sorted(maps.Keys(project.Services)) {
		svc := project.Services[name]
		if svc.Image == "" && svc.Build == nil {
			return nil, NewParseError("services."+name, "service must have image or build", ErrServiceNoImage)
		}
		spec.Services = append(spec.Services, reduce(svc))
	}
	return spec, nil
}

func load(yamlContent string, env map[string]string) (*types.Project, error) {
	var dict map[string]any
	if err := yaml.Unmarshal([]byte(yamlContent), &dict); err != nil || dict == nil {
		return nil, NewParseError("", "invalid YAML syntax", ErrInvalidYAML)
	}

	environment := types.Mapping{}
	maps.Copy(environment, env)

	project, err := loader.LoadWithContext(context.Background(), types.ConfigDetails{
		ConfigFiles: []types.ConfigFile{{Content: []byte(yamlContent), Config: dict}},
		Environment: environment,
	}, func(opts *loader.Options) {
		opts.SetProjectName(parseProjectName, false)
		// Env files may not exist yet when the compose file is read
		opts.SkipNormalization = true
		opts.SkipResolveEnvironment = true
		opts.SkipExtends = true
		opts.SkipInclude = true
	})
	if err != nil {
		msg := err.Error()
		switch {
		case strings.Contains(msg, "dependency cycle detected"):
			return nil, NewParseError("", msg, ErrCircularDependency)
		case strings.Contains(msg, "image") && strings.Contains(msg, "build"):
			return nil, NewParseError("", msg, ErrServiceNoImage)
		}
		return nil, NewParseError("", msg, ErrInvalidYAML)
	}
	return project, nil
}

func reduce(svc types.ServiceConfig) Service {
	out := Service{
		Name:      svc.Name,
		Image:     svc.Image,
		DependsOn: slices.Sorted(maps.Keys(svc.DependsOn)),
	}
	if svc.Build != nil {
		out.Build = &BuildConfig{Context: svc.Build.Context, Dockerfile: svc.Build.Dockerfile}
	}
	for _, p := range svc.Ports {
		out.Ports = append(out.Ports, p.Target)
	}
	return out
}

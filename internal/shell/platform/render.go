package platform

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"
)

// RenderFile is the Render blueprint file name.
const RenderFile = "render.yaml"

type renderBlueprint struct {
	Services []renderService `yaml:"services"`
}

type renderService struct {
	Type            string         `yaml:"type"`
	Name            string         `yaml:"name"`
	Runtime         string         `yaml:"runtime,omitempty"`
	Region          string         `yaml:"region,omitempty"`
	Plan            string         `yaml:"plan,omitempty"`
	Repo            string         `yaml:"repo,omitempty"`
	Branch          string         `yaml:"branch,omitempty"`
	DockerContext   string         `yaml:"dockerContext,omitempty"`
	DockerfilePath  string         `yaml:"dockerfilePath,omitempty"`
	Image           *renderImage   `yaml:"image,omitempty"`
	HealthCheckPath string         `yaml:"healthCheckPath,omitempty"`
	IPAllowList     []renderIPRule `yaml:"ipAllowList,omitempty"`
	EnvVars         []renderEnvVar `yaml:"envVars,omitempty"`
}

type renderImage struct {
	URL string `yaml:"url"`
}

type renderIPRule struct {
	Source      string `yaml:"source"`
	Description string `yaml:"description"`
}

type renderEnvVar struct {
	Key         string         `yaml:"key"`
	Sync        *bool          `yaml:"sync,omitempty"`
	FromService *renderFromRef `yaml:"fromService,omitempty"`
}

type renderFromRef struct {
	Type     string `yaml:"type"`
	Name     string `yaml:"name"`
	Property string `yaml:"property"`
}

// RenderBlueprint renders a Render blueprint. Every env key is declared with
// sync: false so Render asks for its value in the dashboard. The cache is
// wired to dependents through REDIS_URL.
func RenderBlueprint(app App) ([]byte, error) {
	noSync := false
	cache, hasCache := app.Cache()

	var bp renderBlueprint
	for _, svc := range app.Services {
		if svc.Kind == KindCache {
			bp.Services = append(bp.Services, renderService{
				Type:   "keyvalue",
				Name:   svc.Name,
				Region: app.Region,
				Plan:   "free",
				IPAllowList: []renderIPRule{
					{Source: "0.0.0.0/0", Description: "everywhere"},
				},
			})
			continue
		}

		out := renderService{
			Type:            "web",
			Name:            svc.Name,
			Region:          app.Region,
			Repo:            repoURL(app.Repo),
			HealthCheckPath: svc.HealthPath,
		}
		if svc.SourceDir != "" {
			out.Runtime = "docker"
			out.Branch = app.Branch
			out.DockerContext = "./" + svc.SourceDir
			out.DockerfilePath = "./" + svc.Dockerfile
		} else {
			out.Runtime = "image"
			out.Repo = ""
			out.Image = &renderImage{URL: svc.Image}
		}
		for _, key := range svc.EnvKeys {
			if hasCache && key == "REDIS_URL" {
				continue
			}
			out.EnvVars = append(out.EnvVars, renderEnvVar{Key: key, Sync: &noSync})
		}
		if hasCache && svc.DependsOnCache(app) {
			out.EnvVars = append(out.EnvVars, renderEnvVar{
				Key:         "REDIS_URL",
				FromService: &renderFromRef{Type: "keyvalue", Name: cache.Name, Property: "connectionString"},
			})
		}
		bp.Services = append(bp.Services, out)
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(bp); err != nil {
		return nil, fmt.Errorf("encode %s: %w", RenderFile, err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode %s: %w", RenderFile, err)
	}
	return buf.Bytes(), nil
}

func repoURL(repo string) string {
	if repo == "" {
		return ""
	}
	return "https://github.com/" + repo
}

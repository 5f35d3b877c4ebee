package platform

import (
	"fmt"
	"strings"

	"github.com/digitalocean/godo"
	"sigs.k8s.io/yaml"
)

// DigitalOceanFile is the App Platform spec path.
const DigitalOceanFile = ".do/app.yaml"

// AppSpec builds a DigitalOcean App Platform spec. Env keys become SECRET
// variables without values; the cache becomes a managed database bound
// through REDIS_URL.
func AppSpec(app App) *godo.AppSpec {
	spec := &godo.AppSpec{
		Name:   app.Name,
		Region: app.Region,
	}

	cache, hasCache := app.Cache()
	if hasCache {
		spec.Databases = append(spec.Databases, &godo.AppDatabaseSpec{
			Name:   cache.Name,
			Engine: godo.AppDatabaseSpecEngine_Redis,
		})
	}

	for _, svc := range app.Services {
		if svc.Kind == KindCache {
			continue
		}

		out := &godo.AppServiceSpec{
			Name:             svc.Name,
			InstanceCount:    1,
			InstanceSizeSlug: "apps-s-1vcpu-1gb",
			HTTPPort:         int64(svc.Port),
		}
		if svc.SourceDir != "" {
			out.SourceDir = svc.SourceDir
			out.DockerfilePath = svc.Dockerfile
			if app.Repo != "" {
				out.GitHub = &godo.GitHubSourceSpec{Repo: app.Repo, Branch: app.Branch, DeployOnPush: true}
			}
		} else {
			out.Image = imageSource(svc.Image)
		}
		if svc.HealthPath != "" {
			out.HealthCheck = &godo.AppServiceSpecHealthCheck{HTTPPath: svc.HealthPath}
		}

		for _, key := range svc.EnvKeys {
			if hasCache && key == "REDIS_URL" {
				continue
			}
			out.Envs = append(out.Envs, &godo.AppVariableDefinition{
				Key:   key,
				Scope: godo.AppVariableScope_RunTime,
				Type:  godo.AppVariableType_Secret,
			})
		}
		if hasCache && svc.DependsOnCache(app) {
			out.Envs = append(out.Envs, &godo.AppVariableDefinition{
				Key:   "REDIS_URL",
				Value: "${" + cache.Name + ".DATABASE_URL}",
				Scope: godo.AppVariableScope_RunTime,
				Type:  godo.AppVariableType_General,
			})
		}
		spec.Services = append(spec.Services, out)
	}
	return spec
}

// RenderAppSpec renders AppSpec as YAML.
func RenderAppSpec(app App) ([]byte, error) {
	content, err := yaml.Marshal(AppSpec(app))
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", DigitalOceanFile, err)
	}
	return content, nil
}

// imageSource splits a reference such as ghcr.io/acme/backend:v1 into an
// App Platform image source.
func imageSource(ref string) *godo.ImageSourceSpec {
	name, tag, ok := strings.Cut(ref, ":")
	if !ok || strings.Contains(tag, "/") {
		name, tag = ref, "latest"
	}

	src := &godo.ImageSourceSpec{
		RegistryType: godo.ImageSourceSpecRegistryType_DockerHub,
		Tag:          tag,
	}
	parts := strings.Split(name, "/")
	switch {
	case len(parts) == 3 && parts[0] == "ghcr.io":
		src.RegistryType = godo.ImageSourceSpecRegistryType_Ghcr
		src.Registry, src.Repository = parts[1], parts[2]
	case len(parts) == 3 && parts[0] == "registry.digitalocean.com":
		src.RegistryType = godo.ImageSourceSpecRegistryType_DOCR
		src.Registry, src.Repository = parts[1], parts[2]
	case len(parts) == 2:
		src.Registry, src.Repository = parts[0], parts[1]
	default:
		src.Registry, src.Repository = "library", parts[len(parts)-1]
	}
	return src
}

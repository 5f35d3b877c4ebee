package platform

import (
	"fmt"
	"path"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// RailwayFile is the Railway config-as-code file name, one per service
// directory.
const RailwayFile = "railway.toml"

const railwaySchema = "https://railway.com/railway.schema.json"

type railwayConfig struct {
	Schema string        `toml:"$schema"`
	Build  railwayBuild  `toml:"build"`
	Deploy railwayDeploy `toml:"deploy"`
}

type railwayBuild struct {
	Builder        string   `toml:"builder"`
	DockerfilePath string   `toml:"dockerfilePath"`
	WatchPatterns  []string `toml:"watchPatterns,omitempty"`
}

type railwayDeploy struct {
	HealthcheckPath         string `toml:"healthcheckPath,omitempty"`
	HealthcheckTimeout      int    `toml:"healthcheckTimeout,omitempty"`
	RestartPolicyType       string `toml:"restartPolicyType"`
	RestartPolicyMaxRetries int    `toml:"restartPolicyMaxRetries"`
}

// RenderRailway renders one railway.toml per service built from source,
// keyed by its path relative to the repository root. Railway provisions the
// cache and variables from its dashboard.
func RenderRailway(app App) (map[string][]byte, error) {
	files := make(map[string][]byte)
	for _, svc := range app.Services {
		if svc.SourceDir == "" || svc.Kind == KindCache {
			continue
		}

		cfg := railwayConfig{
			Schema: railwaySchema,
			Build: railwayBuild{
				Builder:        "DOCKERFILE",
				DockerfilePath: strings.TrimPrefix(svc.Dockerfile, svc.SourceDir+"/"),
				WatchPatterns:  []string{"/" + svc.SourceDir + "/**"},
			},
			Deploy: railwayDeploy{
				HealthcheckPath:         svc.HealthPath,
				RestartPolicyType:       "ON_FAILURE",
				RestartPolicyMaxRetries: 10,
			},
		}
		if svc.HealthPath != "" {
			cfg.Deploy.HealthcheckTimeout = 100
		}

		content, err := toml.Marshal(cfg)
		if err != nil {
			return nil, fmt.Errorf("encode %s for %s: %w", RailwayFile, svc.Name, err)
		}
		files[path.Join(svc.SourceDir, RailwayFile)] = content
	}
	return files, nil
}

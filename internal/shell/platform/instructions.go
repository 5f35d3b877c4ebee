package platform

import (
	"fmt"
	"io"
)

// Guide is the manual setup checklist for one hosting platform.
type Guide struct {
	Platform string
	URL      string
	File     string // generated config the platform reads, if any
	Steps    []string
}

// Instructions returns the setup guides in display order.
func Instructions() []Guide {
	return []Guide{
		{
			Platform: "Railway",
			URL:      "https://railway.app",
			File:     RailwayFile,
			Steps: []string{
				"Connect your GitHub repository to Railway",
				"Create one service per directory holding a railway.toml and set its root directory",
				"Add a Redis database and reference its REDIS_URL from the backend",
				"Set environment variables in the Railway dashboard",
				"Deploy",
			},
		},
		{
			Platform: "Render",
			URL:      "https://render.com",
			File:     RenderFile,
			Steps: []string{
				"Connect your GitHub repository to Render",
				"Create a Blueprint from render.yaml",
				"Fill in the environment variables Render prompts for",
				"Deploy services individually or as a blueprint",
			},
		},
		{
			Platform: "DigitalOcean App Platform",
			URL:      "https://cloud.digitalocean.com/apps",
			File:     DigitalOceanFile,
			Steps: []string{
				"Connect your GitHub repository",
				"Create the app from .do/app.yaml (doctl apps create --spec .do/app.yaml)",
				"Set the SECRET environment variables in the dashboard",
				"Deploy",
			},
		},
		{
			Platform: "Vercel (frontend only)",
			URL:      "https://vercel.com",
			Steps: []string{
				"Connect your GitHub repository to Vercel",
				"Set the root directory to 'frontend'",
				"Configure environment variables",
				"Deploy the backend separately on Railway or Render",
			},
		},
	}
}

// PrintInstructions writes the guides as numbered lists.
func PrintInstructions(w io.Writer, guides []Guide) {
	for _, g := range guides {
		fmt.Fprintf(w, "\n%s: %s\n", g.Platform, g.URL)
		if g.File != "" {
			fmt.Fprintf(w, "  config: %s\n", g.File)
		}
		for i, step := range g.Steps {
			fmt.Fprintf(w, "  %d. %s\n", i+1, step)
		}
	}
}

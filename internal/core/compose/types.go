package compose

// ParsedSpec is the part of a compose file the planner and the platform
// renderers read, decoupled from compose-go types.
type ParsedSpec struct {
	Services []Service `json:"services"` // sorted by name
}

// Service returns the service with the given name.
func (s *ParsedSpec) Service(name string) (Service, bool) {
	for _, svc := range s.Services {
		if svc.Name == name {
			return svc, true
		}
	}
	return Service{}, false
}

// Service is one compose service.
type Service struct {
	Name      string       `json:"name"`
	Image     string       `json:"image,omitempty"`
	Build     *BuildConfig `json:"build,omitempty"`
	Ports     []uint32     `json:"ports,omitempty"`      // container ports, in file order
	DependsOn []string     `json:"depends_on,omitempty"` // sorted
}

// NeedsBuild reports whether the service is built from source.
func (s Service) NeedsBuild() bool {
	return s.Build != nil
}

// BuildConfig is where a service's image is built from.
type BuildConfig struct {
	Context    string `json:"context"`
	Dockerfile string `json:"dockerfile,omitempty"`
}

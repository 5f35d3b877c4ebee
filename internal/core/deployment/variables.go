package deployment

import (
	"regexp"

	"github.com/artpar/stackup/internal/core/domain"
)

// =============================================================================
// Variable Substitution Functions
// =============================================================================

// varPlaceholderRegex matches ${VAR} and ${VAR:-default} patterns.
// Groups:
//   - Group 1: Variable name (required)
//   - Group 2: ":-" marker (present when a default is given)
//   - Group 3: Default value (may be empty)
var varPlaceholderRegex = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(:-([^}]*))?\}`)

// SubstituteVariables replaces ${VAR} and ${VAR:-default} placeholders with values
// from the variables map.
//
// Behavior:
//   - ${VAR} - replaced with variables["VAR"] if set, otherwise kept as-is
//   - ${VAR:-default} - replaced with variables["VAR"] if set and non-empty, otherwise "default"
//   - Unmatched text is left unchanged
//
// Examples:
//
//	SubstituteVariables("http://localhost:${BACKEND_PORT:-8000}/api/health", nil)
//	// Returns: "http://localhost:8000/api/health"
//
//	SubstituteVariables("${REDIS_HOST}:${REDIS_PORT}", map[string]string{"REDIS_HOST": "cache", "REDIS_PORT": "6379"})
//	// Returns: "cache:6379"
//
//	SubstituteVariables("${MISSING}", nil)
//	// Returns: "${MISSING}"
func SubstituteVariables(value string, variables map[string]string) string {
	return varPlaceholderRegex.ReplaceAllStringFunc(value, func(match string) string {
		submatch := varPlaceholderRegex.FindStringSubmatch(match)
		val, ok := variables[submatch[1]]
		if submatch[2] == "" {
			if ok {
				return val
			}
			return match
		}
		if val != "" {
			return val
		}
		return submatch[3]
	})
}

// ResolveProbe returns probe with placeholders in URL and Addr substituted.
func ResolveProbe(probe domain.HealthProbe, variables map[string]string) domain.HealthProbe {
	resolved := probe
	resolved.URL = SubstituteVariables(probe.URL, variables)
	resolved.Addr = SubstituteVariables(probe.Addr, variables)
	if len(probe.Command) > 0 {
		resolved.Command = make([]string, len(probe.Command))
		for i, arg := range probe.Command {
			resolved.Command[i] = SubstituteVariables(arg, variables)
		}
	}
	return resolved
}

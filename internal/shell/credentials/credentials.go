// Package credentials resolves the secrets a deployment needs from env
// files, the process environment and the OS keyring.
package credentials

import (
	"errors"
	"log/slog"
	"os"

	"github.com/zalando/go-keyring"

	"github.com/artpar/stackup/internal/shell/envfile"
)

// Source names where a credential was found.
type Source string

const (
	SourceEnvFile     Source = "env_file"
	SourceEnvironment Source = "environment"
	SourceKeyring     Source = "keyring"
)

// Resolution is the outcome of resolving a set of required names.
type Resolution struct {
	Values  map[string]string // resolved name → value
	Sources map[string]Source // resolved name → where it came from
	Missing []string          // unresolved names, in request order
}

// Complete reports whether every required name resolved.
func (r Resolution) Complete() bool {
	return len(r.Missing) == 0
}

// Resolver looks credentials up in order: env files, process environment,
// keyring. Empty values count as missing.
type Resolver struct {
	envFiles       []string
	keyringService string
	lookupEnv      func(string) (string, bool)
	keyringGet     func(service, user string) (string, error)
	logger         *slog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithKeyring enables keyring lookups under service. An empty service
// disables the keyring.
func WithKeyring(service string) Option {
	return func(r *Resolver) { r.keyringService = service }
}

// WithLookupEnv replaces os.LookupEnv.
func WithLookupEnv(fn func(string) (string, bool)) Option {
	return func(r *Resolver) { r.lookupEnv = fn }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) { r.logger = logger }
}

// NewResolver creates a resolver reading envFiles first. Files that do not
// exist yet are skipped.
func NewResolver(envFiles []string, opts ...Option) *Resolver {
	r := &Resolver{
		envFiles:   envFiles,
		lookupEnv:  os.LookupEnv,
		keyringGet: keyring.Get,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve looks up every name in required. It only fails when an env file
// exists but cannot be parsed.
func (r *Resolver) Resolve(required []string) (Resolution, error) {
	res := Resolution{
		Values:  make(map[string]string, len(required)),
		Sources: make(map[string]Source, len(required)),
	}
	if len(required) == 0 {
		return res, nil
	}

	fileValues, err := envfile.LoadAll(r.envFiles...)
	if err != nil {
		return Resolution{}, err
	}

	seen := make(map[string]bool, len(required))
	for _, name := range required {
		if seen[name] {
			continue
		}
		seen[name] = true
		value, source := r.lookup(name, fileValues)
		if value == "" {
			res.Missing = append(res.Missing, name)
			continue
		}
		res.Values[name] = value
		res.Sources[name] = source
	}
	return res, nil
}

func (r *Resolver) lookup(name string, fileValues map[string]string) (string, Source) {
	if v := fileValues[name]; v != "" {
		return v, SourceEnvFile
	}
	if v, ok := r.lookupEnv(name); ok && v != "" {
		return v, SourceEnvironment
	}
	if r.keyringService == "" {
		return "", ""
	}

	v, err := r.keyringGet(r.keyringService, name)
	switch {
	case err == nil:
		return v, SourceKeyring
	case errors.Is(err, keyring.ErrNotFound):
	default:
		// No usable keyring backend (headless host, locked store)
		r.logger.Debug("keyring lookup failed", "service", r.keyringService, "name", name, "error", err)
	}
	return "", ""
}

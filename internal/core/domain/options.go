package domain

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Options tune a single deployment attempt.
type Options struct {
	NoBuild    bool // skip the build/pull stage
	ForceEnv   bool // overwrite existing env files from templates
	SkipChecks bool // skip tool presence checks (local only)
}

// optionSetters is the closed set of recognized option names.
var optionSetters = map[string]func(*Options, bool){
	"no_build":    func(o *Options, v bool) { o.NoBuild = v },
	"force_env":   func(o *Options, v bool) { o.ForceEnv = v },
	"skip_checks": func(o *Options, v bool) { o.SkipChecks = v },
}

// OptionNames returns the recognized option names in sorted order.
func OptionNames() []string {
	names := make([]string, 0, len(optionSetters))
	for name := range optionSetters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ParseOptions builds Options from a loosely typed map (config file section).
// Keys may use dashes or underscores. Unknown keys and non-boolean values are
// configuration errors.
func ParseOptions(raw map[string]any) (Options, error) {
	var opts Options

	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		val, err := toBool(raw[key])
		if err != nil {
			return Options{}, NewConfigurationError(fmt.Sprintf("option %q: %v", key, err))
		}
		if opts, err = opts.With(key, val); err != nil {
			return Options{}, err
		}
	}
	return opts, nil
}

// With returns o with the named option set to value, in either direction.
// name may use dashes or underscores.
func (o Options) With(name string, value bool) (Options, error) {
	set, ok := optionSetters[strings.ReplaceAll(strings.ToLower(name), "-", "_")]
	if !ok {
		return o, NewConfigurationError(fmt.Sprintf(
			"unrecognized option %q (known: %s)", name, strings.Join(OptionNames(), ", ")))
	}
	set(&o, value)
	return o, nil
}

// Validate rejects option combinations that make no sense for method.
func (o Options) Validate(method Method) error {
	if o.SkipChecks && method == MethodProduction {
		return NewConfigurationError("skip_checks cannot be used with the production method")
	}
	return nil
}

func toBool(v any) (bool, error) {
	switch b := v.(type) {
	case bool:
		return b, nil
	case string:
		parsed, err := strconv.ParseBool(b)
		if err != nil {
			return false, fmt.Errorf("expected boolean, got %q", b)
		}
		return parsed, nil
	default:
		return false, fmt.Errorf("expected boolean, got %T", v)
	}
}

// Package envfile materializes environment files from their templates and
// reads KEY=VALUE files.
package envfile

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/joho/godotenv"
)

// FileMode is the permission of every materialized env file. They hold
// credentials.
const FileMode os.FileMode = 0o600

var (
	ErrTemplateMissing = errors.New("env template not found")
	ErrTargetIsDir     = errors.New("env target is a directory")
)

// Exists reports whether path exists as a regular file.
func Exists(path string) (bool, error) {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if info.IsDir() {
		return false, fmt.Errorf("%w: %s", ErrTargetIsDir, path)
	}
	return true, nil
}

// Materialize copies template to target byte for byte when target does not
// exist, or always when force is set. It reports whether target was written.
// Parent directories are created as needed. An existing target is never
// modified unless force is set.
func Materialize(template, target string, force bool) (bool, error) {
	exists, err := Exists(target)
	if err != nil {
		return false, err
	}
	if exists && !force {
		return false, nil
	}

	content, err := os.ReadFile(template)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, fmt.Errorf("%w: %s", ErrTemplateMissing, template)
		}
		return false, fmt.Errorf("read template %s: %w", template, err)
	}

	if err := writeAtomic(target, content, FileMode); err != nil {
		return false, err
	}
	return true, nil
}

// WriteIfMissing writes content to path with mode when path does not exist,
// or always when force is set. It reports whether path was written.
func WriteIfMissing(path string, content []byte, mode os.FileMode, force bool) (bool, error) {
	exists, err := Exists(path)
	if err != nil {
		return false, err
	}
	if exists && !force {
		return false, nil
	}
	if err := writeAtomic(path, content, mode); err != nil {
		return false, err
	}
	return true, nil
}

// writeAtomic writes content to a temp file next to path and renames it into
// place, so a failed write never leaves a partial file behind.
func writeAtomic(path string, content []byte, mode os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp file in %s: %w", dir, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Chmod(mode); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename into %s: %w", path, err)
	}
	return nil
}

// Load parses a KEY=VALUE file. A missing file yields an empty map.
func Load(path string) (map[string]string, error) {
	values, err := godotenv.Read(path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return values, nil
}

// Keys returns the variable names defined in path, sorted.
func Keys(path string) ([]string, error) {
	values, err := Load(path)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

// LoadAll merges several env files. Later files win on duplicate keys.
func LoadAll(paths ...string) (map[string]string, error) {
	merged := map[string]string{}
	for _, p := range paths {
		values, err := Load(p)
		if err != nil {
			return nil, err
		}
		for k, v := range values {
			merged[k] = v
		}
	}
	return merged, nil
}

// Environ returns the process environment as a map.
func Environ() map[string]string {
	env := make(map[string]string)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			env[k] = v
		}
	}
	return env
}

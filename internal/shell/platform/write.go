package platform

import (
	"fmt"
	"maps"
	"path/filepath"
	"slices"

	"github.com/artpar/stackup/internal/shell/envfile"
)

// FileMode is the mode for generated platform files; they hold no secrets.
const FileMode = 0o644

// Render renders every platform file for app, keyed by path relative to the
// repository root.
func Render(app App) (map[string][]byte, error) {
	files, err := RenderRailway(app)
	if err != nil {
		return nil, err
	}

	blueprint, err := RenderBlueprint(app)
	if err != nil {
		return nil, err
	}
	files[RenderFile] = blueprint

	doSpec, err := RenderAppSpec(app)
	if err != nil {
		return nil, err
	}
	files[DigitalOceanFile] = doSpec

	return files, nil
}

// Write renders app's platform files under dir. Existing files are kept
// unless force is set. Returned paths are relative to dir and sorted.
func Write(dir string, app App, force bool) (written, skipped []string, err error) {
	files, err := Render(app)
	if err != nil {
		return nil, nil, err
	}

	for _, rel := range slices.Sorted(maps.Keys(files)) {
		ok, err := envfile.WriteIfMissing(filepath.Join(dir, filepath.FromSlash(rel)), files[rel], FileMode, force)
		if err != nil {
			return written, skipped, fmt.Errorf("write %s: %w", rel, err)
		}
		if ok {
			written = append(written, rel)
		} else {
			skipped = append(skipped, rel)
		}
	}
	return written, skipped, nil
}

package plugin

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

// Discover returns the manifests of the plugins under dir, sorted by name.
// A missing dir holds no plugins. Directories with a broken manifest are
// reported in the joined error while the rest are still returned.
func Discover(dir string) ([]*Manifest, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var (
		found []*Manifest
		errs  []error
	)
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		pluginDir := filepath.Join(dir, e.Name())
		m, err := LoadManifest(pluginDir)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			errs = append(errs, err)
			continue
		}
		found = append(found, m)
	}
	sort.Slice(found, func(i, j int) bool { return found[i].Name < found[j].Name })
	return found, errors.Join(errs...)
}

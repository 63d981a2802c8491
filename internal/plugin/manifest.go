package plugin

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// ManifestFile is the manifest name inside a plugin directory.
const ManifestFile = "plugin.toml"

// DefaultMain is the entry script used when a manifest names none.
const DefaultMain = "init.lua"

// Manifest describes a plugin.
type Manifest struct {
	Name        string `toml:"name"`
	Version     string `toml:"version"`
	Description string `toml:"description"`
	Author      string `toml:"author"`

	// Main is the entry script relative to the plugin directory.
	Main string `toml:"main"`

	dir string
}

// namePattern validates plugin and command names.
var namePattern = regexp.MustCompile(`^[a-z][a-z0-9-]*$`)

// semverPattern validates version strings (simplified semver).
var semverPattern = regexp.MustCompile(`^\d+\.\d+\.\d+(-[a-zA-Z0-9.-]+)?(\+[a-zA-Z0-9.-]+)?$`)

// ParseManifest decodes and validates a manifest. dir is the plugin
// directory the entry script is resolved against.
func ParseManifest(data []byte, dir string) (*Manifest, error) {
	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidManifest, err)
	}
	if m.Main == "" {
		m.Main = DefaultMain
	}
	m.dir = dir
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// LoadManifest reads the manifest in dir.
func LoadManifest(dir string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if err != nil {
		return nil, err
	}
	m, err := ParseManifest(data, dir)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", dir, err)
	}
	return m, nil
}

// Validate checks the manifest fields.
func (m *Manifest) Validate() error {
	switch {
	case m.Name == "":
		return fmt.Errorf("%w: name is required", ErrInvalidManifest)
	case !namePattern.MatchString(m.Name):
		return fmt.Errorf("%w: name %q must be lowercase letters, digits and hyphens", ErrInvalidManifest, m.Name)
	case m.Version != "" && !semverPattern.MatchString(m.Version):
		return fmt.Errorf("%w: version %q is not semver", ErrInvalidManifest, m.Version)
	case filepath.Ext(m.Main) != ".lua":
		return fmt.Errorf("%w: main %q must be a .lua file", ErrInvalidManifest, m.Main)
	case filepath.IsAbs(m.Main) || strings.HasPrefix(filepath.Clean(m.Main), ".."):
		return fmt.Errorf("%w: main %q must stay inside the plugin directory", ErrInvalidManifest, m.Main)
	}
	return nil
}

// Dir returns the plugin directory.
func (m *Manifest) Dir() string { return m.dir }

// EntryPath returns the path of the entry script.
func (m *Manifest) EntryPath() string {
	return filepath.Join(m.dir, m.Main)
}

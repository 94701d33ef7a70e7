package plugins

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// HostAPIVersion is the version of the JS host API this build exposes.
// Plugins declare the API version they were written against; a plugin is
// loadable when its declared major version matches the host's.
const HostAPIVersion = "1.0.0"

// Manifest represents the plugin.json structure.
type Manifest struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Version     string         `json:"version"`
	Description string         `json:"description"`
	Author      string         `json:"author"`
	License     string         `json:"license"`
	APIVersion  string         `json:"api_version"`
	EntryPoint  string         `json:"entry_point"`
	Config      map[string]any `json:"config"`
}

// LoadManifest loads and validates a plugin.json file from a plugin
// directory.
func LoadManifest(pluginDir string) (*Manifest, error) {
	manifestPath := filepath.Join(pluginDir, "plugin.json")

	data, err := os.ReadFile(manifestPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read plugin.json: %w", err)
	}

	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("failed to parse plugin.json: %w", err)
	}

	if manifest.ID == "" {
		return nil, fmt.Errorf("plugin.json missing required field: id")
	}
	if manifest.Name == "" {
		return nil, fmt.Errorf("plugin.json missing required field: name")
	}
	if manifest.Version == "" {
		return nil, fmt.Errorf("plugin.json missing required field: version")
	}
	if manifest.APIVersion == "" {
		return nil, fmt.Errorf("plugin.json missing required field: api_version")
	}
	if err := checkAPIVersion(manifest.APIVersion); err != nil {
		return nil, err
	}

	if manifest.EntryPoint == "" {
		manifest.EntryPoint = "index.js"
	}

	return &manifest, nil
}

func checkAPIVersion(declared string) error {
	v, err := semver.NewVersion(strings.TrimPrefix(declared, "v"))
	if err != nil {
		return fmt.Errorf("invalid api_version %q: %w", declared, err)
	}
	host := semver.MustParse(HostAPIVersion)
	if v.Major() != host.Major() {
		return fmt.Errorf("plugin api_version %s is incompatible with host API %s", declared, HostAPIVersion)
	}
	return nil
}

package plugins

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/yuigahama/tsundoku/internal/providers"
)

// LoadAll scans a directory for plugin subdirectories (anything holding a
// plugin.json) and registers each loadable plugin as a provider. A broken
// plugin is logged and skipped; it never prevents the rest from loading.
func LoadAll(dir string) error {
	if dir == "" {
		return nil
	}
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read plugins directory: %w", err)
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		pluginDir := filepath.Join(dir, entry.Name())
		if _, err := os.Stat(filepath.Join(pluginDir, "plugin.json")); err != nil {
			continue
		}

		adapter, err := Load(pluginDir)
		if err != nil {
			log.Printf("Skipping plugin %s: %v", entry.Name(), err)
			continue
		}
		providers.Register(adapter)
		log.Printf("Loaded plugin provider %s (%s)", adapter.GetInfo().ID, adapter.GetInfo().Name)
	}
	return nil
}

// Load builds a provider adapter from a single plugin directory.
func Load(pluginDir string) (*Adapter, error) {
	manifest, err := LoadManifest(pluginDir)
	if err != nil {
		return nil, err
	}
	runtime, err := NewRuntime(manifest, pluginDir)
	if err != nil {
		return nil, err
	}
	return NewAdapter(runtime)
}

package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Save writes the config back to the file Load read, or to the user's config
// directory when there was none. It returns the path written.
func (c *Config) Save() (string, error) {
	path := ResolvedPath()
	if path == "" {
		path = filepath.Join(ConfigDir(), "shadows.yaml")
	}
	return path, c.SaveTo(path)
}

// SaveTo validates the config and writes it as YAML, creating parent
// directories. Invalid settings are never written, so a watcher on the same
// file only sees loadable configs.
func (c *Config) SaveTo(path string) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

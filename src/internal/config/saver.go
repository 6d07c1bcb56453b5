// FILE: adminfeed/src/internal/config/saver.go
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	lconfig "github.com/lixenwraith/config"
)

// ErrConfigExists is returned by SaveToFile when overwrite is false and path exists
var ErrConfigExists = errors.New("config file already exists")

// SaveToFile writes the configuration to path as TOML. The file may hold credentials,
// so it is created 0600 inside a 0700 directory.
func (c *Config) SaveToFile(path string, overwrite bool) error {
	if path == "" {
		return fmt.Errorf("cannot save config: path is empty")
	}

	if _, err := os.Stat(path); err == nil && !overwrite {
		return fmt.Errorf("%s: %w", path, ErrConfigExists)
	} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("cannot save config: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	// The builder loads the target file before saving over it
	if err := os.WriteFile(path, nil, 0o600); err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}

	lcfg, err := lconfig.NewBuilder().
		WithFile(path).
		WithTarget(c).
		WithFileFormat("toml").
		Build()
	if err != nil {
		return fmt.Errorf("failed to create config builder: %w", err)
	}
	if err := lcfg.Save(path); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	return nil
}

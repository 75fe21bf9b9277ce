package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"path/filepath"

	"github.com/spf13/afero"
	"sigs.k8s.io/yaml"
)

// Load loads the configuration file at path from fsys. A missing file yields
// the default configuration.
func Load(fsys afero.Fs, path string) (*Configuration, error) {
	// If given a directory, look for config.yaml inside it.
	if isDir, _ := afero.IsDir(fsys, path); isDir {
		path = filepath.Join(path, ConfigurationName)
	}

	out := defaultConfig()
	out.configFs = fsys

	configContents, err := afero.ReadFile(fsys, path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return out, nil
	case err != nil:
		return nil, err
	}

	if err := yaml.UnmarshalStrict(configContents, out); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := out.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return out, nil
}

// Initialize writes the default configuration to path if it doesn't exist.
func Initialize(fsys afero.Fs, path string, logger *log.Logger) error {
	exists, err := afero.Exists(fsys, path)
	if err != nil {
		return err
	}
	if exists {
		logger.Printf("%s already exists, leaving it alone\n", path)
		return nil
	}

	if err := fsys.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return err
	}

	logger.Printf("Writing default configuration to %s\n", path)
	return afero.WriteFile(fsys, path, defaultConfigData, 0640)
}

package config

import (
	_ "embed"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/mattn/go-isatty"
	"github.com/spf13/afero"
	"sigs.k8s.io/yaml"

	"github.com/josephlewis42/triton/core/history"
)

var (
	//go:embed default/config.yaml
	defaultConfigData []byte
)

const (
	ConfigurationName = "config.yaml"
	ConfigurationDir  = "triton"

	ColorAlways = "always"
	ColorAuto   = "auto"
	ColorNever  = "never"
)

type Configuration struct {
	configFs afero.Fs

	Prompt            string `json:"prompt" validate:"required"`
	HistoryFile       string `json:"history_file" validate:"required"`
	ExecFailureStatus int    `json:"exec_failure_status" validate:"gte=1,lte=255"`
	Color             string `json:"color" validate:"oneof=always auto never"`
}

// Validate the configuration for basic semantic errors.
func (c *Configuration) Validate() error {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		return name
	})

	return validate.Struct(c)
}

func (c *Configuration) fs() afero.Fs {
	if c.configFs == nil {
		c.configFs = afero.NewOsFs()
	}
	return c.configFs
}

// HistoryPath returns the history file path with ~ expanded.
func (c *Configuration) HistoryPath() (string, error) {
	return expandHome(c.HistoryFile)
}

// OpenHistory opens the history log in an append only state.
func (c *Configuration) OpenHistory() (*history.Log, error) {
	path, err := c.HistoryPath()
	if err != nil {
		return nil, err
	}
	return history.Open(c.fs(), path)
}

// OpenRedirect opens a redirection target for appending, creating it if
// needed. Targets are handed to child processes so they must be OS files.
func (c *Configuration) OpenRedirect(path string) (*os.File, error) {
	fd, err := c.fs().OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}

	osFile, ok := fd.(*os.File)
	if !ok {
		fd.Close()
		return nil, fmt.Errorf("open %s: not backed by an OS file", path)
	}
	return osFile, nil
}

// UseColor reports whether status lines written to w should be colorized.
func (c *Configuration) UseColor(w io.Writer) bool {
	switch c.Color {
	case ColorAlways:
		return true
	case ColorNever:
		return false
	}

	f, ok := w.(interface{ Fd() uintptr })
	return ok && isatty.IsTerminal(f.Fd())
}

func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("expand %q: %w", path, err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}

// DefaultPath returns the standard config file location.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ConfigurationName
	}
	return filepath.Join(dir, ConfigurationDir, ConfigurationName)
}

func defaultConfig() *Configuration {
	var out Configuration
	if err := yaml.UnmarshalStrict(defaultConfigData, &out); err != nil {
		panic(err)
	}
	return &out
}

// Default returns the built in configuration backed by the OS filesystem.
func Default() *Configuration {
	cfg := defaultConfig()
	cfg.configFs = afero.NewOsFs()
	return cfg
}

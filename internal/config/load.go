package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/luki/iotsim/internal/errors"
)

// Format is a config file syntax.
type Format string

const (
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
)

// Load reads configuration from explicit, or from the standard config path
// when explicit is empty. Search order:
//  1. $XDG_CONFIG_HOME/iotsim/config.toml (then config.yaml)
//  2. ~/.config/iotsim/config.toml (then config.yaml)
//
// If no file exists, returns Default(). The result is validated; a config
// that decoded but fails validation is returned along with the CONFIG error.
func Load(explicit string) (*Config, error) {
	if explicit != "" {
		return LoadFromFile(explicit)
	}
	for _, p := range configSearchPaths() {
		if _, err := os.Stat(p); err == nil {
			return LoadFromFile(p)
		}
	}
	cfg := Default()
	return cfg, Validate(cfg)
}

// LoadFromFile reads configuration from a specific file path. The syntax is
// chosen by extension: .yaml and .yml are YAML, everything else TOML. Like
// Load, it returns the decoded config alongside a validation error.
func LoadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			fmt.Sprintf("Can't read config file %s", path),
			"Check the path passed with --config")
	}
	defer f.Close()

	cfg, err := LoadFromReader(f, FormatOf(path))
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			fmt.Sprintf("Can't parse config file %s", path),
			"Fix the syntax error above")
	}
	return cfg, Validate(cfg)
}

// LoadFromReader decodes configuration over Default(). It does not validate.
func LoadFromReader(r io.Reader, format Format) (*Config, error) {
	cfg := Default()
	switch format {
	case FormatYAML:
		if err := yaml.NewDecoder(r).Decode(cfg); err != nil && err != io.EOF {
			return nil, err
		}
	default:
		if _, err := toml.NewDecoder(r).Decode(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// FormatOf picks the syntax for a file name.
func FormatOf(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatTOML
	}
}

// configSearchPaths returns the ordered list of config file paths to try.
func configSearchPaths() []string {
	home, _ := os.UserHomeDir()
	dirs := []string{filepath.Join(xdgConfigHome(home), "iotsim")}

	// If XDG_CONFIG_HOME was explicitly set, also try the fallback default.
	if fallback := filepath.Join(home, ".config", "iotsim"); fallback != dirs[0] {
		dirs = append(dirs, fallback)
	}

	var paths []string
	for _, d := range dirs {
		paths = append(paths, filepath.Join(d, "config.toml"), filepath.Join(d, "config.yaml"))
	}
	return paths
}

// xdgConfigHome returns XDG_CONFIG_HOME or ~/.config as fallback.
func xdgConfigHome(home string) string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return v
	}
	return filepath.Join(home, ".config")
}

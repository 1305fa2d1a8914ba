package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds connection settings for a Tellus deployment.
type Config struct {
	Endpoint string `yaml:"endpoint"`
	Token    string `yaml:"token"`
	Project  string `yaml:"project"`
}

// loadConfig reads the YAML config file and applies TELLUS_* environment
// overrides. A missing default config file is not an error; a missing
// explicit one is.
func loadConfig(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		home, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(home, ".tellus.yaml")
		}
	}

	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing %s: %w", path, err)
			}
		case errors.Is(err, fs.ErrNotExist) && !explicit:
			// fall through to env
		default:
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	if v := os.Getenv("TELLUS_ENDPOINT"); v != "" {
		cfg.Endpoint = v
	}
	if v := os.Getenv("TELLUS_TOKEN"); v != "" {
		cfg.Token = v
	}
	if v := os.Getenv("TELLUS_PROJECT"); v != "" {
		cfg.Project = v
	}
	return cfg, nil
}

// Package config reads the per-user ecsfs configuration, such as the
// default volume image, from ~/.config/ecsfs/config.yaml and ECSFS_*
// environment variables. Environment variables take precedence.
package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

const envVarPrefix = "ECSFS"

// DefaultBlocks is the size of newly formatted volumes unless
// configured otherwise: 8192 data blocks (32 MiB) plus metadata.
const DefaultBlocks = 8192 + 4 + 2

func userConfigDir() string {
	userConfigDir, err := os.UserConfigDir()
	if err != nil {
		log.Fatalf("https://golang.org/pkg/os/#UserConfigDir failed: %v", err)
	}
	return userConfigDir
}

// Typically ~/.config/ecsfs on Linux
// Typically ~/Library/Application\ Support/ecsfs on macOS/Darwin
func ecsfsConfigDir() string {
	return filepath.Join(userConfigDir(), "ecsfs")
}

func Dir() string { return ecsfsConfigDir() }

type Config struct {
	// Volume is the image used when no --volume flag is given.
	Volume string `envconfig:"VOLUME" yaml:"volume"`

	// Blocks is the total block count used by format.
	Blocks int `envconfig:"BLOCKS" yaml:"blocks"`
}

// Path returns the configuration file in effect: $ECSFS_CONFIG_FILE or
// config.yaml in Dir.
func Path() string {
	if p := os.Getenv(envVarPrefix + "_CONFIG_FILE"); p != "" {
		return p
	}
	return filepath.Join(ecsfsConfigDir(), "config.yaml")
}

// Load reads the configuration file at Path, if any, and applies
// environment overrides.
func Load() (*Config, error) {
	return load(Path())
}

func load(path string) (*Config, error) {
	c := Config{
		Blocks: DefaultBlocks,
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	} else {
		if err := yaml.UnmarshalStrict(data, &c); err != nil {
			return nil, fmt.Errorf("unmarshaling config file %s: %w", path, err)
		}
	}

	if err := envconfig.Process(envVarPrefix, &c); err != nil {
		return nil, fmt.Errorf("parsing environment variables: %w", err)
	}
	return &c, nil
}

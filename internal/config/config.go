// Package config centralizes the toolkit's environment and file
// configuration. Environment variables always win over file values.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/adlift/toolkit/internal/errors"
)

// FileName is the optional project-local configuration file
const FileName = "toolkit.yaml"

// Config is the resolved toolkit configuration
type Config struct {
	ToolkitEnv  string
	DatabaseURL string
	SafeDBHosts []string
	ManifestDir string
	LogLevel    string
	LogFormat   string
}

// fileConfig is the subset of Config that may come from toolkit.yaml.
// Connection strings and safety inputs are environment-only on purpose:
// a committed file must never be able to point writes at a new database
// or loosen the gates.
type fileConfig struct {
	ManifestDir string `yaml:"manifestDir"`
	LogLevel    string `yaml:"logLevel"`
	LogFormat   string `yaml:"logFormat"`
}

// LoadDotenv loads a .env file from the working directory when present.
// A missing file is not an error; anything else is.
func LoadDotenv() error {
	if err := godotenv.Load(); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.Wrap(errors.ErrCodeConfigFileFailed, "loading .env", err)
	}
	return nil
}

// Load resolves configuration from the optional toolkit.yaml and the
// process environment.
func Load() (Config, error) {
	return load(FileName)
}

func load(path string) (Config, error) {
	cfg := Config{
		LogLevel:  "info",
		LogFormat: "text",
	}

	if data, err := os.ReadFile(path); err == nil {
		var fc fileConfig
		if err := yaml.Unmarshal(data, &fc); err != nil {
			return Config{}, errors.Wrap(errors.ErrCodeConfigInvalid,
				fmt.Sprintf("parsing %s", path), err)
		}
		if fc.ManifestDir != "" {
			cfg.ManifestDir = fc.ManifestDir
		}
		if fc.LogLevel != "" {
			cfg.LogLevel = fc.LogLevel
		}
		if fc.LogFormat != "" {
			cfg.LogFormat = fc.LogFormat
		}
	}

	cfg.ToolkitEnv = os.Getenv("TOOLKIT_ENV")
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	cfg.SafeDBHosts = splitCSV(os.Getenv("TOOLKIT_SAFE_DB_HOSTS"))
	if v := os.Getenv("TOOLKIT_MANIFEST_DIR"); v != "" {
		cfg.ManifestDir = v
	}
	if v := os.Getenv("TOOLKIT_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}

	return cfg, nil
}

func splitCSV(csv string) []string {
	if csv == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(csv, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

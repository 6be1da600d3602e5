package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the configuration file name looked up in the
// working and home directories.
const DefaultConfigFile = ".boardcrawl"

// LocalSuffix names the override file merged over a configuration file.
const LocalSuffix = ".local"

// ErrConfigNotFound is returned when the configuration file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// LoadConfigFile reads the YAML file at path and merges path+".local" over
// it when that file exists. It returns ErrConfigNotFound when path does
// not exist.
func LoadConfigFile(path string) (*File, error) {
	f, err := readFile(path)
	if err != nil {
		return nil, err
	}

	local, err := readFile(path + LocalSuffix)
	switch {
	case errors.Is(err, ErrConfigNotFound):
		return f, nil
	case err != nil:
		return nil, err
	}

	if err := mergo.Merge(f, *local, mergo.WithOverride); err != nil {
		return nil, fmt.Errorf("failed to merge %s: %w", path+LocalSuffix, err)
	}
	return f, nil
}

func readFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return &f, nil
}

// FindConfigFile returns the configuration file to use:
//  1. configPath, when given and present
//  2. .boardcrawl in the current directory
//  3. .boardcrawl in the home directory
//  4. config.yaml in the XDG config directory
//
// It returns an empty string when none exists.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	var candidates []string
	if cwd, err := os.Getwd(); err == nil {
		candidates = append(candidates, filepath.Join(cwd, DefaultConfigFile))
	}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, DefaultConfigFile))
	}
	candidates = append(candidates, filepath.Join(XDGConfigDir(), "config.yaml"))

	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c
		}
	}
	return ""
}

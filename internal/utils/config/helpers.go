package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// ConfigHelpers derives working paths and settings from a GlobalConfig.
type ConfigHelpers struct {
	config *GlobalConfig
}

func NewConfigHelpers(config *GlobalConfig) *ConfigHelpers {
	return &ConfigHelpers{config: config}
}

// Workers returns the number of concurrent workers, at least 1.
func (c *ConfigHelpers) Workers() int {
	if c.config.Workers < 1 {
		return 1
	}
	return c.config.Workers
}

// WorkDir returns the absolute path to the work directory
func (c *ConfigHelpers) WorkDir() (string, error) {
	return filepath.Abs(c.config.WorkDir)
}

// TempDir returns the temporary directory path
func (c *ConfigHelpers) TempDir() string {
	if c.config.TempDir == "" {
		return os.TempDir()
	}
	return c.config.TempDir
}

func (c *ConfigHelpers) LogLevel() string {
	return c.config.Logging.Level
}

func (c *ConfigHelpers) IsDebugMode() bool {
	return c.config.Logging.Level == "debug"
}

// ReleaseDir is where the manifest of a package version is written by
// default: <work_dir>/<name>-<version>.
func (c *ConfigHelpers) ReleaseDir(name, version string) (string, error) {
	workDir, err := c.WorkDir()
	if err != nil {
		return "", fmt.Errorf("resolving work directory: %w", err)
	}
	return filepath.Join(workDir, name+"-"+version), nil
}

// CreateReportDir ensures <work_dir>/reports exists and returns it.
func (c *ConfigHelpers) CreateReportDir() (string, error) {
	workDir, err := c.WorkDir()
	if err != nil {
		return "", fmt.Errorf("resolving work directory: %w", err)
	}
	dir := filepath.Join(workDir, "reports")
	return dir, createDirIfNotExists(dir)
}

func createDirIfNotExists(dir string) error {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return os.MkdirAll(dir, 0755)
	}
	return nil
}

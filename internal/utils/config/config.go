package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/open-edge-platform/lume-model/internal/config/validate"
	"sigs.k8s.io/yaml"
)

const (
	EnvLogLevel = "LUME_MODEL_LOG_LEVEL"
	EnvPython   = "LUME_MODEL_PYTHON"
	EnvWorkDir  = "LUME_MODEL_WORK_DIR"
	EnvWorkers  = "LUME_MODEL_WORKERS"

	DefaultConfigFile    = "lume-model.yml"
	DefaultImportCommand = `{{python}} -c "import {{module}}"`
)

// GlobalConfig holds the tool-wide settings shared by every command.
type GlobalConfig struct {
	Workers int           `json:"workers,omitempty" toml:"workers"`
	WorkDir string        `json:"work_dir,omitempty" toml:"work_dir"`
	TempDir string        `json:"temp_dir,omitempty" toml:"temp_dir"`
	Logging LoggingConfig `json:"logging,omitempty" toml:"logging"`
	Python  PythonConfig  `json:"python,omitempty" toml:"python"`
	Test    TestConfig    `json:"test,omitempty" toml:"test"`
}

type LoggingConfig struct {
	Level string `json:"level,omitempty" toml:"level"`
	File  string `json:"file,omitempty" toml:"file"`
}

// PythonConfig describes how the external setup script is invoked.
type PythonConfig struct {
	Interpreter string `json:"interpreter,omitempty" toml:"interpreter"`
	SetupScript string `json:"setup_script,omitempty" toml:"setup_script"`
}

type TestConfig struct {
	ImportCommand string `json:"import_command,omitempty" toml:"import_command"`
	Timeout       string `json:"timeout,omitempty" toml:"timeout"`
}

// DefaultGlobalConfig returns the configuration used when no file is given.
func DefaultGlobalConfig() *GlobalConfig {
	return &GlobalConfig{
		Workers: 4,
		WorkDir: "builds",
		Logging: LoggingConfig{Level: "info"},
		Python: PythonConfig{
			Interpreter: "python",
			SetupScript: "setup.py",
		},
		Test: TestConfig{
			ImportCommand: DefaultImportCommand,
			Timeout:       "10m",
		},
	}
}

var (
	globalMu     sync.RWMutex
	globalConfig = DefaultGlobalConfig()
)

// Global returns the active configuration.
func Global() *GlobalConfig {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalConfig
}

// SetGlobal replaces the active configuration.
func SetGlobal(cfg *GlobalConfig) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalConfig = cfg
}

// LoadGlobalConfig reads a YAML or TOML configuration file, fills unset
// fields with defaults, applies environment overrides and validates the
// result. An empty path yields the defaults plus overrides.
func LoadGlobalConfig(path string) (*GlobalConfig, error) {
	cfg := &GlobalConfig{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config load failed (%s): %w", path, err)
		}
		if err := parseConfig(path, data, cfg); err != nil {
			return nil, fmt.Errorf("config parse failed (%s): %w", path, err)
		}
	}

	cfg.applyDefaults()
	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func parseConfig(path string, data []byte, cfg *GlobalConfig) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		_, err := toml.Decode(string(data), cfg)
		return err
	case ".yml", ".yaml", ".json", "":
		return yaml.UnmarshalStrict(data, cfg)
	default:
		return fmt.Errorf("unsupported config format %q", filepath.Ext(path))
	}
}

func (c *GlobalConfig) applyDefaults() {
	def := DefaultGlobalConfig()
	if c.Workers == 0 {
		c.Workers = def.Workers
	}
	if c.WorkDir == "" {
		c.WorkDir = def.WorkDir
	}
	if c.Logging.Level == "" {
		c.Logging.Level = def.Logging.Level
	}
	if c.Python.Interpreter == "" {
		c.Python.Interpreter = def.Python.Interpreter
	}
	if c.Python.SetupScript == "" {
		c.Python.SetupScript = def.Python.SetupScript
	}
	if c.Test.ImportCommand == "" {
		c.Test.ImportCommand = def.Test.ImportCommand
	}
	if c.Test.Timeout == "" {
		c.Test.Timeout = def.Test.Timeout
	}
}

func (c *GlobalConfig) applyEnvOverrides() error {
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		c.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvPython)); v != "" {
		c.Python.Interpreter = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvWorkDir)); v != "" {
		c.WorkDir = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvWorkers)); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s value %q: %w", EnvWorkers, v, err)
		}
		c.Workers = n
	}
	return nil
}

// LoadDotEnv loads KEY=VALUE pairs from the given files into the process
// environment without overriding variables that are already set. Missing
// files are ignored.
func LoadDotEnv(files ...string) error {
	var existing []string
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	if err := godotenv.Load(existing...); err != nil {
		return fmt.Errorf("failed to load env file: %w", err)
	}
	return nil
}

// Validate checks the configuration against the embedded schema and
// verifies values the schema cannot express.
func (c *GlobalConfig) Validate() error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := validate.ValidateConfigJSON(data); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	if _, err := c.TestTimeout(); err != nil {
		return err
	}
	if !strings.Contains(c.Test.ImportCommand, "{{module}}") {
		return fmt.Errorf("test.import_command must contain {{module}}")
	}
	return nil
}

// TestTimeout parses the per-step test timeout.
func (c *GlobalConfig) TestTimeout() (time.Duration, error) {
	if c.Test.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Test.Timeout)
	if err != nil {
		return 0, fmt.Errorf("invalid test.timeout %q: %w", c.Test.Timeout, err)
	}
	return d, nil
}

package config

import (
	"fmt"
	"os"
	"strings"
)

// Template returns the default configuration file body for the given format.
func Template(format string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "yml", "yaml":
		return yamlTemplate, nil
	case "toml":
		return tomlTemplate, nil
	default:
		return "", fmt.Errorf("unknown config format: %s", format)
	}
}

// WriteTemplate writes the default configuration to path. Existing files are
// kept unless overwrite is set.
func WriteTemplate(path, format string, overwrite bool) error {
	template, err := Template(format)
	if err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(template), 0o644)
}

const yamlTemplate = `workers: 4
work_dir: builds
temp_dir: ""
logging:
  level: info
  file: ""
python:
  interpreter: python
  setup_script: setup.py
test:
  import_command: '{{python}} -c "import {{module}}"'
  timeout: 10m
`

const tomlTemplate = `workers = 4
work_dir = "builds"
temp_dir = ""

[logging]
level = "info"
file = ""

[python]
interpreter = "python"
setup_script = "setup.py"

[test]
import_command = '{{python}} -c "import {{module}}"'
timeout = "10m"
`

package config

import (
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// LoadConfig loads configuration from a YAML file with environment variable
// support. Placeholders of the form ${VAR} or ${VAR:default} are resolved
// before unmarshalling.
func LoadConfig(filename string) (*APIServerConfig, string, error) {
	// Load .env file if exists
	_ = godotenv.Load()

	cfgPath := resolvePath(filename)
	data, err := os.ReadFile(cfgPath)
	if err != nil {
		return nil, cfgPath, err
	}

	data = resolveEnv(data)
	var cfg APIServerConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, cfgPath, err
	}

	setDefaults(&cfg)
	return &cfg, cfgPath, nil
}

func setDefaults(cfg *APIServerConfig) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 5353
	}
	if cfg.JWT.Duration <= 0 {
		cfg.JWT.Duration = 24 * time.Hour
	}
	if cfg.Session.Type == "" {
		cfg.Session.Type = "memory"
	}
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = "console"
	}
}

// resolvePath returns the path to the configuration file.
//
// Priority:
// 1. If filename is an absolute path, return it directly.
// 2. Check ./{filename} and ./configs/{filename}
// 3. Otherwise, fall back to /etc/console/{filename}
func resolvePath(filename string) string {
	if filepath.IsAbs(filename) {
		return filename
	}

	cwd, err := os.Getwd()
	if err == nil && cwd != "" {
		for _, candidate := range []string{
			filepath.Join(cwd, filename),
			filepath.Join(cwd, "configs", filename),
		} {
			if _, err := os.Stat(candidate); err == nil {
				return candidate
			}
		}
	}

	return filepath.Join("/etc/console", filename)
}

// resolveEnv replaces environment variable placeholders in YAML content
func resolveEnv(content []byte) []byte {
	regex := regexp.MustCompile(`\$\{(\w+)(?::([^}]*))?\}`)

	return regex.ReplaceAllFunc(content, func(match []byte) []byte {
		matches := regex.FindSubmatch(match)
		envKey := string(matches[1])
		var defaultValue string

		if len(matches) > 2 {
			defaultValue = string(matches[2])
		}

		if value, exists := os.LookupEnv(envKey); exists {
			return []byte(value)
		}
		return []byte(defaultValue)
	})
}

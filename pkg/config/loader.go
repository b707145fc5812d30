package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load reads a YAML configuration file over the defaults, substituting
// ${VAR_NAME} references with environment variable values before parsing.
func Load(filePath string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filePath) //nolint:gosec // G304: path is controlled by the caller
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	content := substituteEnvVars(string(data))

	if err := yaml.Unmarshal([]byte(content), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	return cfg, nil
}

// FromEnv builds a configuration from well-known environment variables.
// This is the process-boundary fallback when no config file is given.
func FromEnv() *Config {
	cfg := Default()
	cfg.Notion.APIKey = os.Getenv("NOTION_API_KEY")
	cfg.Notion.DatabaseID = os.Getenv("NOTION_DATABASE_ID")
	cfg.Postgres.ConnectionString = os.Getenv("DATABASE_URL")
	if table := os.Getenv("SYNC_TABLE"); table != "" {
		cfg.Postgres.Table = table
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}
	return cfg
}

// substituteEnvVars replaces ${VAR_NAME} with environment variable values
func substituteEnvVars(content string) string {
	for {
		start := strings.Index(content, "${")
		if start == -1 {
			break
		}
		end := strings.Index(content[start:], "}")
		if end == -1 {
			break
		}
		end += start

		varName := content[start+2 : end]
		envValue := os.Getenv(varName)
		content = content[:start] + envValue + content[end+1:]
	}
	return content
}

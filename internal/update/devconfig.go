package update

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultDevConfigPath is where a development build looks for its feed
const DefaultDevConfigPath = "dev-app-update.yml"

// LoadDevConfig reads a dev-app-update.yml file. It uses the same keys as a
// production publish config.
func LoadDevConfig(path string) (*FeedConfig, error) {
	if path == "" {
		path = DefaultDevConfigPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read dev update config: %w", err)
	}

	cfg, err := ParseDevConfig(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// ParseDevConfig decodes and validates dev-app-update.yml content
func ParseDevConfig(data []byte) (*FeedConfig, error) {
	var cfg FeedConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse dev update config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid dev update config: %w", err)
	}

	return &cfg, nil
}

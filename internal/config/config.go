// Package config handles glint config file location and parsing.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/adamancini/glint/internal/types"
	"github.com/adamancini/glint/internal/update"
)

// Defaults for a config without the corresponding keys
const (
	DefaultAppName   = "glint"
	DefaultListen    = "127.0.0.1:7437"
	DefaultLogLevel  = "info"
	DefaultLogFile   = "console"
	DefaultFeedOwner = "adamancini"
	DefaultFeedRepo  = "glint"
)

// EnvConfigPath names the environment variable holding a config path
const EnvConfigPath = "GLINT_CONFIG"

// Config is the parsed glint configuration file
type Config struct {
	App     App     `yaml:"app" toml:"app" json:"app"`
	Feed    Feed    `yaml:"feed" toml:"feed" json:"feed"`
	Updater Updater `yaml:"updater" toml:"updater" json:"updater"`
	Server  Server  `yaml:"server" toml:"server" json:"server"`
	Log     Log     `yaml:"log" toml:"log" json:"log"`
}

// App describes the host application
type App struct {
	Name string `yaml:"name" toml:"name" json:"name"`
	// Packaged overrides release build detection when set
	Packaged *bool `yaml:"packaged,omitempty" toml:"packaged,omitempty" json:"packaged,omitempty"`
}

// Feed says where releases are published
type Feed struct {
	Provider        types.FeedProvider `yaml:"provider" toml:"provider" json:"provider"`
	Owner           string             `yaml:"owner,omitempty" toml:"owner,omitempty" json:"owner,omitempty"`
	Repo            string             `yaml:"repo,omitempty" toml:"repo,omitempty" json:"repo,omitempty"`
	URL             string             `yaml:"url,omitempty" toml:"url,omitempty" json:"url,omitempty"`
	Token           string             `yaml:"token,omitempty" toml:"token,omitempty" json:"token,omitempty"`
	AllowPrerelease bool               `yaml:"allow_prerelease,omitempty" toml:"allow_prerelease,omitempty" json:"allow_prerelease,omitempty"`
}

// FeedConfig converts the section into the updater's feed settings
func (f Feed) FeedConfig() update.FeedConfig {
	return update.FeedConfig{
		Provider:        f.Provider,
		Owner:           f.Owner,
		Repo:            f.Repo,
		URL:             f.URL,
		Token:           f.Token,
		AllowPrerelease: f.AllowPrerelease,
	}
}

// Updater holds download and install behaviour
type Updater struct {
	AutoDownload         bool   `yaml:"auto_download" toml:"auto_download" json:"auto_download"`
	AutoInstallOnAppQuit bool   `yaml:"auto_install_on_app_quit" toml:"auto_install_on_app_quit" json:"auto_install_on_app_quit"`
	DevConfigPath        string `yaml:"dev_config_path,omitempty" toml:"dev_config_path,omitempty" json:"dev_config_path,omitempty"`
	DownloadDir          string `yaml:"download_dir,omitempty" toml:"download_dir,omitempty" json:"download_dir,omitempty"`
}

// Server configures the UI bridge
type Server struct {
	Listen         string   `yaml:"listen" toml:"listen" json:"listen"`
	AllowedOrigins []string `yaml:"allowed_origins,omitempty" toml:"allowed_origins,omitempty" json:"allowed_origins,omitempty"`
	QueueSize      int      `yaml:"queue_size,omitempty" toml:"queue_size,omitempty" json:"queue_size,omitempty"`
}

// Log configures logging
type Log struct {
	Level string `yaml:"level" toml:"level" json:"level"`
	File  string `yaml:"file" toml:"file" json:"file"`
}

// Default returns the configuration used when no file is found
func Default() *Config {
	return &Config{
		App: App{Name: DefaultAppName},
		Feed: Feed{
			Provider: types.FeedProviderGitHub,
			Owner:    DefaultFeedOwner,
			Repo:     DefaultFeedRepo,
		},
		Updater: Updater{
			AutoInstallOnAppQuit: true,
			DevConfigPath:        update.DefaultDevConfigPath,
		},
		Server: Server{Listen: DefaultListen},
		Log:    Log{Level: DefaultLogLevel, File: DefaultLogFile},
	}
}

// fileNames are tried in each search directory, in order
var fileNames = []string{
	"config.yaml",
	"config.yml",
	"config.toml",
	"config.json",
}

// Find searches for a config file in the standard locations. It returns an
// empty path without error when there is none.
func Find(explicitPath string) (string, error) {
	if explicitPath != "" {
		if _, err := os.Stat(explicitPath); err != nil {
			return "", fmt.Errorf("specified config file not found: %s", explicitPath)
		}
		return explicitPath, nil
	}

	// Check GLINT_CONFIG environment variable
	if envPath := os.Getenv(EnvConfigPath); envPath != "" {
		if _, err := os.Stat(envPath); err != nil {
			return "", fmt.Errorf("%s points at a missing file: %s", EnvConfigPath, envPath)
		}
		return envPath, nil
	}

	for _, dir := range searchDirs() {
		for _, name := range fileNames {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil {
				return path, nil
			}
		}
	}

	return "", nil
}

// searchDirs lists the config directories in order of precedence
func searchDirs() []string {
	var dirs []string

	home, err := os.UserHomeDir()

	// XDG_CONFIG_HOME or default
	xdgConfig := os.Getenv("XDG_CONFIG_HOME")
	if xdgConfig == "" && err == nil {
		xdgConfig = filepath.Join(home, ".config")
	}
	if xdgConfig != "" {
		dirs = append(dirs, filepath.Join(xdgConfig, "glint"))
	}

	// ~/.glint
	if err == nil {
		dirs = append(dirs, filepath.Join(home, ".glint"))
	}

	return dirs
}

// Load reads, parses and validates the config at path
func Load(path string) (*Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	return Parse(content, path)
}

// Parse decodes and validates content as if it had been read from path
func Parse(content []byte, path string) (*Config, error) {
	format := detectFormat(path, content)
	if format == FormatUnknown {
		return nil, fmt.Errorf("unable to detect file format for %s", path)
	}

	cfg, err := parse(content, format)
	if err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Resolve finds and loads the config, falling back to defaults when no file
// exists. It returns the path that was loaded, if any.
func Resolve(explicitPath string) (*Config, string, error) {
	path, err := Find(explicitPath)
	if err != nil {
		return nil, "", err
	}
	if path == "" {
		return Default(), "", nil
	}

	cfg, err := Load(path)
	if err != nil {
		return nil, path, err
	}
	return cfg, path, nil
}

// IsPackaged reports whether the app should behave as a release build
func (c *Config) IsPackaged(detected bool) bool {
	if c.App.Packaged != nil {
		return *c.App.Packaged
	}
	return detected
}

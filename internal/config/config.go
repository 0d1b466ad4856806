// ABOUTME: Configuration management for tern with YAML loading and env overrides.
// ABOUTME: Handles OAuth client credentials, propagation URLs, and pacing bounds.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/2389-research/tern/internal/models"
)

// Config stores tern configuration loaded from ~/.config/tern/config.yaml,
// overridden by environment variables (optionally from a .env file).
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Twitter     TwitterConfig     `yaml:"twitter"`
	Propagation PropagationConfig `yaml:"propagation"`
	Pacing      PacingConfig      `yaml:"pacing"`
	History     HistoryConfig     `yaml:"history"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

// TwitterConfig holds platform OAuth and endpoint settings. The credential
// fields act as the fallback identity for stdio mode; in HTTP mode callers
// supply their own per request.
type TwitterConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	RefreshToken string `yaml:"refresh_token"`
	UserID       string `yaml:"user_id"`
	ServerID     string `yaml:"server_id"`
	APIBaseURL   string `yaml:"api_base_url"`
	UploadURL    string `yaml:"upload_url"`
	TokenURL     string `yaml:"token_url"`
}

// PropagationConfig pins the refresh-token propagation endpoints.
type PropagationConfig struct {
	UpdateConfigURL    string `yaml:"update_config_url"`
	UpdateConfigDevURL string `yaml:"update_config_dev_url"`
}

// PacingConfig bounds the randomized post-send cool-down.
type PacingConfig struct {
	MinDelaySeconds int `yaml:"min_delay_seconds"`
	MaxDelaySeconds int `yaml:"max_delay_seconds"`
}

// HistoryConfig holds the optional path override for the local post history.
type HistoryConfig struct {
	Path string `yaml:"path"`
}

// FallbackCaller builds the process-configured caller identity, or nil when
// no credentials are configured.
func (c *Config) FallbackCaller() *models.CallerContext {
	if c.Twitter.ClientID == "" && c.Twitter.RefreshToken == "" {
		return nil
	}
	return &models.CallerContext{
		UserID:          c.Twitter.UserID,
		ServerID:        c.Twitter.ServerID,
		ClientID:        c.Twitter.ClientID,
		ClientSecret:    c.Twitter.ClientSecret,
		RefreshToken:    c.Twitter.RefreshToken,
		UpdateConfigURL: c.Propagation.UpdateConfigURL,
	}
}

// GetHistoryPath returns the post history directory, defaulting under
// XDG_DATA_HOME.
func (c *Config) GetHistoryPath() (string, error) {
	if c.History.Path != "" {
		return ExpandPath(c.History.Path)
	}
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataDir, "tern", "history"), nil
}

// GetConfigPath returns the config file path.
func GetConfigPath() (string, error) {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, ".config")
	}
	return filepath.Join(configDir, "tern", "config.yaml"), nil
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	if path == "~" || len(path) >= 2 && path[:2] == "~/" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		if path == "~" {
			return home, nil
		}
		return filepath.Join(home, path[2:]), nil
	}
	return path, nil
}

// Load reads config from disk, applies defaults, then environment overrides.
// A missing config file is not an error.
func Load() (*Config, error) {
	// A .env file in the working directory augments the environment.
	_ = godotenv.Load()

	cfg := &Config{}
	path, err := GetConfigPath()
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() {
	setIfEnv(&c.Server.ListenAddr, "TERN_LISTEN_ADDR")
	setIfEnv(&c.Twitter.ClientID, "TWITTER_CLIENT_ID")
	setIfEnv(&c.Twitter.ClientSecret, "TWITTER_CLIENT_SECRET")
	setIfEnv(&c.Twitter.RefreshToken, "TWITTER_REFRESH_TOKEN")
	setIfEnv(&c.Twitter.UserID, "TERN_USER_ID")
	setIfEnv(&c.Twitter.ServerID, "TERN_SERVER_ID")
	setIfEnv(&c.Twitter.APIBaseURL, "TWITTER_API_BASE_URL")
	setIfEnv(&c.Twitter.UploadURL, "TWITTER_UPLOAD_URL")
	setIfEnv(&c.Twitter.TokenURL, "TWITTER_TOKEN_URL")
	setIfEnv(&c.Propagation.UpdateConfigURL, "UPDATE_CONFIG_URL")
	setIfEnv(&c.Propagation.UpdateConfigDevURL, "UPDATE_CONFIG_URL_DEV")
	setIntIfEnv(&c.Pacing.MinDelaySeconds, "TERN_MIN_DELAY_SECONDS")
	setIntIfEnv(&c.Pacing.MaxDelaySeconds, "TERN_MAX_DELAY_SECONDS")
	setIfEnv(&c.History.Path, "TERN_HISTORY_DIR")
}

func (c *Config) applyDefaults() {
	if c.Server.ListenAddr == "" {
		c.Server.ListenAddr = ":8090"
	}
	if c.Pacing.MinDelaySeconds <= 0 {
		c.Pacing.MinDelaySeconds = 1
	}
	if c.Pacing.MaxDelaySeconds <= 0 {
		c.Pacing.MaxDelaySeconds = 5
	}
	if c.Pacing.MaxDelaySeconds < c.Pacing.MinDelaySeconds {
		c.Pacing.MaxDelaySeconds = c.Pacing.MinDelaySeconds
	}
}

func setIfEnv(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setIntIfEnv(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

// Save writes config to disk.
func (c *Config) Save() error {
	path, err := GetConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

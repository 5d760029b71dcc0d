package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/wszrw123/xiaohongshu-automation/internal/locator"
)

const appDirName = "xhs-auto"

// Config holds all application configuration.
type Config struct {
	Version   int                          `json:"version"`
	Schedule  ScheduleConfig               `json:"schedule"`
	Browser   BrowserConfig                `json:"browser"`
	Publish   PublishConfig                `json:"publish"`
	Email     EmailConfig                  `json:"email"`
	Selectors map[string][]locator.Pattern `json:"selectors,omitempty"`
}

type ScheduleConfig struct {
	// Daily publish times as "HH:MM" strings, in priority order.
	PostTimes []string `json:"post_times"`
	Timezone  string   `json:"timezone"`
	// Content JSON consumed by scheduled runs.
	ContentFile string `json:"content_file"`
}

type BrowserConfig struct {
	Headless bool `json:"headless"`
	// Override for the persistent profile directory. Empty means the
	// default under the config dir.
	ProfileDir string `json:"profile_dir,omitempty"`
}

type PublishConfig struct {
	MaxAttempts         int    `json:"max_attempts"`
	RetryDelaySeconds   int    `json:"retry_delay_seconds"`
	LoginTimeoutSeconds int    `json:"login_timeout_seconds"`
	DefaultCover        string `json:"default_cover"`
}

type EmailConfig struct {
	Enabled  bool   `json:"enabled"`
	SMTPHost string `json:"smtp_host"`
	SMTPPort int    `json:"smtp_port"`
	SMTPUser string `json:"smtp_user"`
	SMTPPass string `json:"smtp_pass"`
	FromAddr string `json:"from_address"`
	ToAddr   string `json:"to_address"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Version: 1,
		Schedule: ScheduleConfig{
			PostTimes: []string{"08:00", "20:00"},
			Timezone:  "Local",
		},
		Browser: BrowserConfig{
			Headless: false,
		},
		Publish: PublishConfig{
			MaxAttempts:         3,
			RetryDelaySeconds:   5,
			LoginTimeoutSeconds: 300,
		},
		Email: EmailConfig{
			SMTPPort: 587,
		},
	}
}

// ConfigDir returns the platform-appropriate config directory.
func ConfigDir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, appDirName), nil
}

// ConfigPath returns the full path to the config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// CacheDir returns the platform-appropriate cache directory, which holds
// reports, saved content and screenshots.
func CacheDir() (string, error) {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cacheDir, appDirName), nil
}

// Load reads config from the default location.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFile(path)
}

// LoadFile reads config from an explicit path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes config to the default location.
func (c *Config) Save() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}

	path, err := ConfigPath()
	if err != nil {
		return err
	}

	return c.SaveFile(path)
}

// SaveFile writes config to an explicit path.
func (c *Config) SaveFile(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

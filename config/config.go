// Package config loads and saves the GROBI settings file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the persisted application state. It is read once at startup
// and written back explicitly; the update engine never sees it.
type Config struct {
	DataCite  DataCite  `yaml:"datacite"`
	Database  Database  `yaml:"database"`
	Splitter  Splitter  `yaml:"splitter"`
	LinkCheck LinkCheck `yaml:"link_check"`

	// LastAccount is the id of the account used most recently
	LastAccount string `yaml:"last_account,omitempty"`

	// Theme is carried over from the desktop client and otherwise unused
	Theme string `yaml:"theme,omitempty"`
}

// DataCite tunes the API client.
type DataCite struct {
	Timeout    time.Duration `yaml:"timeout"`
	PageSize   int           `yaml:"page_size"`
	RateLimit  float64       `yaml:"rate_limit"`
	RateBurst  int           `yaml:"rate_burst"`
	Retries    int           `yaml:"retries"`
	RetryDelay time.Duration `yaml:"retry_delay"`
}

// Database describes the SUMARIOPMD connection. The password is kept in
// the secret store under Host, Name and User.
type Database struct {
	Enabled bool   `yaml:"enabled"`
	Host    string `yaml:"host,omitempty"`
	Port    int    `yaml:"port,omitempty"`
	Name    string `yaml:"name,omitempty"`
	User    string `yaml:"user,omitempty"`
}

// Configured reports whether enough is known to connect.
func (d Database) Configured() bool {
	return d.Host != "" && d.Name != "" && d.User != ""
}

type Splitter struct {
	Level int `yaml:"level"`
}

type LinkCheck struct {
	Concurrency int           `yaml:"concurrency"`
	Timeout     time.Duration `yaml:"timeout"`
}

// Default returns the settings used when no file exists.
func Default() *Config {
	return &Config{
		DataCite: DataCite{
			Timeout:    30 * time.Second,
			PageSize:   100,
			RateLimit:  10,
			RateBurst:  5,
			Retries:    3,
			RetryDelay: time.Second,
		},
		Database:  Database{Port: 3306, Name: "sumario-pmd"},
		Splitter:  Splitter{Level: 2},
		LinkCheck: LinkCheck{Concurrency: 8, Timeout: 15 * time.Second},
		Theme:     "auto",
	}
}

// configDirOverride holds a user-specified configuration directory.
// When empty, the default $HOME/.grobi is used.
var configDirOverride string

// SetConfigDir overrides the default configuration directory.
func SetConfigDir(dir string) {
	configDirOverride = dir
}

// ConfigDir returns the GROBI configuration directory.
func ConfigDir() (string, error) {
	if configDirOverride != "" {
		return configDirOverride, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".grobi"), nil
}

// Path returns the settings file path.
func Path() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Load reads the settings file. A missing file yields the defaults; keys
// absent from the file keep their default values.
func Load() (*Config, error) {
	path, err := Path()
	if err != nil {
		return nil, err
	}
	return LoadFile(path)
}

// LoadFile reads settings from path.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Splitter.Level < 1 || c.Splitter.Level > 4 {
		return fmt.Errorf("splitter.level must be between 1 and 4, got %d", c.Splitter.Level)
	}
	if c.DataCite.PageSize < 1 || c.DataCite.PageSize > 1000 {
		return fmt.Errorf("datacite.page_size must be between 1 and 1000, got %d", c.DataCite.PageSize)
	}
	if c.LinkCheck.Concurrency < 1 {
		return fmt.Errorf("link_check.concurrency must be positive, got %d", c.LinkCheck.Concurrency)
	}
	return nil
}

// ForgetAccount clears LastAccount when it refers to the account with the
// given id or display name. It reports whether anything changed.
func (c *Config) ForgetAccount(id, displayName string) bool {
	if c.LastAccount == "" || (c.LastAccount != id && !strings.EqualFold(c.LastAccount, displayName)) {
		return false
	}
	c.LastAccount = ""
	return true
}

// Save writes the settings file, creating the directory if needed.
func (c *Config) Save() error {
	path, err := Path()
	if err != nil {
		return err
	}
	return c.SaveFile(path)
}

// SaveFile writes the settings to path.
func (c *Config) SaveFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Package config loads extractor settings from defaults, an optional YAML
// file and BFSA_* environment variables. The bearer token is never part of
// the configuration; it is prompted for and passed explicitly.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	DefaultBaseURL   = "https://epord.bfsa.bg"
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
	DefaultLabel     = "Събития"

	PolicyLenient = "lenient"
	PolicyStrict  = "strict"
)

type Config struct {
	BaseURL        string        `yaml:"base_url" mapstructure:"base_url"`
	UserAgent      string        `yaml:"user_agent" mapstructure:"user_agent"`
	Timeout        time.Duration `yaml:"timeout" mapstructure:"timeout"`
	BatchDays      int           `yaml:"batch_days" mapstructure:"batch_days"`
	BatchDelay     time.Duration `yaml:"batch_delay" mapstructure:"batch_delay"`
	PageSize       int           `yaml:"page_size" mapstructure:"page_size"`
	OutputDir      string        `yaml:"output_dir" mapstructure:"output_dir"`
	FileLabel      string        `yaml:"file_label" mapstructure:"file_label"`
	SheetName      string        `yaml:"sheet_name" mapstructure:"sheet_name"`
	MaxColumnWidth int           `yaml:"max_column_width" mapstructure:"max_column_width"`
	FailurePolicy  string        `yaml:"failure_policy" mapstructure:"failure_policy"`
	Timezone       string        `yaml:"timezone" mapstructure:"timezone"`
	Log            LogConfig     `yaml:"log" mapstructure:"log"`
	path           string
}

type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

func Default() *Config {
	return &Config{
		BaseURL:        DefaultBaseURL,
		UserAgent:      DefaultUserAgent,
		Timeout:        60 * time.Second,
		BatchDays:      60,
		BatchDelay:     time.Second,
		PageSize:       1000,
		OutputDir:      ".",
		FileLabel:      DefaultLabel,
		SheetName:      DefaultLabel,
		MaxColumnWidth: 50,
		FailurePolicy:  PolicyLenient,
		Timezone:       "Local",
		Log: LogConfig{
			Level:  "warn",
			Format: "console",
		},
	}
}

// Load reads cfgFile if given, otherwise ./bfsa.yaml or $HOME/.bfsa/config.yaml
// when present. A missing file is not an error.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	def := Default()
	v.SetDefault("base_url", def.BaseURL)
	v.SetDefault("user_agent", def.UserAgent)
	v.SetDefault("timeout", def.Timeout)
	v.SetDefault("batch_days", def.BatchDays)
	v.SetDefault("batch_delay", def.BatchDelay)
	v.SetDefault("page_size", def.PageSize)
	v.SetDefault("output_dir", def.OutputDir)
	v.SetDefault("file_label", def.FileLabel)
	v.SetDefault("sheet_name", def.SheetName)
	v.SetDefault("max_column_width", def.MaxColumnWidth)
	v.SetDefault("failure_policy", def.FailurePolicy)
	v.SetDefault("timezone", def.Timezone)
	v.SetDefault("log.level", def.Log.Level)
	v.SetDefault("log.format", def.Log.Format)

	path := cfgFile
	if path == "" {
		path = findConfigFile()
	}

	v.SetEnvPrefix("BFSA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	cfg := Default()
	cfg.path = path
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func findConfigFile() string {
	candidates := []string{"bfsa.yaml"}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".bfsa", "config.yaml"))
	}
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c
		}
	}
	return ""
}

// Validate checks the values the extractor cannot work around.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.BaseURL) == "" {
		return errors.New("base_url must not be empty")
	}
	if c.BatchDays < 1 {
		return fmt.Errorf("batch_days must be at least 1, got %d", c.BatchDays)
	}
	if c.PageSize < 1 {
		return fmt.Errorf("page_size must be at least 1, got %d", c.PageSize)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	if c.BatchDelay < 0 {
		return fmt.Errorf("batch_delay must not be negative, got %s", c.BatchDelay)
	}
	if c.MaxColumnWidth < 1 {
		return fmt.Errorf("max_column_width must be at least 1, got %d", c.MaxColumnWidth)
	}
	switch c.FailurePolicy {
	case PolicyLenient, PolicyStrict:
	default:
		return fmt.Errorf("failure_policy must be %q or %q, got %q", PolicyLenient, PolicyStrict, c.FailurePolicy)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location resolves Timezone. "Local" and "" mean the machine's zone.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// Path returns the file the config was loaded from, if any.
func (c *Config) Path() string { return c.path }

// SaveAs writes the config as YAML to path.
func (c *Config) SaveAs(path string) error {
	c.path = path
	return c.Save()
}

func (c *Config) Save() error {
	if c.path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return err
		}
		c.path = filepath.Join(home, ".bfsa", "config.yaml")
	}

	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(c.path, data, 0600)
}

package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const dateLayout = "2006-01-02"

type Config struct {
	Subreddit   string         `yaml:"subreddit"`
	DownloadDir string         `yaml:"download_dir"`
	Dates       DatesConfig    `yaml:"dates"`
	API         APIConfig      `yaml:"api"`
	Download    DownloadConfig `yaml:"download"`
	LogLevel    string         `yaml:"log_level"`
}

// DatesConfig bounds the query window. Both sides are optional,
// inclusive, and given as YYYY-MM-DD.
type DatesConfig struct {
	After  string `yaml:"after"`
	Before string `yaml:"before"`
}

// Window parses the configured bounds. Before covers the whole named day.
func (d DatesConfig) Window() (after, before time.Time, err error) {
	if d.After != "" {
		after, err = time.Parse(dateLayout, d.After)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("parse dates.after %q: use YYYY-MM-DD: %w", d.After, err)
		}
	}
	if d.Before != "" {
		before, err = time.Parse(dateLayout, d.Before)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("parse dates.before %q: use YYYY-MM-DD: %w", d.Before, err)
		}
		before = before.Add(24*time.Hour - time.Second)
	}
	return after, before, nil
}

type APIConfig struct {
	BaseURL           string        `yaml:"base_url"`
	PageSize          int           `yaml:"page_size"`
	MaxPages          int           `yaml:"max_pages"`
	Timeout           time.Duration `yaml:"timeout"`
	RateLimitInterval time.Duration `yaml:"rate_limit_interval"`
	Retry             RetryConfig   `yaml:"retry"`
}

type RetryConfig struct {
	MaxAttempts    int           `yaml:"max_attempts"`
	InitialBackoff time.Duration `yaml:"initial_backoff"`
	MaxBackoff     time.Duration `yaml:"max_backoff"`
}

type DownloadConfig struct {
	MaxConcurrent int           `yaml:"max_concurrent"`
	Timeout       time.Duration `yaml:"timeout"`
	Retry         RetryConfig   `yaml:"retry"`
}

func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.setDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) setDefaults() {
	if c.API.BaseURL == "" {
		c.API.BaseURL = "https://api.pushshift.io/reddit/search/submission"
	}
	if c.API.PageSize == 0 {
		c.API.PageSize = 100
	}
	if c.API.Timeout == 0 {
		c.API.Timeout = 30 * time.Second
	}
	if c.API.RateLimitInterval == 0 {
		c.API.RateLimitInterval = 1 * time.Second
	}
	if c.API.Retry.MaxAttempts == 0 {
		c.API.Retry.MaxAttempts = 5
	}
	if c.API.Retry.InitialBackoff == 0 {
		c.API.Retry.InitialBackoff = 1 * time.Second
	}
	if c.API.Retry.MaxBackoff == 0 {
		c.API.Retry.MaxBackoff = 30 * time.Second
	}
	if c.Download.MaxConcurrent == 0 {
		c.Download.MaxConcurrent = 10
	}
	if c.Download.Timeout == 0 {
		c.Download.Timeout = 5 * time.Minute
	}
	if c.Download.Retry.MaxAttempts == 0 {
		c.Download.Retry.MaxAttempts = 5
	}
	if c.Download.Retry.InitialBackoff == 0 {
		c.Download.Retry.InitialBackoff = 2 * time.Second
	}
	if c.Download.Retry.MaxBackoff == 0 {
		c.Download.Retry.MaxBackoff = 30 * time.Second
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

func (c *Config) Validate() error {
	if c.Subreddit == "" {
		return fmt.Errorf("subreddit is required")
	}
	if c.DownloadDir == "" {
		return fmt.Errorf("download_dir is required")
	}

	after, before, err := c.Dates.Window()
	if err != nil {
		return err
	}
	if !after.IsZero() && !before.IsZero() && after.After(before) {
		return fmt.Errorf("dates.after (%s) must not be later than dates.before (%s)", c.Dates.After, c.Dates.Before)
	}

	return nil
}

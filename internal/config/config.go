package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

type Config struct {
	Tracker TrackerConfig `toml:"tracker"`
	Cache   CacheConfig   `toml:"cache"`
	Logging LoggingConfig `toml:"logging"`
	Fields  FieldsConfig  `toml:"fields"`
	Keys    KeyConfig     `toml:"keys"`
}

type TrackerConfig struct {
	BaseURL        string `toml:"base_url"`
	TokenEnv       string `toml:"token_env"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

type CacheConfig struct {
	Path              string `toml:"path"`
	OptionsTTLMinutes int    `toml:"options_ttl_minutes"`
	RecentLimit       int    `toml:"recent_limit"`
}

type LoggingConfig struct {
	Level string `toml:"level"` // debug | info | warn | error
}

type FieldsConfig struct {
	ShowLinks    bool `toml:"show_links"`
	ShowComments bool `toml:"show_comments"`
}

type KeyConfig struct {
	FieldEdit     string `toml:"field_edit"`
	Yank          string `toml:"yank"`
	IssueSwitcher string `toml:"issue_switcher"`
	Refresh       string `toml:"refresh"`
}

func Default(cachePath string) Config {
	return Config{
		Tracker: TrackerConfig{
			BaseURL:        "http://127.0.0.1:7337",
			TokenEnv:       "PEJL_TRACKER_TOKEN",
			TimeoutSeconds: 10,
		},
		Cache: CacheConfig{
			Path:              cachePath,
			OptionsTTLMinutes: 15,
			RecentLimit:       20,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Fields: FieldsConfig{
			ShowLinks:    true,
			ShowComments: true,
		},
		Keys: KeyConfig{
			FieldEdit:     "e",
			Yank:          "y",
			IssueSwitcher: "o",
			Refresh:       "r",
		},
	}
}

func Load(path string, defaults Config) (Config, error) {
	cfg := defaults
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if len(content) == 0 {
		return cfg, nil
	}

	if err := toml.Unmarshal(content, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode toml: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) Validate() error {
	baseURL := strings.TrimSpace(c.Tracker.BaseURL)
	if baseURL == "" {
		return errors.New("tracker base_url is required")
	}
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		return fmt.Errorf("invalid tracker.base_url: %q", c.Tracker.BaseURL)
	}
	if c.Tracker.TimeoutSeconds < 0 {
		return errors.New("tracker.timeout_seconds must be >= 0")
	}

	if strings.TrimSpace(c.Cache.Path) == "" {
		return errors.New("cache path is required")
	}
	if c.Cache.OptionsTTLMinutes < 0 {
		return errors.New("cache.options_ttl_minutes must be >= 0")
	}
	if c.Cache.RecentLimit < 0 {
		return errors.New("cache.recent_limit must be >= 0")
	}

	switch strings.TrimSpace(strings.ToLower(c.Logging.Level)) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid logging.level: %q", c.Logging.Level)
	}

	keys := map[string]string{
		"keys.field_edit":     c.Keys.FieldEdit,
		"keys.yank":           c.Keys.Yank,
		"keys.issue_switcher": c.Keys.IssueSwitcher,
		"keys.refresh":        c.Keys.Refresh,
	}
	seen := map[string]string{}
	for name, key := range keys {
		if key == "" {
			continue
		}
		if len([]rune(key)) != 1 {
			return fmt.Errorf("%s must be a single character, got %q", name, key)
		}
		if prev, ok := seen[key]; ok {
			return fmt.Errorf("%s duplicates %s binding %q", name, prev, key)
		}
		seen[key] = name
	}

	return nil
}

func EnsureConfigDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

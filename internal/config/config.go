package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config holds everything tern needs to reach the monitoring API.
type Config struct {
	APIURL                string
	Token                 string
	RefreshInterval       time.Duration
	OperationPollInterval time.Duration
	OperationPollAttempts int
	PageSize              int
	MaxItems              int
	LogFile               string
	LogLevel              string

	// Path is the resolved config location, whether or not it exists.
	Path string
}

const (
	defaultConfigPath            = "~/.config/tern/config.toml"
	defaultAPIURL                = "http://127.0.0.1:8080"
	defaultRefreshInterval       = 5 * time.Second
	defaultOperationPollInterval = 5 * time.Second
	defaultOperationPollAttempts = 3
	defaultPageSize              = 50
	defaultMaxItems              = 200
	defaultLogFile               = "~/.local/state/tern/tern.log"
	defaultLogLevel              = "info"

	envAPIURL = "TERN_API_URL"
	envToken  = "TERN_TOKEN"
)

type rawConfig struct {
	APIURL                string `toml:"api_url" yaml:"api_url"`
	Token                 string `toml:"token" yaml:"token"`
	RefreshInterval       string `toml:"refresh_interval" yaml:"refresh_interval"`
	OperationPollInterval string `toml:"operation_poll_interval" yaml:"operation_poll_interval"`
	OperationPollAttempts int    `toml:"operation_poll_attempts" yaml:"operation_poll_attempts"`
	PageSize              int    `toml:"page_size" yaml:"page_size"`
	MaxItems              int    `toml:"max_items" yaml:"max_items"`
	LogFile               string `toml:"log_file" yaml:"log_file"`
	LogLevel              string `toml:"log_level" yaml:"log_level"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		APIURL:                defaultAPIURL,
		RefreshInterval:       defaultRefreshInterval,
		OperationPollInterval: defaultOperationPollInterval,
		OperationPollAttempts: defaultOperationPollAttempts,
		PageSize:              defaultPageSize,
		MaxItems:              defaultMaxItems,
		LogFile:               mustExpand(defaultLogFile),
		LogLevel:              defaultLogLevel,
	}
}

// Load locates and parses the tern config, falling back to defaults when missing.
// TERN_API_URL and TERN_TOKEN override the file; a .env file next to the
// config supplies them when the process environment does not.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Default()
	cfg.Path = resolved

	raw, err := readRaw(resolved)
	if err != nil {
		return Config{}, err
	}
	if raw != nil {
		if err := apply(&cfg, *raw); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
	}

	dotenv, err := readDotenv(filepath.Join(filepath.Dir(resolved), ".env"))
	if err != nil {
		return Config{}, err
	}
	if v := lookupEnv(envAPIURL, dotenv); v != "" {
		cfg.APIURL = v
	}
	if v := lookupEnv(envToken, dotenv); v != "" {
		cfg.Token = v
	}

	return cfg, nil
}

func readRaw(path string) (*rawConfig, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var raw rawConfig
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &raw)
	default:
		err = toml.Unmarshal(data, &raw)
	}
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &raw, nil
}

func apply(cfg *Config, raw rawConfig) error {
	if v := strings.TrimSpace(raw.APIURL); v != "" {
		cfg.APIURL = v
	}
	cfg.Token = strings.TrimSpace(raw.Token)

	var err error
	if cfg.RefreshInterval, err = parseDuration("refresh_interval", raw.RefreshInterval, cfg.RefreshInterval); err != nil {
		return err
	}
	if cfg.OperationPollInterval, err = parseDuration("operation_poll_interval", raw.OperationPollInterval, cfg.OperationPollInterval); err != nil {
		return err
	}

	if cfg.OperationPollAttempts, err = positive("operation_poll_attempts", raw.OperationPollAttempts, cfg.OperationPollAttempts); err != nil {
		return err
	}
	if cfg.PageSize, err = positive("page_size", raw.PageSize, cfg.PageSize); err != nil {
		return err
	}
	if cfg.MaxItems, err = positive("max_items", raw.MaxItems, cfg.MaxItems); err != nil {
		return err
	}
	if cfg.MaxItems < cfg.PageSize {
		return fmt.Errorf("max_items (%d) must be at least page_size (%d)", cfg.MaxItems, cfg.PageSize)
	}

	if v := strings.TrimSpace(raw.LogFile); v != "" {
		cfg.LogFile = mustExpand(v)
	}
	if v := strings.TrimSpace(raw.LogLevel); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}
	return nil
}

func parseDuration(field, raw string, fallback time.Duration) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", field, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %s", field, raw)
	}
	return d, nil
}

func positive(field string, v, fallback int) (int, error) {
	switch {
	case v == 0:
		return fallback, nil
	case v < 0:
		return 0, fmt.Errorf("%s must be positive, got %d", field, v)
	default:
		return v, nil
	}
}

func readDotenv(path string) (map[string]string, error) {
	env, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return env, nil
}

func lookupEnv(key string, dotenv map[string]string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return strings.TrimSpace(dotenv[key])
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}

package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is read when no config file is named explicitly.
const DefaultPath = "estimator.yaml"

// Config holds the client settings.
type Config struct {
	APIURL                string `yaml:"apiURL"`
	LogLevel              string `yaml:"logLevel"`
	LogFormat             string `yaml:"logFormat"`
	RequestTimeoutSeconds int    `yaml:"requestTimeoutSeconds"`
	// UploadConcurrency caps parallel PUTs; zero uploads every image at once.
	UploadConcurrency     int    `yaml:"uploadConcurrency"`
	CompletionToken       string `yaml:"completionToken"`
	EventName             string `yaml:"eventName"`
}

// Default returns the settings used when nothing is configured.
func Default() Config {
	return Config{
		APIURL:                "http://localhost:8080",
		LogLevel:              "info",
		LogFormat:             "text",
		RequestTimeoutSeconds: 30,
		CompletionToken:       "COMPLETED",
		EventName:             "sse",
	}
}

// RequestTimeout is the per-request timeout for non-streaming calls.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

// Load reads config from path, applies environment overrides and validates
// the result. An empty path reads DefaultPath if it exists.
func Load(path string) (Config, error) {
	cfg := Default()
	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return cfg, fmt.Errorf("read config: %w", err)
	}

	// Override with environment variables
	if v := os.Getenv("ESTIMATOR_API_URL"); v != "" {
		cfg.APIURL = v
	}
	if v := os.Getenv("ESTIMATOR_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("ESTIMATOR_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}
	if v := os.Getenv("ESTIMATOR_REQUEST_TIMEOUT_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.RequestTimeoutSeconds = n
		}
	}
	if v := os.Getenv("ESTIMATOR_UPLOAD_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.UploadConcurrency = n
		}
	}
	if v := os.Getenv("ESTIMATOR_COMPLETION_TOKEN"); v != "" {
		cfg.CompletionToken = v
	}
	if v := os.Getenv("ESTIMATOR_EVENT_NAME"); v != "" {
		cfg.EventName = v
	}

	if err := validateConfig(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func validateConfig(cfg Config) error {
	u, err := url.Parse(cfg.APIURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("apiURL must be an absolute http(s) URL, got %q", cfg.APIURL)
	}
	if cfg.RequestTimeoutSeconds <= 0 {
		return errors.New("requestTimeoutSeconds must be positive")
	}
	if cfg.UploadConcurrency < 0 {
		return errors.New("uploadConcurrency must not be negative")
	}
	switch strings.ToLower(cfg.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("logFormat must be text or json, got %q", cfg.LogFormat)
	}
	if strings.TrimSpace(cfg.CompletionToken) == "" {
		return errors.New("completionToken is required")
	}
	if strings.TrimSpace(cfg.EventName) == "" {
		return errors.New("eventName is required")
	}
	return nil
}

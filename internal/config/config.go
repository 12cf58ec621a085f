package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variable names recognized by the service.
const (
	EnvRecognizerName  = "GOOGLE_SPEECH_RECOGNIZER_NAME"
	EnvAPIKey          = "TRANSCRIPTION_API_KEY"
	EnvCredentialsPath = "GOOGLE_APPLICATION_CREDENTIALS"
)

// Config represents the complete service configuration
type Config struct {
	HTTP        HTTPConfig        `yaml:"http"`
	Recognition RecognitionConfig `yaml:"recognition"`
	Auth        AuthConfig        `yaml:"-"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// HTTPConfig contains HTTP API server configuration
type HTTPConfig struct {
	Port          int    `yaml:"port"`
	Address       string `yaml:"address"`
	MaxUploadSize int64  `yaml:"max_upload_size"` // bytes
	ReadTimeout   int    `yaml:"read_timeout"`    // seconds
	WriteTimeout  int    `yaml:"write_timeout"`   // seconds
}

// RecognitionConfig contains speech recognition parameters. The recognizer
// resource name and credentials path are environment-only and never read
// from the YAML file.
type RecognitionConfig struct {
	RecognizerName    string `yaml:"-"`
	CredentialsPath   string `yaml:"-"`
	LanguageCode      string `yaml:"language_code"`
	Model             string `yaml:"model"`
	Timeout           int    `yaml:"timeout"` // seconds
	StrictContentType bool   `yaml:"strict_content_type"`
}

// AuthConfig contains the shared secret for the X-API-Key header.
// It is environment-only so the secret never lives in a config file.
type AuthConfig struct {
	APIKey string `yaml:"-"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Default returns the built-in configuration used when no YAML file is present.
func Default() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Port:          8000,
			Address:       "0.0.0.0",
			MaxUploadSize: 25 << 20, // 25 MB
			ReadTimeout:   30,
			WriteTimeout:  90,
		},
		Recognition: RecognitionConfig{
			LanguageCode: "en-US",
			Model:        "long",
			Timeout:      60,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// Resolve returns the value of the named environment variable or an error
// when it is unset or empty.
func Resolve(name string) (string, error) {
	value := os.Getenv(name)
	if value == "" {
		return "", fmt.Errorf("missing required environment variable %s", name)
	}
	return value, nil
}

// ResolveDefault returns the value of the named environment variable,
// falling back to def when it is unset or empty.
func ResolveDefault(name, def string) string {
	if value := os.Getenv(name); value != "" {
		return value
	}
	return def
}

// Load builds the service configuration from the optional YAML file at path
// and the process environment. A missing file falls back to defaults when
// required is false; environment resolution and validation failures are
// always fatal to the caller.
func Load(path string, required bool) (*Config, error) {
	config := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !required:
		// Defaults plus environment are enough to run.
	default:
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if err := config.applyEnv(); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// applyEnv resolves the environment-sourced values. The recognizer resource
// name and API key are mandatory; the credentials path is optional and an
// empty value means ambient Application Default Credentials discovery.
func (c *Config) applyEnv() error {
	recognizer, err := Resolve(EnvRecognizerName)
	if err != nil {
		return err
	}
	c.Recognition.RecognizerName = recognizer

	apiKey, err := Resolve(EnvAPIKey)
	if err != nil {
		return err
	}
	c.Auth.APIKey = apiKey

	c.Recognition.CredentialsPath = ResolveDefault(EnvCredentialsPath, "")

	return nil
}

// Validate performs comprehensive validation of the configuration
func (c *Config) Validate() error {
	if err := c.HTTP.Validate(); err != nil {
		return fmt.Errorf("http config: %w", err)
	}

	if err := c.Recognition.Validate(); err != nil {
		return fmt.Errorf("recognition config: %w", err)
	}

	if err := c.Auth.Validate(); err != nil {
		return fmt.Errorf("auth config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

// Validate validates HTTP configuration
func (h *HTTPConfig) Validate() error {
	if h.Port < 1 || h.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", h.Port)
	}

	if h.Address == "" {
		return fmt.Errorf("address cannot be empty")
	}

	if h.MaxUploadSize < 1024 {
		return fmt.Errorf("max_upload_size must be at least 1024 bytes, got %d", h.MaxUploadSize)
	}

	if h.ReadTimeout < 1 {
		return fmt.Errorf("read_timeout must be at least 1 second, got %d", h.ReadTimeout)
	}

	if h.WriteTimeout < 1 {
		return fmt.Errorf("write_timeout must be at least 1 second, got %d", h.WriteTimeout)
	}

	return nil
}

// Validate validates recognition configuration
func (r *RecognitionConfig) Validate() error {
	if r.RecognizerName == "" {
		return fmt.Errorf("recognizer name cannot be empty")
	}

	if r.LanguageCode == "" {
		return fmt.Errorf("language_code cannot be empty")
	}

	if r.Model == "" {
		return fmt.Errorf("model cannot be empty")
	}

	if r.Timeout < 1 {
		return fmt.Errorf("timeout must be at least 1 second, got %d", r.Timeout)
	}

	return nil
}

// Validate validates auth configuration
func (a *AuthConfig) Validate() error {
	if a.APIKey == "" {
		return fmt.Errorf("api key cannot be empty")
	}

	return nil
}

// Validate validates logging configuration
func (l *LoggingConfig) Validate() error {
	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[l.Level] {
		return fmt.Errorf("level must be one of [debug, info, warn, error], got '%s'", l.Level)
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("format must be 'json' or 'text', got '%s'", l.Format)
	}

	return nil
}

// GetMaxUploadSize returns the upload limit in bytes.
func (h *HTTPConfig) GetMaxUploadSize() int64 {
	return h.MaxUploadSize
}

// GetReadTimeout returns the HTTP read timeout as a time.Duration
func (h *HTTPConfig) GetReadTimeout() time.Duration {
	return time.Duration(h.ReadTimeout) * time.Second
}

// GetWriteTimeout returns the HTTP write timeout as a time.Duration
func (h *HTTPConfig) GetWriteTimeout() time.Duration {
	return time.Duration(h.WriteTimeout) * time.Second
}

// GetTimeoutDuration returns the recognition timeout as a time.Duration
func (r *RecognitionConfig) GetTimeoutDuration() time.Duration {
	return time.Duration(r.Timeout) * time.Second
}

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// LogConfig controls where the JSON log file is written and how it is rotated
type LogConfig struct {
	Dir        string `yaml:"dir,omitempty"`
	MaxSizeMB  int    `yaml:"maxSizeMB,omitempty" validate:"omitempty,min=1"`
	MaxBackups int    `yaml:"maxBackups,omitempty" validate:"omitempty,min=0"`
	MaxAgeDays int    `yaml:"maxAgeDays,omitempty" validate:"omitempty,min=0"`
}

// ExportConfig controls roster exports
type ExportConfig struct {
	Dir           string `yaml:"dir,omitempty"`
	RosterSheetID string `yaml:"rosterSheetID,omitempty"`
	PDFTitle      string `yaml:"pdfTitle,omitempty"`
}

// Config represents the application configuration
type Config struct {
	APIBaseURL        string        `yaml:"apiBaseURL" validate:"required,url"`
	RequestTimeout    time.Duration `yaml:"requestTimeout,omitempty"`
	RequestsPerSecond float64       `yaml:"requestsPerSecond,omitempty" validate:"omitempty,gt=0"`
	UploadConcurrency int           `yaml:"uploadConcurrency,omitempty" validate:"omitempty,min=0,max=32"`
	JPEGQuality       int           `yaml:"jpegQuality,omitempty" validate:"omitempty,min=1,max=100"`
	MaxImageWidth     int           `yaml:"maxImageWidth,omitempty" validate:"omitempty,min=1"`
	DatabaseURL       string        `yaml:"databaseURL,omitempty"`
	Export            ExportConfig  `yaml:"export,omitempty"`
	Log               LogConfig     `yaml:"log,omitempty"`
}

const (
	DefaultRequestTimeout = 30 * time.Second
	DefaultJPEGQuality    = 92
	DefaultExportDir      = "exports"
	DefaultPDFTitle       = "Humanity Calls - Volunteers"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// LoadWithEnv loads the configuration for an environment.
// For env="prod" it looks for "hc_config.prod.yaml", falling back to "hc_config.yaml".
func LoadWithEnv(env string) (*Config, error) {
	candidates := []string{"hc_config.yaml"}
	if env != "" {
		candidates = append([]string{"hc_config." + env + ".yaml"}, candidates...)
	}

	configPath, err := findFile(candidates...)
	if err != nil {
		return nil, fmt.Errorf("failed to find config file: %w", err)
	}

	return LoadFromPath(configPath)
}

// LoadFromPath loads and validates the configuration from a specific path
func LoadFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()

	return &cfg, nil
}

// Validate validates the configuration struct
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	return nil
}

func (c *Config) applyDefaults() {
	if c.RequestTimeout == 0 {
		c.RequestTimeout = DefaultRequestTimeout
	}
	if c.JPEGQuality == 0 {
		c.JPEGQuality = DefaultJPEGQuality
	}
	if c.Export.Dir == "" {
		c.Export.Dir = DefaultExportDir
	}
	if c.Export.PDFTitle == "" {
		c.Export.PDFTitle = DefaultPDFTitle
	}
	if c.Log.Dir == "" {
		c.Log.Dir = "logs"
	}
}

// findFile returns the first of names found in the current directory, then in the home directory
func findFile(names ...string) (string, error) {
	for _, name := range names {
		if _, err := os.Stat(name); err == nil {
			return name, nil
		}
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	for _, name := range names {
		homePath := filepath.Join(homeDir, name)
		if _, err := os.Stat(homePath); err == nil {
			return homePath, nil
		}
	}

	return "", fmt.Errorf("%s not found in current directory or home directory", names[0])
}

package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/menta2k/pagexml-dataset/pkg/processing"
	"github.com/menta2k/pagexml-dataset/pkg/types"
	"github.com/menta2k/pagexml-dataset/pkg/window"
)

// Config holds the application configuration
type Config struct {
	Export   ExportConfig   `yaml:"export"`
	Window   window.Config  `yaml:"window"`
	Cropper  CropperConfig  `yaml:"cropper"`
	Images   ImageConfig    `yaml:"images"`
	Output   OutputConfig   `yaml:"output"`
	Split    SplitConfig    `yaml:"split"`
	Hub      HubConfig      `yaml:"hub"`
	Postgres PostgresConfig `yaml:"postgres"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ExportConfig selects the record shape and parallelism
type ExportConfig struct {
	Mode    string `yaml:"mode"`
	Workers int    `yaml:"workers"`
}

// CropperConfig holds configuration for polygon crops
type CropperConfig struct {
	PolygonPadding int `yaml:"polygon_padding"`
}

// ImageConfig controls how record images are encoded
type ImageConfig struct {
	Format   string `yaml:"format"`
	Quality  int    `yaml:"quality"`
	Lossless bool   `yaml:"lossless"`
}

// OutputConfig holds configuration for local output
type OutputConfig struct {
	Dir       string `yaml:"dir"`
	LocalOnly bool   `yaml:"local_only"`
}

// SplitConfig is the optional train/test split. Train of 0 disables it.
type SplitConfig struct {
	Train   float64 `yaml:"train"`
	Seed    int64   `yaml:"seed"`
	Shuffle bool    `yaml:"shuffle"`
}

// HubConfig holds the dataset hub upload settings
type HubConfig struct {
	RepoID   string `yaml:"repo_id"`
	Private  bool   `yaml:"private"`
	Token    string `yaml:"token,omitempty"`
	Endpoint string `yaml:"endpoint"`
}

// PostgresConfig enables writing records to a database when DSN is set
type PostgresConfig struct {
	DSN   string `yaml:"dsn,omitempty"`
	Table string `yaml:"table"`
}

// LoggingConfig holds the log level
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Default returns a configuration with default values
func Default() *Config {
	return &Config{
		Export: ExportConfig{
			Mode:    string(types.ModeText),
			Workers: 1,
		},
		Window: window.DefaultConfig(),
		Cropper: CropperConfig{
			PolygonPadding: 5,
		},
		Images: ImageConfig{
			Format:  processing.FormatJPEG,
			Quality: 95,
		},
		Output: OutputConfig{
			Dir: "./dataset",
		},
		Split: SplitConfig{
			Seed:    42,
			Shuffle: true,
		},
		Hub: HubConfig{
			Endpoint: "https://huggingface.co",
		},
		Postgres: PostgresConfig{
			Table: "pagexml_records",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadFromFile loads configuration from a YAML file. Keys missing from the
// file keep their default values.
func LoadFromFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a YAML file
func (c *Config) SaveToFile(filename string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	mode, err := types.ParseMode(c.Export.Mode)
	if err != nil {
		return fmt.Errorf("export.mode: %w", err)
	}

	if c.Export.Workers < 1 {
		return fmt.Errorf("export.workers must be at least 1")
	}

	// Window settings only apply to window mode
	if mode == types.ModeWindow {
		if err := c.Window.Validate(); err != nil {
			return err
		}
	}

	if c.Cropper.PolygonPadding < 0 {
		return fmt.Errorf("cropper.polygon_padding must not be negative")
	}

	if _, err := processing.NormalizeFormat(c.Images.Format); err != nil {
		return fmt.Errorf("images.format: %w", err)
	}

	if c.Images.Quality < 1 || c.Images.Quality > 100 {
		return fmt.Errorf("images.quality must be between 1 and 100")
	}

	if c.Split.Train < 0 || c.Split.Train >= 1 {
		return fmt.Errorf("split.train must be in [0, 1)")
	}

	if !c.Output.LocalOnly && c.Hub.RepoID == "" && c.Postgres.DSN == "" {
		return fmt.Errorf("hub.repo_id is required unless output.local_only is set")
	}

	if c.Postgres.DSN != "" && c.Postgres.Table == "" {
		return fmt.Errorf("postgres.table cannot be empty")
	}

	if _, err := logrus.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}

	return nil
}

// GetConfigPath returns the default configuration file path
func GetConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./config.yaml"
	}
	return filepath.Join(home, ".config", "pagexml-dataset", "config.yaml")
}

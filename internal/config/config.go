package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Providers ProvidersConfig `yaml:"providers" validate:"required"`
	Paths     PathsConfig     `yaml:"paths" validate:"required"`
	Limits    Limits          `yaml:"limits" validate:"required"`
}

type ProvidersConfig struct {
	APIKey            string `yaml:"api_key" validate:"required,min=20"`
	TextBaseURL       string `yaml:"text_base_url" validate:"required,url"`
	TextModel         string `yaml:"text_model" validate:"required"`
	ImageBaseURL      string `yaml:"image_base_url" validate:"required,url"`
	ModerationBaseURL string `yaml:"moderation_base_url" validate:"required,url"`
	ModerationEnabled bool   `yaml:"moderation_enabled"`
}

type PathsConfig struct {
	DataDir string `yaml:"data_dir" validate:"required"`
}

// Load reads configuration from the YAML file (path resolution below),
// merges environment variables and validates the result. A missing config
// file is not an error: defaults plus OPENAI_API_KEY are enough to run.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := defaults()

	configPath := getConfigPath()
	data, err := os.ReadFile(configPath)
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if cfg.Providers.APIKey == "" || cfg.Providers.APIKey == "${OPENAI_API_KEY}" {
		cfg.Providers.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if dataDir := os.Getenv("DUNGEON_DATA_DIR"); dataDir != "" {
		cfg.Paths.DataDir = dataDir
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Providers: ProvidersConfig{
			TextBaseURL:       "https://api.openai.com/v1",
			TextModel:         "gpt-4o-mini",
			ImageBaseURL:      "https://api.openai.com/v1",
			ModerationBaseURL: "https://api.openai.com/v1",
			ModerationEnabled: true,
		},
		Paths: PathsConfig{
			DataDir: defaultDataDir(),
		},
		Limits: DefaultLimits(),
	}
}

func getConfigPath() string {
	if path := os.Getenv("DUNGEON_CONFIG"); path != "" {
		return path
	}
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "dungeon", "config.yaml")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "dungeon", "config.yaml")
}

func defaultDataDir() string {
	if xdgData := os.Getenv("XDG_DATA_HOME"); xdgData != "" {
		return filepath.Join(xdgData, "dungeon")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", "dungeon")
}

func (c *Config) validate() error {
	if c.Limits.MaxInputLength == 0 {
		c.Limits = DefaultLimits()
	}

	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}

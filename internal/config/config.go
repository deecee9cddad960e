package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Storage struct {
		Backend string `yaml:"backend"` // sqlite or file
		Path    string `yaml:"path"`
	} `yaml:"storage"`
	AI struct {
		Provider  string        `yaml:"provider"`
		Model     string        `yaml:"model"`
		APIKey    string        `yaml:"api_key"`
		BaseURL   string        `yaml:"base_url"` // openai-compatible endpoints only
		MaxTokens int           `yaml:"max_tokens"`
		Timeout   time.Duration `yaml:"timeout"`
	} `yaml:"ai"`
	Reconstruct struct {
		InputTokenBudget int `yaml:"input_token_budget"`
		MaxTokens        int `yaml:"max_tokens"`
	} `yaml:"reconstruct"`
	Chat struct {
		HistoryLimit int `yaml:"history_limit"`
	} `yaml:"chat"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"` // text or json
	} `yaml:"log"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	var cfg Config
	cfg.Storage.Backend = "sqlite"
	cfg.Storage.Path = "brdchat.db"
	cfg.AI.Provider = "gemini"
	cfg.AI.Model = "gemini-2.5-flash"
	cfg.AI.MaxTokens = 4096
	cfg.AI.Timeout = 90 * time.Second
	cfg.Reconstruct.InputTokenBudget = 6000
	cfg.Reconstruct.MaxTokens = 8192
	cfg.Chat.HistoryLimit = 20
	cfg.Log.Level = "info"
	cfg.Log.Format = "text"
	return &cfg
}

// LoadConfig reads path over the defaults. A missing file is not an error.
// BRDCHAT_* environment variables (and a .env file) override both.
func LoadConfig(path string) (*Config, error) {
	// 1. Load .env if exists
	_ = godotenv.Load()

	cfg := Default()

	// 2. Load YAML config
	if path != "" {
		file, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, err
		default:
			if err := yaml.Unmarshal(file, cfg); err != nil {
				return nil, err
			}
		}
	}

	// 3. Override with Environment Variables if present
	setString(&cfg.Storage.Backend, "BRDCHAT_STORAGE_BACKEND")
	setString(&cfg.Storage.Path, "BRDCHAT_STORAGE_PATH")
	setString(&cfg.AI.Provider, "BRDCHAT_AI_PROVIDER")
	setString(&cfg.AI.Model, "BRDCHAT_AI_MODEL")
	setString(&cfg.AI.APIKey, "BRDCHAT_API_KEY")
	setString(&cfg.AI.BaseURL, "BRDCHAT_AI_BASE_URL")
	setString(&cfg.Log.Level, "BRDCHAT_LOG_LEVEL")
	setString(&cfg.Log.Format, "BRDCHAT_LOG_FORMAT")
	if err := setInt(&cfg.AI.MaxTokens, "BRDCHAT_AI_MAX_TOKENS"); err != nil {
		return nil, err
	}
	if err := setInt(&cfg.Chat.HistoryLimit, "BRDCHAT_HISTORY_LIMIT"); err != nil {
		return nil, err
	}
	if err := setInt(&cfg.Reconstruct.InputTokenBudget, "BRDCHAT_RECONSTRUCT_TOKEN_BUDGET"); err != nil {
		return nil, err
	}
	if v := os.Getenv("BRDCHAT_AI_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("BRDCHAT_AI_TIMEOUT: %w", err)
		}
		cfg.AI.Timeout = d
	}

	return cfg, nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = n
	return nil
}

package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"brdchat/internal/config"
	"brdchat/internal/engine"
	"brdchat/internal/generation"
	"brdchat/internal/storage"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "brdchat",
	Short: "Chat with a Business Requirements Document and patch its sections",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		viper.SetEnvPrefix("BRDCHAT")
		viper.AutomaticEnv()
		_ = viper.BindPFlags(cmd.Flags())
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "brdchat.yaml", "Path to the YAML config file")
	rootCmd.PersistentFlags().StringP("db", "d", "", "Storage path (SQLite file or directory for the file backend)")
	rootCmd.PersistentFlags().String("backend", "", "Storage backend: sqlite or file")
	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(sessionCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(reconstructCmd)
}

// loadConfig reads the config file and applies flag overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(viper.GetString("config"))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if v := viper.GetString("db"); v != "" {
		cfg.Storage.Path = v
	}
	if v := viper.GetString("backend"); v != "" {
		cfg.Storage.Backend = v
	}
	if v := viper.GetString("log-level"); v != "" {
		cfg.Log.Level = v
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	if level, err := logrus.ParseLevel(cfg.Log.Level); err == nil {
		logger.SetLevel(level)
	}
	if strings.EqualFold(cfg.Log.Format, "json") {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	return logger
}

// initStore opens the configured storage backend.
func initStore(cfg *config.Config) (storage.Store, error) {
	return storage.Open(cfg.Storage.Backend, cfg.Storage.Path)
}

// initEngine wires storage and the generation client into an Engine. A
// missing API key leaves the engine without a model: listing and showing
// still work, edits report an error.
func initEngine(ctx context.Context, cfg *config.Config, store storage.Store, logger *logrus.Logger) (*engine.Engine, error) {
	opts := []engine.Option{
		engine.WithLogger(logger),
		engine.WithHistoryLimit(cfg.Chat.HistoryLimit),
		engine.WithMaxTokens(cfg.AI.MaxTokens),
		engine.WithReconstructBudget(cfg.Reconstruct.InputTokenBudget),
		engine.WithReconstructMaxTokens(cfg.Reconstruct.MaxTokens),
	}

	if cfg.AI.APIKey == "" && !strings.EqualFold(cfg.AI.Provider, "openai") {
		fmt.Println("⚠️  AI API key not configured. Section updates are disabled.")
		return engine.New(store, store, opts...), nil
	}

	gen, err := generation.New(ctx, generation.Options{
		Provider: cfg.AI.Provider,
		APIKey:   cfg.AI.APIKey,
		Model:    cfg.AI.Model,
		BaseURL:  cfg.AI.BaseURL,
		Timeout:  cfg.AI.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create generation client: %w", err)
	}
	opts = append(opts, engine.WithGeneration(gen))
	return engine.New(store, store, opts...), nil
}

// setup loads config and opens the store and engine for one command.
func setup(ctx context.Context) (*engine.Engine, storage.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	logger := newLogger(cfg)

	store, err := initStore(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	eng, err := initEngine(ctx, cfg, store, logger)
	if err != nil {
		store.Close()
		return nil, nil, err
	}
	return eng, store, nil
}

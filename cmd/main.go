package main

import (
	"context"
	"errors"
	"os"

	"github.com/verse91/clipy/internal/shared"
	"github.com/urfave/cli/v3"
)

func main() {
	logger := shared.NewLogger(nil)

	configPath := os.Getenv("CLIPY_CONFIG")
	if configPath == "" {
		configPath = "config.toml"
	}

	config, err := shared.LoadOrDefault(configPath)
	if err != nil {
		logger.Warn("using default config", "path", configPath, "error", err)
		config = shared.DefaultConfig()
	}
	if err := shared.ParseLogLevel(logger, config.Log.Level); err != nil {
		logger.Warn("ignoring log level", "error", err)
	}

	runner := NewRunner(RunnerOpts{
		Config:     config,
		ConfigPath: configPath,
		Logger:     logger,
	})

	app := &cli.Command{
		Name:     "clipy",
		Usage:    "Turn YouTube links into clips from the terminal or the browser",
		Version:  "0.1.0",
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		if errors.Is(err, shared.ErrNotImplemented) {
			logger.Warn("not implemented")
			os.Exit(0)
		} else {
			logger.Fatalf("application error: %v", err)
		}
	}
}

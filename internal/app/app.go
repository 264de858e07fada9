package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/amunamun/raster-to-graph/internal/config"
	"github.com/amunamun/raster-to-graph/internal/ctxlog"
)

// App encapsulates the application's dependencies, configuration, and
// lifecycle.
type App struct {
	outW     io.Writer
	logger   *slog.Logger
	pipeline *config.Config
}

// NewApp is the constructor for the main application. It returns a fully
// initialized App instance with its own isolated logger and a validated
// pipeline configuration.
func NewApp(outW io.Writer, appConfig *Config) *App {
	logger := newLogger(appConfig.LogLevel, appConfig.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	// A failure to load or validate the pipeline configuration is a fatal
	// startup error: nothing may run against unchecked parameters.
	cfg, err := config.Load(ctx, appConfig.ConfigPath)
	if err != nil {
		panic(fmt.Errorf("failed to load configuration: %w", err))
	}
	logger.Debug("Pipeline configuration validated.")

	return &App{
		outW:     outW,
		logger:   logger,
		pipeline: cfg,
	}
}

// Pipeline returns the validated pipeline configuration. This is primarily
// for testing.
func (a *App) Pipeline() *config.Config {
	return a.pipeline
}

package app

import "errors"

// Config holds all the necessary process-level configuration for an App
// instance to run. The pipeline parameters themselves live in the HCL file
// at ConfigPath.
type Config struct {
	ConfigPath string

	LogFormat   string
	LogLevel    string
	WorkerCount int
}

// NewConfig validates the process configuration.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.ConfigPath == "" {
		return nil, errors.New("ConfigPath is a required configuration field and cannot be empty")
	}
	if cfg.WorkerCount < 1 {
		return nil, errors.New("WorkerCount must be at least 1")
	}
	return &cfg, nil
}

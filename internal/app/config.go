package app

import "errors"

// Config holds everything an App instance needs to run.
type Config struct {
	// RunPath points at the HCL run file.
	RunPath string

	LogFormat string
	LogLevel  string

	// Workers overrides the run file's worker count when positive.
	Workers int
}

// NewConfig validates a configuration.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.RunPath == "" {
		return nil, errors.New("RunPath is a required configuration field and cannot be empty")
	}
	return &cfg, nil
}

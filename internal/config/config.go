// Package config defines the service configuration, its defaults and the
// YAML/environment loaders.
package config

import "time"

// LogMode selects the zap preset.
type LogMode string

const (
	LogModeProduction  LogMode = "production"
	LogModeDevelopment LogMode = "development"
)

// IsValid reports whether m is a known mode.
func (m LogMode) IsValid() bool {
	switch m {
	case LogModeProduction, LogModeDevelopment:
		return true
	}
	return false
}

// LogLevel is the minimum level written.
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// IsValid reports whether l is a known level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
		return true
	}
	return false
}

// Config is the root configuration.
type Config struct {
	Database   DatabaseConfig   `yaml:"database"`
	HTTP       HTTPConfig       `yaml:"http"`
	Log        LogConfig        `yaml:"log"`
	Evaluation EvaluationConfig `yaml:"evaluation"`
}

// DatabaseConfig locates the SQLite database.
type DatabaseConfig struct {
	// Path is the database file. Empty resolves to the XDG data directory.
	Path string `yaml:"path"`

	// StorageTimeout bounds each ledger storage call. Zero disables it.
	StorageTimeout time.Duration `yaml:"storage_timeout"`
}

// HTTPConfig configures the API server.
type HTTPConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// LogConfig configures the logger.
type LogConfig struct {
	Mode  LogMode  `yaml:"mode"`
	Level LogLevel `yaml:"level"`
}

// EvaluationConfig tunes the evaluation pipeline.
type EvaluationConfig struct {
	// EstimateSignals derives emotional signals from the transcript when a
	// request carries none.
	EstimateSignals bool `yaml:"estimate_signals"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{
			StorageTimeout: 5 * time.Second,
		},
		HTTP: HTTPConfig{
			Addr:            ":8080",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    15 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Log: LogConfig{
			Mode:  LogModeProduction,
			Level: LogLevelInfo,
		},
		Evaluation: EvaluationConfig{
			EstimateSignals: true,
		},
	}
}

package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variables read by ApplyEnv.
const (
	EnvDB              = "VOXA_DB"
	EnvHTTPAddr        = "VOXA_HTTP_ADDR"
	EnvLogMode         = "VOXA_LOG_MODE"
	EnvLogLevel        = "VOXA_LOG_LEVEL"
	EnvStorageTimeout  = "VOXA_STORAGE_TIMEOUT"
	EnvEstimateSignals = "VOXA_ESTIMATE_SIGNALS"
)

// Load reads the YAML configuration file at path over the defaults and
// returns a validated [Config].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r over the defaults and
// validates the result. An empty document yields the defaults.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides cfg with any VOXA_* variables set in the environment.
func ApplyEnv(cfg *Config) error {
	return applyEnv(cfg, os.LookupEnv)
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	var errs []error

	if v, ok := lookup(EnvDB); ok && v != "" {
		cfg.Database.Path = v
	}
	if v, ok := lookup(EnvHTTPAddr); ok && v != "" {
		cfg.HTTP.Addr = v
	}
	if v, ok := lookup(EnvLogMode); ok && v != "" {
		cfg.Log.Mode = LogMode(v)
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		cfg.Log.Level = LogLevel(v)
	}
	if v, ok := lookup(EnvStorageTimeout); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", EnvStorageTimeout, err))
		} else {
			cfg.Database.StorageTimeout = d
		}
	}
	if v, ok := lookup(EnvEstimateSignals); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", EnvEstimateSignals, err))
		} else {
			cfg.Evaluation.EstimateSignals = b
		}
	}

	return errors.Join(errs...)
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Database.StorageTimeout < 0 {
		errs = append(errs, fmt.Errorf("database.storage_timeout %s must not be negative", cfg.Database.StorageTimeout))
	}

	if cfg.HTTP.Addr == "" {
		errs = append(errs, errors.New("http.addr is required"))
	}
	for name, d := range map[string]time.Duration{
		"http.read_timeout":     cfg.HTTP.ReadTimeout,
		"http.write_timeout":    cfg.HTTP.WriteTimeout,
		"http.shutdown_timeout": cfg.HTTP.ShutdownTimeout,
	} {
		if d < 0 {
			errs = append(errs, fmt.Errorf("%s %s must not be negative", name, d))
		}
	}

	if !cfg.Log.Mode.IsValid() {
		errs = append(errs, fmt.Errorf("log.mode %q is invalid; valid values: production, development", cfg.Log.Mode))
	}
	if !cfg.Log.Level.IsValid() {
		errs = append(errs, fmt.Errorf("log.level %q is invalid; valid values: debug, info, warn, error", cfg.Log.Level))
	}

	return errors.Join(errs...)
}

package core

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds engine settings. The zero value is not the default; use
// DefaultConfig, which enables strict mode
type Config struct {
	// Strict aborts the remaining steps on the first failure. When false,
	// the failure is recorded as a StepError result and the run continues
	Strict bool `yaml:"strict"`

	// Name labels the engine in logs, history and metrics
	Name string `yaml:"name"`

	// HistoryCapacity bounds the number of step records kept (0 = default)
	HistoryCapacity int `yaml:"history_capacity"`
}

// DefaultConfig returns strict mode with the default history capacity
func DefaultConfig() Config {
	return Config{
		Strict:          true,
		HistoryCapacity: defaultHistoryCapacity,
	}
}

// Validate checks the configuration for consistency
func (c Config) Validate() error {
	if c.HistoryCapacity < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidHistoryCapacity,
			c.HistoryCapacity)
	}
	return nil
}

// ParseConfigYAML decodes a YAML document over DefaultConfig, so absent
// keys keep their defaults
func ParseConfigYAML(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if len(bytes.TrimSpace(data)) == 0 {
		return cfg, nil
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// LoadConfigFile reads and parses a YAML configuration file
func LoadConfigFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	cfg, err := ParseConfigYAML(data)
	if err != nil {
		return Config{}, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Option configures an Engine
type Option func(*options)

type options struct {
	config     Config
	logger     Logger
	metrics    Metrics
	dispatcher Dispatcher
}

func newOptions(opts []Option) *options {
	o := &options{
		config:  DefaultConfig(),
		logger:  NewNoOpLogger(),
		metrics: &NilMetrics{},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithConfig replaces the whole configuration, Strict included: a zero
// Config gives a non-strict engine. Start from DefaultConfig to keep the
// defaults
func WithConfig(cfg Config) Option {
	return func(o *options) { o.config = cfg }
}

// WithStrict sets the failure mode
func WithStrict(strict bool) Option {
	return func(o *options) { o.config.Strict = strict }
}

// WithName sets the engine name
func WithName(name string) Option {
	return func(o *options) { o.config.Name = name }
}

// WithHistoryCapacity sets how many step records are kept. 0 means the
// default; a negative value is rejected by NewEngineWithStart and replaced
// by the default in NewEngine
func WithHistoryCapacity(n int) Option {
	return func(o *options) { o.config.HistoryCapacity = n }
}

// WithLogger sets the logger. nil keeps the no-op logger
func WithLogger(l Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMetrics sets the metrics sink. nil keeps NilMetrics
func WithMetrics(m Metrics) Option {
	return func(o *options) {
		if m != nil {
			o.metrics = m
		}
	}
}

// WithDispatcher drives the engine through d, e.g. an EventLoop: runs
// start with a task posted to d and continuations resume through d, so
// steps and handlers never run on the goroutine that called Execute or
// resolved a continuation
func WithDispatcher(d Dispatcher) Option {
	return func(o *options) { o.dispatcher = d }
}

package speechgate

import (
	"os"

	"github.com/himanishpuri/SpeechGate/internal/config"
)

type Config struct {
	DBPath  string // empty disables persistence unless Storage is set
	TempDir string
	Workers int

	// PreserveInputOrder returns and stores results in input order instead
	// of completion order.
	PreserveInputOrder bool

	Filter  FilterConfig
	Logger  Logger
	Storage Storage
	Metrics *MetricsRecorder
	Source  Source
}

type Option func(*Config)

func WithDBPath(path string) Option {
	return func(c *Config) {
		c.DBPath = path
	}
}

func WithTempDir(dir string) Option {
	return func(c *Config) {
		c.TempDir = dir
	}
}

func WithWorkers(n int) Option {
	return func(c *Config) {
		c.Workers = n
	}
}

func WithInputOrder(preserve bool) Option {
	return func(c *Config) {
		c.PreserveInputOrder = preserve
	}
}

func WithFilterConfig(cfg FilterConfig) Option {
	return func(c *Config) {
		c.Filter = cfg
	}
}

func WithLogger(log Logger) Option {
	return func(c *Config) {
		c.Logger = log
	}
}

func WithStorage(storage Storage) Option {
	return func(c *Config) {
		c.Storage = storage
	}
}

func WithMetrics(rec *MetricsRecorder) Option {
	return func(c *Config) {
		c.Metrics = rec
	}
}

// WithSource replaces the ffmpeg-backed file decoder.
func WithSource(src Source) Option {
	return func(c *Config) {
		c.Source = src
	}
}

func defaultConfig() *Config {
	return &Config{
		DBPath:             DefaultDBPath,
		TempDir:            os.TempDir(),
		PreserveInputOrder: true,
		Filter:             config.Default(),
	}
}

// Package config defines the service configuration and its loader.
// Values come from config.yml, an optional .env file, and the process
// environment, with the environment winning.
package config

import (
	"fmt"
	"os"

	"github.com/skillsenselab/meetscribe/internal/media"
	"github.com/skillsenselab/meetscribe/internal/speech/batch"
	"github.com/skillsenselab/meetscribe/pkg/logger"
	"github.com/skillsenselab/meetscribe/pkg/server"
	"github.com/skillsenselab/meetscribe/pkg/storage"
)

// ServiceName is the canonical name of this service.
const ServiceName = "meetscribe"

// JobsConfig sizes the background worker pool.
type JobsConfig struct {
	Workers   int `yaml:"workers" mapstructure:"workers"`
	QueueSize int `yaml:"queue_size" mapstructure:"queue_size"`
}

// ApplyDefaults fills in zero-valued fields with sensible defaults.
func (c *JobsConfig) ApplyDefaults() {
	if c.Workers == 0 {
		c.Workers = 2
	}
	if c.QueueSize == 0 {
		c.QueueSize = 100
	}
}

// Validate checks the configuration for invalid values.
func (c *JobsConfig) Validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("jobs.workers must be at least 1 (got: %d)", c.Workers)
	}
	if c.QueueSize < 1 {
		return fmt.Errorf("jobs.queue_size must be at least 1 (got: %d)", c.QueueSize)
	}
	return nil
}

// DirsConfig names the local working directories for provisional
// uploads and durable result files.
type DirsConfig struct {
	UploadDir  string `yaml:"upload_dir" mapstructure:"upload_dir"`
	ResultsDir string `yaml:"results_dir" mapstructure:"results_dir"`
}

// ApplyDefaults fills in zero-valued fields with sensible defaults.
func (c *DirsConfig) ApplyDefaults() {
	if c.UploadDir == "" {
		c.UploadDir = "uploads"
	}
	if c.ResultsDir == "" {
		c.ResultsDir = "results"
	}
}

// Ensure creates both directories if they do not exist.
func (c *DirsConfig) Ensure() error {
	for _, dir := range []string{c.UploadDir, c.ResultsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// Config is the full service configuration.
type Config struct {
	Name        string `yaml:"name" mapstructure:"name"`
	Environment string `yaml:"environment" mapstructure:"environment"`
	Version     string `yaml:"version" mapstructure:"version"`
	Debug       bool   `yaml:"debug" mapstructure:"debug"`

	Logging logger.Config         `yaml:"logging" mapstructure:"logging"`
	Server  server.Config         `yaml:"server" mapstructure:"server"`
	Storage storage.Config        `yaml:"storage" mapstructure:"storage"`
	Speech  batch.Config          `yaml:"speech" mapstructure:"speech"`
	Media   media.ExtractorConfig `yaml:"media" mapstructure:"media"`
	Jobs    JobsConfig            `yaml:"jobs" mapstructure:"jobs"`
	Dirs    DirsConfig            `yaml:"dirs" mapstructure:"dirs"`
}

// ApplyDefaults applies defaults across all sections.
func (c *Config) ApplyDefaults() {
	if c.Name == "" {
		c.Name = ServiceName
	}
	if c.Environment == "" {
		c.Environment = "development"
	}
	if c.Environment == "development" {
		c.Debug = true
	}
	if c.Logging.ServiceName == "" {
		c.Logging.ServiceName = c.Name
	}
	c.Logging.ApplyDefaults()
	c.Server.ApplyDefaults()
	c.Storage.ApplyDefaults()
	c.Speech.ApplyDefaults()
	c.Media.ApplyDefaults()
	c.Jobs.ApplyDefaults()
	c.Dirs.ApplyDefaults()

	// The speech backend stages audio through the same bucket as the
	// storage layer unless told otherwise.
	if c.Speech.Bucket == "" {
		c.Speech.Bucket = c.Storage.Bucket
	}
}

// Validate validates all sections.
func (c *Config) Validate() error {
	validEnvs := map[string]bool{"development": true, "staging": true, "production": true}
	if !validEnvs[c.Environment] {
		return fmt.Errorf("config.environment must be one of [development, staging, production] (got: %s)", c.Environment)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("config.logging: %w", err)
	}
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("config.server: %w", err)
	}
	if err := c.Storage.Validate(); err != nil {
		return fmt.Errorf("config.storage: %w", err)
	}
	if err := c.Speech.Validate(); err != nil {
		return err
	}
	if err := c.Media.Validate(); err != nil {
		return fmt.Errorf("config.media: %w", err)
	}
	if err := c.Jobs.Validate(); err != nil {
		return fmt.Errorf("config.jobs: %w", err)
	}
	return nil
}

// Load reads the service configuration and applies defaults. The
// returned config is not yet validated; callers validate after any
// programmatic overrides.
func Load(opts ...LoaderOption) (*Config, error) {
	cfg := &Config{}
	if err := LoadInto(ServiceName, cfg, opts...); err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()
	return cfg, nil
}

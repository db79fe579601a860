package batch

import (
	"time"

	"github.com/skillsenselab/meetscribe/pkg/errors"
)

// Default configuration values.
const (
	DefaultModel        = "chirp_3"
	DefaultPollInterval = 15 * time.Second

	// DefaultOperationTimeout bounds how long a single recognition
	// operation may run. The recognizer accepts media up to 8 hours, so
	// the ceiling is a generous multiple of that.
	DefaultOperationTimeout = 24 * time.Hour
)

// Config holds configuration for the batch recognition provider.
type Config struct {
	// Endpoint is the base URL of the recognizer API.
	Endpoint string `yaml:"endpoint" mapstructure:"endpoint"`
	// ProjectID is the cloud project the recognizer runs under. Required.
	ProjectID string `yaml:"project_id" mapstructure:"project_id"`
	// Bucket is the storage bucket audio is staged in and results are
	// written to. Required.
	Bucket string `yaml:"bucket" mapstructure:"bucket"`
	// Model is the recognition model to request.
	Model string `yaml:"model" mapstructure:"model"`
	// PollInterval is how often the pending operation is polled.
	PollInterval time.Duration `yaml:"poll_interval" mapstructure:"poll_interval"`
	// OperationTimeout caps how long Recognize waits for the backend.
	OperationTimeout time.Duration `yaml:"operation_timeout" mapstructure:"operation_timeout"`
}

// ApplyDefaults fills in zero-valued fields with sensible defaults.
func (c *Config) ApplyDefaults() {
	if c.Model == "" {
		c.Model = DefaultModel
	}
	if c.PollInterval == 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.OperationTimeout == 0 {
		c.OperationTimeout = DefaultOperationTimeout
	}
}

// Validate checks that the required backend settings are present.
// A missing bucket or project is fatal for any job that reaches the
// backend, so it is reported as a configuration error.
func (c *Config) Validate() error {
	if c.Bucket == "" || c.ProjectID == "" {
		return errors.Configuration("speech backend bucket and project_id must be set")
	}
	if c.Endpoint == "" {
		return errors.Configuration("speech backend endpoint must be set")
	}
	return nil
}

package media

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/skillsenselab/meetscribe/pkg/errors"
	"github.com/skillsenselab/meetscribe/pkg/logger"
	"github.com/skillsenselab/meetscribe/pkg/process"
)

// ExtractorConfig holds audio extraction configuration.
type ExtractorConfig struct {
	// Binary is the transcoding tool executable, resolved via PATH.
	Binary string `yaml:"binary" mapstructure:"binary"`
	// Bitrate is the output audio bitrate.
	Bitrate string `yaml:"bitrate" mapstructure:"bitrate"`
	// SampleRate is the output sample rate in Hz.
	SampleRate int `yaml:"sample_rate" mapstructure:"sample_rate"`
	// Channels is the output channel count.
	Channels int `yaml:"channels" mapstructure:"channels"`
	// GracePeriod is how long to wait after SIGTERM before SIGKILL.
	GracePeriod time.Duration `yaml:"grace_period" mapstructure:"grace_period"`
}

// ApplyDefaults fills in zero-valued fields with sensible defaults.
func (c *ExtractorConfig) ApplyDefaults() {
	if c.Binary == "" {
		c.Binary = "ffmpeg"
	}
	if c.Bitrate == "" {
		c.Bitrate = "192k"
	}
	if c.SampleRate == 0 {
		c.SampleRate = 44100
	}
	if c.Channels == 0 {
		c.Channels = 2
	}
	if c.GracePeriod == 0 {
		c.GracePeriod = 10 * time.Second
	}
}

// Validate checks the configuration for invalid values.
func (c *ExtractorConfig) Validate() error {
	if c.Binary == "" {
		return fmt.Errorf("extractor.binary is required")
	}
	if c.SampleRate < 0 {
		return fmt.Errorf("extractor.sample_rate must be non-negative (got: %d)", c.SampleRate)
	}
	if c.Channels < 0 {
		return fmt.Errorf("extractor.channels must be non-negative (got: %d)", c.Channels)
	}
	return nil
}

// ExtractOptions controls a single extraction.
type ExtractOptions struct {
	// RemoveSilence trims silent stretches from the extracted audio.
	RemoveSilence bool
}

// Extractor produces an mp3 audio artifact from a video file by shelling
// out to the configured transcoding tool.
type Extractor struct {
	cfg ExtractorConfig
	log *logger.Logger
}

// NewExtractor creates an Extractor with the given configuration.
func NewExtractor(cfg ExtractorConfig, log *logger.Logger) *Extractor {
	cfg.ApplyDefaults()
	return &Extractor{
		cfg: cfg,
		log: log.WithComponent("extractor"),
	}
}

// Extract pulls the audio stream out of videoPath and writes it next to the
// input with an .mp3 extension. It returns the path of the new artifact.
func (e *Extractor) Extract(ctx context.Context, videoPath string, opts ExtractOptions) (string, error) {
	if !process.Available(e.cfg.Binary) {
		return "", errors.ExternalTool(e.cfg.Binary, "is not installed or not on PATH")
	}

	audioPath := strings.TrimSuffix(videoPath, filepath.Ext(videoPath)) + ".mp3"

	args := []string{
		"-i", videoPath,
		"-vn",
		"-acodec", "libmp3lame",
		"-ab", e.cfg.Bitrate,
		"-ar", fmt.Sprintf("%d", e.cfg.SampleRate),
		"-ac", fmt.Sprintf("%d", e.cfg.Channels),
	}
	if opts.RemoveSilence {
		// Drop every silent stretch of 500ms or more below -40dB.
		args = append(args, "-af", "silenceremove=stop_periods=-1:stop_duration=0.5:stop_threshold=-40dB")
	}
	args = append(args, "-y", audioPath)

	e.log.Info("Extracting audio from video", map[string]interface{}{
		"input":  videoPath,
		"output": audioPath,
	})

	start := time.Now()
	result, err := process.Run(ctx, process.Command{
		Binary:      e.cfg.Binary,
		Args:        args,
		GracePeriod: e.cfg.GracePeriod,
	})
	if err != nil {
		reason := fmt.Sprintf("audio extraction failed: %v", err)
		if result != nil && len(result.Stderr) > 0 {
			reason = fmt.Sprintf("audio extraction failed: %s", tail(result.Stderr, 500))
		}
		return "", errors.ExternalTool(e.cfg.Binary, reason).WithCause(err)
	}

	e.log.Info("Audio extracted", logger.DurationFields("extract", time.Since(start)))
	return audioPath, nil
}

// tail returns the last n bytes of b as a trimmed string.
func tail(b []byte, n int) string {
	if len(b) > n {
		b = b[len(b)-n:]
	}
	return strings.TrimSpace(string(b))
}

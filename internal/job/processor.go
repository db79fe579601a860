package job

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/skillsenselab/meetscribe/internal/media"
	"github.com/skillsenselab/meetscribe/internal/speech"
	"github.com/skillsenselab/meetscribe/internal/transcript"
	"github.com/skillsenselab/meetscribe/pkg/errors"
	"github.com/skillsenselab/meetscribe/pkg/logger"
)

// Extractor pulls an audio track out of a video file. Implemented by
// media.Extractor; narrowed to an interface so tests can stub it.
type Extractor interface {
	Extract(ctx context.Context, videoPath string, opts media.ExtractOptions) (string, error)
}

// Processor drives a single transcription job through its phases:
// classify, extract audio if the upload is a video, recognize, build
// the transcript, persist the result file, and clean up provisional
// artifacts. There are no retries; the first error fails the job.
type Processor struct {
	registry   *Registry
	extractor  Extractor
	recognizer speech.Provider
	resultsDir string
	log        *logger.Logger
}

// NewProcessor wires a processor. resultsDir must exist and be writable.
func NewProcessor(registry *Registry, extractor Extractor, recognizer speech.Provider, resultsDir string, log *logger.Logger) *Processor {
	return &Processor{
		registry:   registry,
		extractor:  extractor,
		recognizer: recognizer,
		resultsDir: resultsDir,
		log:        log.WithComponent("processor"),
	}
}

// Process runs the task to a terminal state. Cleanup of the uploaded
// file always happens, success or failure, and cleanup errors never
// mask the job outcome.
func (p *Processor) Process(ctx context.Context, task Task) {
	log := p.log.WithJob(task.JobID)

	extractedAudio, err := p.run(ctx, task, log)

	// The uploaded file is provisional on every terminal path.
	p.removeArtifact(task.UploadPath, log)
	if extractedAudio != "" && !task.Options.KeepAudio {
		p.removeArtifact(extractedAudio, log)
	}

	if err != nil {
		msg := errorMessage(err)
		p.registry.Fail(task.JobID, msg)
		log.WithError(err).Error("Job failed", map[string]interface{}{"reason": msg})
	}
}

// run executes the pipeline phases and records success in the
// registry. It returns the extracted audio path, if any, so the caller
// can clean it up on every outcome.
func (p *Processor) run(ctx context.Context, task Task, log *logger.Logger) (string, error) {
	p.registry.SetProgress(task.JobID, StatusProcessing, "Analyzing file...")

	audioPath := task.UploadPath
	extracted := ""

	switch media.Classify(task.Filename) {
	case media.KindVideo:
		p.registry.SetProgress(task.JobID, StatusProcessing, "Extracting audio from video...")
		out, err := p.extractor.Extract(ctx, task.UploadPath, media.ExtractOptions{
			RemoveSilence: task.Options.RemoveSilence,
		})
		if err != nil {
			return "", err
		}
		audioPath = out
		extracted = out
	case media.KindAudio:
		p.registry.SetProgress(task.JobID, StatusProcessing, "Processing audio file...")
	default:
		return "", errors.UnsupportedFormat(filepath.Ext(task.Filename))
	}

	p.registry.SetProgress(task.JobID, StatusProcessing, "Transcribing with speaker diarization...")
	result, err := p.recognizer.Recognize(ctx, speech.RecognizeRequest{
		AudioPath:    audioPath,
		LanguageCode: task.Options.LanguageCode,
		MinSpeakers:  task.Options.MinSpeakers,
		MaxSpeakers:  task.Options.MaxSpeakers,
	})
	if err != nil {
		return extracted, err
	}

	text := transcript.Build(result)

	resultPath := filepath.Join(p.resultsDir, task.JobID+"_transcription.txt")
	if err := os.WriteFile(resultPath, []byte(text), 0o644); err != nil {
		return extracted, errors.Artifact(fmt.Sprintf("write result file: %v", err)).WithCause(err)
	}

	if !p.registry.Complete(task.JobID, text, resultPath) {
		// Job was deleted while processing. Nothing will ever serve
		// the result file, so discard it.
		p.removeArtifact(resultPath, log)
		log.Info("Job record gone, discarding result", map[string]interface{}{"result_file": resultPath})
		return extracted, nil
	}
	log.Info("Job completed", map[string]interface{}{"result_file": resultPath})
	return extracted, nil
}

// removeArtifact deletes a provisional file. Failures are logged and
// swallowed.
func (p *Processor) removeArtifact(path string, log *logger.Logger) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		log.Warn("Failed to remove artifact", map[string]interface{}{
			"path":  path,
			"error": err.Error(),
		})
	}
}

// errorMessage prefers the AppError message over the wrapped chain so
// job records stay readable.
func errorMessage(err error) string {
	if appErr, ok := errors.AsAppError(err); ok {
		return appErr.Message
	}
	return err.Error()
}

var _ Handler = (*Processor)(nil)

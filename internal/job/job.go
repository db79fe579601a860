// Package job tracks transcription jobs: an in-memory registry of job
// records, a bounded worker pool that drains queued work, and the
// processor that drives a single job from upload to transcript.
package job

import "time"

// Status is the lifecycle state of a transcription job.
type Status string

const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether the status is a final state.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Job is the externally visible record of a transcription job.
// CompletedAt is set exactly when the job reaches a terminal status,
// and Error is only ever set on failed jobs.
type Job struct {
	ID            string     `json:"job_id"`
	Status        Status     `json:"status"`
	Progress      string     `json:"progress"`
	Filename      string     `json:"filename"`
	FileType      string     `json:"file_type"`
	CreatedAt     time.Time  `json:"created_at"`
	CompletedAt   *time.Time `json:"completed_at"`
	Error         string     `json:"error,omitempty"`
	ResultFile    string     `json:"result_file,omitempty"`
	Transcription string     `json:"transcription,omitempty"`
}

// Options are the recognition parameters captured at submission time.
type Options struct {
	LanguageCode  string
	MinSpeakers   int
	MaxSpeakers   int
	KeepAudio     bool
	RemoveSilence bool
}

// Task is a unit of queued work handed to the worker pool. The upload
// path points at the provisional copy of the submitted file.
type Task struct {
	JobID      string
	UploadPath string
	Filename   string
	Options    Options
}

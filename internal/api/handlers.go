// Package api exposes the HTTP surface of the transcription service:
// job submission, status and listing, result download, job deletion,
// and a health probe.
package api

import (
	stderrors "errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/skillsenselab/meetscribe/internal/job"
	"github.com/skillsenselab/meetscribe/internal/media"
	"github.com/skillsenselab/meetscribe/pkg/errors"
	"github.com/skillsenselab/meetscribe/pkg/logger"
)

// Submitter enqueues a job task for background processing. Implemented
// by job.Pool.
type Submitter interface {
	Submit(task job.Task) error
}

// Handler serves the job API.
type Handler struct {
	registry  *job.Registry
	pool      Submitter
	uploadDir string
	service   string
	version   string
	log       *logger.Logger
}

// NewHandler wires the API handler. uploadDir must exist and be
// writable.
func NewHandler(registry *job.Registry, pool Submitter, uploadDir, service, version string, log *logger.Logger) *Handler {
	return &Handler{
		registry:  registry,
		pool:      pool,
		uploadDir: uploadDir,
		service:   service,
		version:   version,
		log:       log.WithComponent("api"),
	}
}

// RegisterRoutes mounts the API on the given engine.
func (h *Handler) RegisterRoutes(r gin.IRouter) {
	r.GET("/api/health", h.Health)

	r.POST("/api/transcribe", h.CreateJob)
	r.GET("/api/jobs", h.ListJobs)
	r.GET("/api/jobs/:id", h.GetJob)
	r.GET("/api/jobs/:id/download", h.DownloadResult)
	r.DELETE("/api/jobs/:id", h.DeleteJob)
}

// transcribeForm carries the recognition parameters of a submission.
type transcribeForm struct {
	LanguageCode  string `form:"language_code,default=en-US"`
	MinSpeakers   int    `form:"min_speakers,default=2" binding:"min=1"`
	MaxSpeakers   int    `form:"max_speakers,default=5" binding:"min=1,gtefield=MinSpeakers"`
	KeepAudio     bool   `form:"keep_audio"`
	RemoveSilence bool   `form:"remove_silence"`
}

// CreateJob accepts a multipart upload and queues a transcription job.
// Unsupported file formats are rejected before any job record exists.
func (h *Handler) CreateJob(c *gin.Context) {
	var form transcribeForm
	if err := c.ShouldBind(&form); err != nil {
		writeError(c, bindingError(err))
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		writeError(c, errors.MissingField("file"))
		return
	}

	if media.Classify(fileHeader.Filename) == media.KindUnsupported {
		writeError(c, errors.UnsupportedFormat(filepath.Ext(fileHeader.Filename)))
		return
	}

	jobID := uuid.New().String()
	uploadPath := filepath.Join(h.uploadDir, jobID+filepath.Ext(fileHeader.Filename))

	if err := h.saveUpload(fileHeader, uploadPath); err != nil {
		writeError(c, errors.Artifact(fmt.Sprintf("save uploaded file: %v", err)).WithCause(err))
		return
	}

	h.registry.Create(job.Job{
		ID:       jobID,
		Status:   job.StatusQueued,
		Progress: "File uploaded, queued for processing",
		Filename: fileHeader.Filename,
		FileType: string(media.Classify(fileHeader.Filename)),
	})

	task := job.Task{
		JobID:      jobID,
		UploadPath: uploadPath,
		Filename:   fileHeader.Filename,
		Options: job.Options{
			LanguageCode:  form.LanguageCode,
			MinSpeakers:   form.MinSpeakers,
			MaxSpeakers:   form.MaxSpeakers,
			KeepAudio:     form.KeepAudio,
			RemoveSilence: form.RemoveSilence,
		},
	}
	if err := h.pool.Submit(task); err != nil {
		h.registry.Delete(jobID)
		h.removeFile(uploadPath)
		writeError(c, err)
		return
	}

	h.log.Info("Transcription job created", map[string]interface{}{
		"job_id":   jobID,
		"filename": fileHeader.Filename,
	})

	c.JSON(http.StatusOK, gin.H{
		"job_id":  jobID,
		"message": "Transcription job created successfully",
		"status":  job.StatusQueued,
	})
}

// GetJob returns the current state of a job.
func (h *Handler) GetJob(c *gin.Context) {
	j, ok := h.registry.Get(c.Param("id"))
	if !ok {
		writeError(c, errors.NotFound("job", c.Param("id")))
		return
	}
	c.JSON(http.StatusOK, j)
}

// ListJobs returns jobs newest first, capped by the limit query
// parameter (default 10), plus the total count.
func (h *Handler) ListJobs(c *gin.Context) {
	var q struct {
		Limit int `form:"limit,default=10" binding:"min=1"`
	}
	if err := c.ShouldBindQuery(&q); err != nil {
		writeError(c, errors.InvalidInput("limit", err.Error()))
		return
	}

	jobs, total := h.registry.List(q.Limit)
	c.JSON(http.StatusOK, gin.H{"jobs": jobs, "total": total})
}

// DownloadResult streams the transcript file of a completed job.
func (h *Handler) DownloadResult(c *gin.Context) {
	j, ok := h.registry.Get(c.Param("id"))
	if !ok {
		writeError(c, errors.NotFound("job", c.Param("id")))
		return
	}
	if j.Status != job.StatusCompleted {
		writeError(c, errors.Conflict("transcription is not completed yet").WithHTTPStatus(http.StatusBadRequest))
		return
	}
	if j.ResultFile == "" {
		writeError(c, errors.NotFound("result file", j.ID))
		return
	}
	if _, err := os.Stat(j.ResultFile); err != nil {
		writeError(c, errors.NotFound("result file", j.ID))
		return
	}

	c.FileAttachment(j.ResultFile, j.Filename+"_transcription.txt")
}

// DeleteJob removes a job record and its durable result file. A run
// already in flight is not interrupted.
func (h *Handler) DeleteJob(c *gin.Context) {
	j, ok := h.registry.Delete(c.Param("id"))
	if !ok {
		writeError(c, errors.NotFound("job", c.Param("id")))
		return
	}
	if j.ResultFile != "" {
		h.removeFile(j.ResultFile)
	}

	c.JSON(http.StatusOK, gin.H{"message": "Job deleted successfully"})
}

// Health reports service liveness.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": h.service,
		"version": h.version,
	})
}

func (h *Handler) saveUpload(fileHeader *multipart.FileHeader, dst string) error {
	src, err := fileHeader.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, src)
	return err
}

// removeFile deletes a file, logging and swallowing failures.
func (h *Handler) removeFile(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		h.log.Warn("Failed to remove file", map[string]interface{}{
			"path":  path,
			"error": err.Error(),
		})
	}
}

// bindingError translates validator failures into field-level input
// errors instead of leaking struct internals to clients.
func bindingError(err error) error {
	var verrs validator.ValidationErrors
	if stderrors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return errors.InvalidInput(fe.Field(), fmt.Sprintf("failed %q validation", fe.Tag()))
	}
	return errors.InvalidInput("form", err.Error())
}

// writeError renders an error as a JSON response with its HTTP status.
func writeError(c *gin.Context, err error) {
	appErr, ok := errors.AsAppError(err)
	if !ok {
		appErr = errors.Internal(err.Error())
	}
	c.JSON(appErr.HTTPStatus, appErr.ToResponse())
}

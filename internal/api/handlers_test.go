package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/skillsenselab/meetscribe/internal/job"
	"github.com/skillsenselab/meetscribe/pkg/errors"
	"github.com/skillsenselab/meetscribe/pkg/logger"
)

type stubPool struct {
	tasks []job.Task
	err   error
}

func (s *stubPool) Submit(task job.Task) error {
	if s.err != nil {
		return s.err
	}
	s.tasks = append(s.tasks, task)
	return nil
}

func newTestAPI(t *testing.T, pool *stubPool) (*gin.Engine, *job.Registry, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	registry := job.NewRegistry()
	uploadDir := t.TempDir()
	h := NewHandler(registry, pool, uploadDir, "meetscribe", "1.0.0", logger.NewDefault("test"))

	r := gin.New()
	h.RegisterRoutes(r)
	return r, registry, uploadDir
}

func multipartUpload(t *testing.T, filename string, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	if filename != "" {
		fw, err := w.CreateFormFile("file", filename)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := fw.Write([]byte("payload")); err != nil {
			t.Fatalf("write form file: %v", err)
		}
	}
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatalf("write field %s: %v", k, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return body, w.FormDataContentType()
}

func TestHealth(t *testing.T) {
	r, _, _ := newTestAPI(t, &stubPool{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["status"] != "healthy" || resp["service"] != "meetscribe" || resp["version"] != "1.0.0" {
		t.Errorf("unexpected health payload: %v", resp)
	}
}

func TestCreateJob(t *testing.T) {
	pool := &stubPool{}
	r, registry, uploadDir := newTestAPI(t, pool)

	body, contentType := multipartUpload(t, "meeting.mp4", map[string]string{
		"language_code": "de-DE",
		"min_speakers":  "3",
		"max_speakers":  "4",
		"keep_audio":    "true",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/transcribe", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		JobID   string `json:"job_id"`
		Status  string `json:"status"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "queued" || resp.JobID == "" {
		t.Errorf("unexpected response: %+v", resp)
	}

	j, ok := registry.Get(resp.JobID)
	if !ok {
		t.Fatal("expected job record to exist")
	}
	if j.Status != job.StatusQueued || j.Filename != "meeting.mp4" || j.FileType != "video" {
		t.Errorf("unexpected job record: %+v", j)
	}

	if len(pool.tasks) != 1 {
		t.Fatalf("expected 1 submitted task, got %d", len(pool.tasks))
	}
	task := pool.tasks[0]
	if task.Options.LanguageCode != "de-DE" || task.Options.MinSpeakers != 3 || task.Options.MaxSpeakers != 4 || !task.Options.KeepAudio {
		t.Errorf("unexpected task options: %+v", task.Options)
	}
	wantUpload := filepath.Join(uploadDir, resp.JobID+".mp4")
	if task.UploadPath != wantUpload {
		t.Errorf("upload path = %q, want %q", task.UploadPath, wantUpload)
	}
	data, err := os.ReadFile(wantUpload)
	if err != nil || string(data) != "payload" {
		t.Errorf("expected saved upload, got err=%v data=%q", err, data)
	}
}

func TestCreateJobDefaults(t *testing.T) {
	pool := &stubPool{}
	r, _, _ := newTestAPI(t, pool)

	body, contentType := multipartUpload(t, "interview.mp3", nil)
	req := httptest.NewRequest(http.MethodPost, "/api/transcribe", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	opts := pool.tasks[0].Options
	if opts.LanguageCode != "en-US" || opts.MinSpeakers != 2 || opts.MaxSpeakers != 5 {
		t.Errorf("unexpected defaults: %+v", opts)
	}
	if opts.KeepAudio || opts.RemoveSilence {
		t.Errorf("boolean options must default to false: %+v", opts)
	}
}

func TestCreateJobRejectsUnsupportedFormat(t *testing.T) {
	r, registry, _ := newTestAPI(t, &stubPool{})

	body, contentType := multipartUpload(t, "notes.txt", nil)
	req := httptest.NewRequest(http.MethodPost, "/api/transcribe", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Unsupported file format: .txt") {
		t.Errorf("unexpected body: %s", w.Body.String())
	}
	if _, total := registry.List(0); total != 0 {
		t.Error("no job record may exist for a rejected upload")
	}
}

func TestCreateJobRejectsBadSpeakerRange(t *testing.T) {
	r, _, _ := newTestAPI(t, &stubPool{})

	body, contentType := multipartUpload(t, "interview.mp3", map[string]string{
		"min_speakers": "4",
		"max_speakers": "2",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/transcribe", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
}

func TestCreateJobRejectsZeroSpeakers(t *testing.T) {
	pool := &stubPool{}
	r, registry, _ := newTestAPI(t, pool)

	body, contentType := multipartUpload(t, "interview.mp3", map[string]string{
		"min_speakers": "0",
		"max_speakers": "0",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/transcribe", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
	if len(pool.tasks) != 0 {
		t.Errorf("no task may be submitted for an invalid speaker range: %+v", pool.tasks)
	}
	if _, total := registry.List(0); total != 0 {
		t.Error("no job record may exist for an invalid speaker range")
	}
}

func TestCreateJobMissingFile(t *testing.T) {
	r, _, _ := newTestAPI(t, &stubPool{})

	body, contentType := multipartUpload(t, "", nil)
	req := httptest.NewRequest(http.MethodPost, "/api/transcribe", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestCreateJobQueueFullRollsBack(t *testing.T) {
	pool := &stubPool{err: errors.Conflict("job queue is full")}
	r, registry, uploadDir := newTestAPI(t, pool)

	body, contentType := multipartUpload(t, "interview.mp3", nil)
	req := httptest.NewRequest(http.MethodPost, "/api/transcribe", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", w.Code)
	}
	if _, total := registry.List(0); total != 0 {
		t.Error("job record must be rolled back when submission fails")
	}
	entries, err := os.ReadDir(uploadDir)
	if err != nil {
		t.Fatalf("read upload dir: %v", err)
	}
	if len(entries) != 0 {
		t.Error("uploaded file must be removed when submission fails")
	}
}

func TestGetJob(t *testing.T) {
	r, registry, _ := newTestAPI(t, &stubPool{})
	registry.Create(job.Job{ID: "j1", Status: job.StatusProcessing, Progress: "Analyzing file...", Filename: "a.mp3"})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/jobs/j1", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var got job.Job
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.ID != "j1" || got.Status != job.StatusProcessing {
		t.Errorf("unexpected job: %+v", got)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/jobs/missing", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestListJobs(t *testing.T) {
	r, registry, _ := newTestAPI(t, &stubPool{})
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		registry.Create(job.Job{ID: fmt.Sprintf("j%d", i), CreatedAt: base.Add(time.Duration(i) * time.Minute)})
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/jobs?limit=2", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp struct {
		Jobs  []job.Job `json:"jobs"`
		Total int       `json:"total"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Total != 3 || len(resp.Jobs) != 2 {
		t.Fatalf("expected total 3 with 2 jobs, got total %d with %d", resp.Total, len(resp.Jobs))
	}
	if resp.Jobs[0].ID != "j2" || resp.Jobs[1].ID != "j1" {
		t.Errorf("expected newest first, got %s, %s", resp.Jobs[0].ID, resp.Jobs[1].ID)
	}
}

func TestListJobsRejectsZeroLimit(t *testing.T) {
	r, registry, _ := newTestAPI(t, &stubPool{})
	registry.Create(job.Job{ID: "j1"})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/jobs?limit=0", nil))
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
}

func TestDownloadResult(t *testing.T) {
	r, registry, _ := newTestAPI(t, &stubPool{})

	resultFile := filepath.Join(t.TempDir(), "j1_transcription.txt")
	if err := os.WriteFile(resultFile, []byte("Speaker 1:\nhello\n"), 0o644); err != nil {
		t.Fatalf("write result: %v", err)
	}

	registry.Create(job.Job{ID: "j1", Status: job.StatusQueued, Filename: "call.mp3"})
	registry.Complete("j1", "Speaker 1:\nhello\n", resultFile)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/jobs/j1/download", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	data, _ := io.ReadAll(w.Body)
	if string(data) != "Speaker 1:\nhello\n" {
		t.Errorf("unexpected content: %q", data)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "call.mp3_transcription.txt") {
		t.Errorf("unexpected disposition: %q", cd)
	}
}

func TestDownloadResultNotCompleted(t *testing.T) {
	r, registry, _ := newTestAPI(t, &stubPool{})
	registry.Create(job.Job{ID: "j1", Status: job.StatusProcessing})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/jobs/j1/download", nil))
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestDownloadResultMissingFile(t *testing.T) {
	r, registry, _ := newTestAPI(t, &stubPool{})
	registry.Create(job.Job{ID: "j1", Status: job.StatusQueued})
	registry.Complete("j1", "text", "/nonexistent/j1_transcription.txt")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/jobs/j1/download", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestDeleteJob(t *testing.T) {
	r, registry, _ := newTestAPI(t, &stubPool{})

	resultFile := filepath.Join(t.TempDir(), "j1_transcription.txt")
	if err := os.WriteFile(resultFile, []byte("text"), 0o644); err != nil {
		t.Fatalf("write result: %v", err)
	}
	registry.Create(job.Job{ID: "j1", Status: job.StatusQueued})
	registry.Complete("j1", "text", resultFile)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/jobs/j1", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if _, ok := registry.Get("j1"); ok {
		t.Error("expected job to be removed")
	}
	if _, err := os.Stat(resultFile); !os.IsNotExist(err) {
		t.Error("expected result file to be removed")
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/jobs/j1", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404 for second delete, got %d", w.Code)
	}
}

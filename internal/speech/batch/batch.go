// Package batch implements speech.Provider against a cloud batch
// recognition API. Audio is staged into the configured bucket, a
// long-running recognition operation is started and polled to
// completion, and word-level JSON results are read back from the
// bucket's output prefix.
package batch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/skillsenselab/meetscribe/internal/speech"
	"github.com/skillsenselab/meetscribe/pkg/errors"
	"github.com/skillsenselab/meetscribe/pkg/logger"
	"github.com/skillsenselab/meetscribe/pkg/storage"
)

// ProviderName is the registered name for the batch recognition provider.
const ProviderName = "batch"

// Provider implements speech.Provider using a batch recognition API and
// a shared storage bucket.
type Provider struct {
	cfg    Config
	store  storage.Storage
	client *http.Client
	log    *logger.Logger

	// now is stubbed in tests to pin blob names.
	now func() time.Time
}

// NewProvider creates a batch recognition provider. It fails with a
// configuration error if the bucket, project, or endpoint is missing.
func NewProvider(cfg Config, store storage.Storage, log *logger.Logger) (*Provider, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Provider{
		cfg:   cfg,
		store: store,
		// The HTTP client carries no timeout. Individual calls are
		// bounded by the request context; the recognition operation
		// itself is bounded by OperationTimeout in Recognize.
		client: &http.Client{},
		log:    log.WithComponent("speech"),
		now:    time.Now,
	}, nil
}

// Name returns the provider name.
func (p *Provider) Name() string { return ProviderName }

// IsAvailable checks if the recognizer API is reachable.
func (p *Provider) IsAvailable(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.cfg.Endpoint+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// Recognize stages the audio, starts a batch recognition operation, waits
// for it to finish, and collects the word-level results. It never retries:
// a failed upload, start, or poll fails the call.
func (p *Provider) Recognize(ctx context.Context, req speech.RecognizeRequest) (*speech.Result, error) {
	timestamp := p.now().Unix()
	base := filepath.Base(req.AudioPath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))

	audioKey := fmt.Sprintf("audio-files/%d_%s", timestamp, base)
	outputPrefix := fmt.Sprintf("transcripts/%d_%s/", timestamp, stem)

	if err := p.uploadAudio(ctx, req.AudioPath, audioKey); err != nil {
		return nil, err
	}

	audioURI, err := p.store.URL(ctx, audioKey)
	if err != nil {
		return nil, errors.Backend(fmt.Sprintf("resolve audio location: %v", err)).WithCause(err)
	}

	opName, err := p.startOperation(ctx, audioURI, outputPrefix, req)
	if err != nil {
		return nil, err
	}

	p.log.Info("Batch recognition started", map[string]interface{}{
		"operation": opName,
		"audio":     audioURI,
	})

	if err := p.waitForOperation(ctx, opName); err != nil {
		return nil, err
	}

	return p.collectResults(ctx, outputPrefix)
}

// uploadAudio stages the local audio file under the given bucket key.
func (p *Provider) uploadAudio(ctx context.Context, path, key string) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Backend(fmt.Sprintf("open audio file: %v", err)).WithCause(err)
	}
	defer f.Close()

	if err := p.store.Upload(ctx, key, f); err != nil {
		return errors.Backend(fmt.Sprintf("stage audio in bucket: %v", err)).WithCause(err)
	}
	return nil
}

// startOperation submits the batch recognition request and returns the
// long-running operation name.
func (p *Provider) startOperation(ctx context.Context, audioURI, outputPrefix string, req speech.RecognizeRequest) (string, error) {
	body := batchRecognizeRequest{
		Recognizer: fmt.Sprintf("projects/%s/recognizers/_", p.cfg.ProjectID),
		Config: recognitionConfig{
			Model:         p.cfg.Model,
			LanguageCodes: []string{req.LanguageCode},
			Features: recognitionFeatures{
				EnableAutomaticPunctuation: true,
				DiarizationConfig: diarizationConfig{
					MinSpeakerCount: req.MinSpeakers,
					MaxSpeakerCount: req.MaxSpeakers,
				},
			},
		},
		Files:        []fileMetadata{{URI: audioURI}},
		OutputConfig: outputConfig{OutputPrefix: outputPrefix},
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", errors.Backend(fmt.Sprintf("encode recognition request: %v", err)).WithCause(err)
	}

	url := fmt.Sprintf("%s/v2/projects/%s/recognizers/_:batchRecognize", p.cfg.Endpoint, p.cfg.ProjectID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", errors.Backend(fmt.Sprintf("create recognition request: %v", err)).WithCause(err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return "", errors.Backend(fmt.Sprintf("recognition request: %v", err)).WithCause(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		return "", errors.Backend(fmt.Sprintf("recognizer rejected request (status %d): %s", resp.StatusCode, strings.TrimSpace(string(data))))
	}

	var op operation
	if err := json.NewDecoder(resp.Body).Decode(&op); err != nil {
		return "", errors.Backend(fmt.Sprintf("decode operation: %v", err)).WithCause(err)
	}
	if op.Name == "" {
		return "", errors.Backend("recognizer returned no operation name")
	}
	return op.Name, nil
}

// waitForOperation polls the operation until it is done or the ceiling is hit.
func (p *Provider) waitForOperation(ctx context.Context, opName string) error {
	deadline := time.NewTimer(p.cfg.OperationTimeout)
	defer deadline.Stop()
	tick := time.NewTicker(p.cfg.PollInterval)
	defer tick.Stop()

	for {
		op, err := p.pollOperation(ctx, opName)
		if err != nil {
			return err
		}
		if op.Done {
			if op.Error != nil {
				return errors.Backend(fmt.Sprintf("recognition failed: %s", op.Error.Message))
			}
			return nil
		}

		select {
		case <-ctx.Done():
			return errors.Backend(fmt.Sprintf("recognition aborted: %v", ctx.Err())).WithCause(ctx.Err())
		case <-deadline.C:
			return errors.Backend(fmt.Sprintf("recognition did not finish within %s", p.cfg.OperationTimeout))
		case <-tick.C:
		}
	}
}

func (p *Provider) pollOperation(ctx context.Context, opName string) (*operation, error) {
	url := fmt.Sprintf("%s/v2/%s", p.cfg.Endpoint, opName)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Backend(fmt.Sprintf("create poll request: %v", err)).WithCause(err)
	}

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, errors.Backend(fmt.Sprintf("poll operation: %v", err)).WithCause(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		return nil, errors.Backend(fmt.Sprintf("poll failed (status %d): %s", resp.StatusCode, strings.TrimSpace(string(data))))
	}

	var op operation
	if err := json.NewDecoder(resp.Body).Decode(&op); err != nil {
		return nil, errors.Backend(fmt.Sprintf("decode operation status: %v", err)).WithCause(err)
	}
	return &op, nil
}

// collectResults lists the bucket output prefix and parses every JSON
// result file into word-level chunks. An empty or unreadable prefix is
// not a hard failure: it yields an empty result, which renders as the
// "no results" sentinel downstream.
func (p *Provider) collectResults(ctx context.Context, outputPrefix string) (*speech.Result, error) {
	files, err := p.store.List(ctx, outputPrefix)
	if err != nil {
		p.log.Warn("Listing result prefix failed", logger.ErrorFields("list_results", err))
		return &speech.Result{}, nil
	}

	result := &speech.Result{}
	for _, fi := range files {
		if !strings.HasSuffix(fi.Path, ".json") {
			continue
		}
		chunks, err := p.parseResultFile(ctx, fi.Path)
		if err != nil {
			p.log.Warn("Skipping unreadable result file", map[string]interface{}{
				"path":  fi.Path,
				"error": err.Error(),
			})
			continue
		}
		result.Chunks = append(result.Chunks, chunks...)
	}
	return result, nil
}

func (p *Provider) parseResultFile(ctx context.Context, path string) ([]speech.Chunk, error) {
	rc, err := p.store.Download(ctx, path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	var file resultFile
	if err := json.NewDecoder(rc).Decode(&file); err != nil {
		return nil, fmt.Errorf("decode result file: %w", err)
	}

	var chunks []speech.Chunk
	for _, res := range file.Results {
		if len(res.Alternatives) == 0 {
			continue
		}
		alt := res.Alternatives[0]
		if len(alt.Words) == 0 {
			continue
		}
		chunk := speech.Chunk{Words: make([]speech.Word, 0, len(alt.Words))}
		for _, w := range alt.Words {
			chunk.Words = append(chunk.Words, speech.Word{
				Word:    w.Word,
				Speaker: w.speaker(),
			})
		}
		chunks = append(chunks, chunk)
	}
	return chunks, nil
}

// --- wire types ---

type batchRecognizeRequest struct {
	Recognizer   string            `json:"recognizer"`
	Config       recognitionConfig `json:"config"`
	Files        []fileMetadata    `json:"files"`
	OutputConfig outputConfig      `json:"recognitionOutputConfig"`
}

type recognitionConfig struct {
	Model         string              `json:"model"`
	LanguageCodes []string            `json:"languageCodes"`
	Features      recognitionFeatures `json:"features"`
}

type recognitionFeatures struct {
	EnableAutomaticPunctuation bool              `json:"enableAutomaticPunctuation"`
	DiarizationConfig          diarizationConfig `json:"diarizationConfig"`
}

type diarizationConfig struct {
	MinSpeakerCount int `json:"minSpeakerCount"`
	MaxSpeakerCount int `json:"maxSpeakerCount"`
}

type fileMetadata struct {
	URI string `json:"uri"`
}

type outputConfig struct {
	OutputPrefix string `json:"outputPrefix"`
}

type operation struct {
	Name  string    `json:"name"`
	Done  bool      `json:"done"`
	Error *opStatus `json:"error,omitempty"`
}

type opStatus struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type resultFile struct {
	Results []resultEntry `json:"results"`
}

type resultEntry struct {
	Alternatives []alternative `json:"alternatives"`
}

type alternative struct {
	Transcript string     `json:"transcript"`
	Words      []wordInfo `json:"words"`
}

type wordInfo struct {
	Word         string `json:"word"`
	SpeakerLabel string `json:"speakerLabel"`
	SpeakerTag   int    `json:"speakerTag"`
}

// speaker resolves the diarization label, preferring the string label and
// falling back to the numeric tag.
func (w wordInfo) speaker() string {
	if w.SpeakerLabel != "" {
		return w.SpeakerLabel
	}
	if w.SpeakerTag != 0 {
		return fmt.Sprintf("%d", w.SpeakerTag)
	}
	return ""
}

// compile-time check
var _ speech.Provider = (*Provider)(nil)

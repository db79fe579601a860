// Command meetscribe runs the transcription service: an HTTP API that
// accepts audio and video uploads, extracts audio where needed, sends
// it through batch speech recognition with speaker diarization, and
// serves the resulting transcripts.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/skillsenselab/meetscribe/internal/api"
	"github.com/skillsenselab/meetscribe/internal/config"
	"github.com/skillsenselab/meetscribe/internal/job"
	"github.com/skillsenselab/meetscribe/internal/media"
	"github.com/skillsenselab/meetscribe/internal/speech/batch"
	"github.com/skillsenselab/meetscribe/pkg/logger"
	"github.com/skillsenselab/meetscribe/pkg/server"
	"github.com/skillsenselab/meetscribe/pkg/storage"

	_ "github.com/skillsenselab/meetscribe/pkg/storage/local"
	_ "github.com/skillsenselab/meetscribe/pkg/storage/s3"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "meetscribe: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := cfg.Dirs.Ensure(); err != nil {
		return err
	}

	logger.Init(cfg.Logging)
	log := logger.GetGlobalLogger()
	log.Info("Starting service", map[string]interface{}{
		"name":        cfg.Name,
		"version":     cfg.Version,
		"environment": cfg.Environment,
	})

	store, err := storage.New(cfg.Storage, log)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}

	recognizer, err := batch.NewProvider(cfg.Speech, store, log)
	if err != nil {
		return err
	}
	if !recognizer.IsAvailable(context.Background()) {
		log.Warn("Speech recognizer is not reachable; jobs will fail until it is", map[string]interface{}{
			"endpoint": cfg.Speech.Endpoint,
		})
	}

	extractor := media.NewExtractor(cfg.Media, log)
	registry := job.NewRegistry()
	processor := job.NewProcessor(registry, extractor, recognizer, cfg.Dirs.ResultsDir, log)

	pool := job.NewPool(cfg.Jobs.Workers, cfg.Jobs.QueueSize, processor, log)
	pool.Start()

	srv := server.New(cfg.Server, log)
	handler := api.NewHandler(registry, pool, cfg.Dirs.UploadDir, cfg.Name, cfg.Version, log)
	handler.RegisterRoutes(srv.GinEngine())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := srv.Start(ctx); err != nil {
		pool.Stop()
		return err
	}

	<-ctx.Done()
	log.Info("Shutdown signal received")

	if err := srv.Stop(context.Background()); err != nil {
		log.Warn("Server shutdown error", map[string]interface{}{"error": err.Error()})
	}
	pool.Stop()

	log.Info("Service stopped")
	return nil
}

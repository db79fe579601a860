package local

import (
	"context"
	"io"
	"strings"
	"testing"
)

func TestUploadDownload(t *testing.T) {
	s, err := NewStorage(t.TempDir())
	if err != nil {
		t.Fatalf("NewStorage: %v", err)
	}
	ctx := context.Background()

	if err := s.Upload(ctx, "audio-files/a.mp3", strings.NewReader("payload")); err != nil {
		t.Fatalf("Upload: %v", err)
	}

	rc, err := s.Download(ctx, "audio-files/a.mp3")
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(data) != "payload" {
		t.Fatalf("expected 'payload', got %q", data)
	}
}

func TestDownloadMissing(t *testing.T) {
	s, err := NewStorage(t.TempDir())
	if err != nil {
		t.Fatalf("NewStorage: %v", err)
	}
	if _, err := s.Download(context.Background(), "nope.json"); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestDeleteIdempotent(t *testing.T) {
	s, err := NewStorage(t.TempDir())
	if err != nil {
		t.Fatalf("NewStorage: %v", err)
	}
	ctx := context.Background()

	if err := s.Upload(ctx, "x.txt", strings.NewReader("x")); err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if err := s.Delete(ctx, "x.txt"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	// second delete of a gone file is not an error
	if err := s.Delete(ctx, "x.txt"); err != nil {
		t.Fatalf("Delete (missing): %v", err)
	}

	exists, err := s.Exists(ctx, "x.txt")
	if err != nil {
		t.Fatalf("Exists: %v", err)
	}
	if exists {
		t.Fatal("expected file to be gone")
	}
}

func TestListPrefix(t *testing.T) {
	s, err := NewStorage(t.TempDir())
	if err != nil {
		t.Fatalf("NewStorage: %v", err)
	}
	ctx := context.Background()

	for _, p := range []string{"transcripts/job1/r0.json", "transcripts/job1/r1.json", "transcripts/job2/r0.json"} {
		if err := s.Upload(ctx, p, strings.NewReader("{}")); err != nil {
			t.Fatalf("Upload %s: %v", p, err)
		}
	}

	files, err := s.List(ctx, "transcripts/job1/")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("expected 2 files, got %d", len(files))
	}
	if files[0].Path > files[1].Path {
		t.Fatal("expected files sorted by path")
	}
}

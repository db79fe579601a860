package transcript

import (
	"strings"
	"testing"

	"github.com/skillsenselab/meetscribe/internal/speech"
)

func resultOf(words ...speech.Word) *speech.Result {
	return &speech.Result{Chunks: []speech.Chunk{{Words: words}}}
}

func TestReconstructGroupsConsecutiveSpeakers(t *testing.T) {
	result := resultOf(
		speech.Word{Word: "hi", Speaker: "A"},
		speech.Word{Word: "there", Speaker: "A"},
		speech.Word{Word: "yo", Speaker: "B"},
	)

	segments := Reconstruct(result)
	want := []Segment{
		{Speaker: "A", Text: "hi there"},
		{Speaker: "B", Text: "yo"},
	}
	if len(segments) != len(want) {
		t.Fatalf("expected %d segments, got %d: %+v", len(want), len(segments), segments)
	}
	for i := range want {
		if segments[i] != want[i] {
			t.Errorf("segment %d = %+v, want %+v", i, segments[i], want[i])
		}
	}
}

func TestReconstructInterruptedSpeakerYieldsTwoSegments(t *testing.T) {
	result := resultOf(
		speech.Word{Word: "so", Speaker: "A"},
		speech.Word{Word: "wait", Speaker: "B"},
		speech.Word{Word: "anyway", Speaker: "A"},
	)

	segments := Reconstruct(result)
	if len(segments) != 3 {
		t.Fatalf("expected 3 segments, got %d: %+v", len(segments), segments)
	}
	if segments[0].Speaker != "A" || segments[2].Speaker != "A" {
		t.Errorf("expected speaker A in segments 0 and 2, got %+v", segments)
	}
}

func TestReconstructDefaultsMissingSpeaker(t *testing.T) {
	result := resultOf(
		speech.Word{Word: "hello"},
		speech.Word{Word: "world"},
	)

	segments := Reconstruct(result)
	if len(segments) != 1 {
		t.Fatalf("expected 1 segment, got %d", len(segments))
	}
	if segments[0].Speaker != UnknownSpeaker {
		t.Errorf("expected speaker %q, got %q", UnknownSpeaker, segments[0].Speaker)
	}
	if segments[0].Text != "hello world" {
		t.Errorf("expected joined text, got %q", segments[0].Text)
	}
}

func TestReconstructSpansChunks(t *testing.T) {
	// A speaker run that crosses a chunk boundary stays one segment.
	result := &speech.Result{Chunks: []speech.Chunk{
		{Words: []speech.Word{{Word: "first", Speaker: "A"}}},
		{Words: []speech.Word{{Word: "second", Speaker: "A"}}},
	}}

	segments := Reconstruct(result)
	if len(segments) != 1 {
		t.Fatalf("expected 1 segment, got %d: %+v", len(segments), segments)
	}
	if segments[0].Text != "first second" {
		t.Errorf("expected merged text, got %q", segments[0].Text)
	}
}

func TestReconstructEmptyInput(t *testing.T) {
	if got := Reconstruct(&speech.Result{}); got != nil {
		t.Errorf("expected nil segments, got %+v", got)
	}
	if got := Reconstruct(nil); got != nil {
		t.Errorf("expected nil segments for nil result, got %+v", got)
	}
}

func TestRenderEmptyReturnsSentinel(t *testing.T) {
	if got := Render(nil); got != NoResults {
		t.Errorf("expected sentinel, got %q", got)
	}
}

func TestRenderFormat(t *testing.T) {
	out := Render([]Segment{
		{Speaker: "1", Text: "hello there"},
		{Speaker: "2", Text: "hi"},
	})

	divider := strings.Repeat("=", 80)
	if !strings.HasPrefix(out, divider+"\nTRANSCRIPTION WITH SPEAKER DIARIZATION\n"+divider+"\n\n") {
		t.Errorf("unexpected header:\n%s", out)
	}
	if !strings.Contains(out, "Speaker 1:\nhello there\n\n") {
		t.Errorf("missing first block:\n%s", out)
	}
	if !strings.Contains(out, "Speaker 2:\nhi\n\n") {
		t.Errorf("missing second block:\n%s", out)
	}

	first := strings.Index(out, "Speaker 1:")
	second := strings.Index(out, "Speaker 2:")
	if first == -1 || second == -1 || first > second {
		t.Errorf("blocks out of order:\n%s", out)
	}
}

func TestBuildIsDeterministic(t *testing.T) {
	result := resultOf(
		speech.Word{Word: "a", Speaker: "A"},
		speech.Word{Word: "b", Speaker: "B"},
	)
	first := Build(result)
	second := Build(result)
	if first != second {
		t.Error("expected identical output for identical input")
	}
}

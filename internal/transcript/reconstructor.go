// Package transcript turns word-level recognition results into a
// speaker-attributed transcript. Words are grouped into segments by a
// single order-preserving pass: consecutive words with the same speaker
// label form one segment, and every speaker change closes the current
// run and opens a new one. A speaker who talks, is interrupted, and
// talks again produces two segments.
package transcript

import (
	"strings"

	"github.com/skillsenselab/meetscribe/internal/speech"
)

// UnknownSpeaker is substituted for words that carry no speaker label.
const UnknownSpeaker = "Unknown"

// NoResults is returned by Render when recognition produced no words.
const NoResults = "No transcription results found."

// Segment is a contiguous run of words attributed to one speaker.
type Segment struct {
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
}

// Reconstruct folds word-level results into speaker segments. The input
// order is preserved and never reordered or merged across runs.
func Reconstruct(result *speech.Result) []Segment {
	if result == nil {
		return nil
	}

	var (
		segments     []Segment
		currentWords []string
		current      string
		open         bool
	)

	flush := func() {
		if !open {
			return
		}
		segments = append(segments, Segment{
			Speaker: current,
			Text:    strings.Join(currentWords, " "),
		})
		currentWords = nil
	}

	for _, word := range result.Words() {
		speaker := word.Speaker
		if speaker == "" {
			speaker = UnknownSpeaker
		}
		if !open || speaker != current {
			flush()
			current = speaker
			open = true
		}
		currentWords = append(currentWords, word.Word)
	}
	flush()

	return segments
}

// Render formats segments as a transcript document. Empty input yields
// the NoResults sentinel rather than a bare header.
func Render(segments []Segment) string {
	if len(segments) == 0 {
		return NoResults
	}

	var b strings.Builder
	divider := strings.Repeat("=", 80)
	b.WriteString(divider + "\n")
	b.WriteString("TRANSCRIPTION WITH SPEAKER DIARIZATION\n")
	b.WriteString(divider + "\n\n")

	for _, seg := range segments {
		b.WriteString("Speaker " + seg.Speaker + ":\n")
		b.WriteString(seg.Text + "\n\n")
	}

	return b.String()
}

// Build is the full reconstruction pipeline: group words into segments
// and render them as a transcript document.
func Build(result *speech.Result) string {
	return Render(Reconstruct(result))
}

// Package speech defines the recognition provider interface and common
// types for interacting with diarizing speech-to-text backends.
package speech

import "context"

// Provider is the interface that recognition backends must implement.
type Provider interface {
	// Name returns the provider's unique name.
	Name() string

	// IsAvailable checks if the provider is ready to handle requests.
	IsAvailable(ctx context.Context) bool

	// Recognize submits audio for diarized transcription and blocks until
	// the backend finishes or fails. Calls may run for hours on long media.
	Recognize(ctx context.Context, req RecognizeRequest) (*Result, error)
}

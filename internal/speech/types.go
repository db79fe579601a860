package speech

// RecognizeRequest holds parameters for a diarized recognition call.
type RecognizeRequest struct {
	// AudioPath is the path to the local audio file to transcribe.
	AudioPath string `json:"audio_path"`
	// LanguageCode is the expected language of the audio (e.g. "en-US").
	LanguageCode string `json:"language_code,omitempty"`
	// MinSpeakers is the lower bound for speaker diarization.
	MinSpeakers int `json:"min_speakers"`
	// MaxSpeakers is the upper bound for speaker diarization.
	MaxSpeakers int `json:"max_speakers"`
}

// Word is a single recognized word with its speaker attribution.
type Word struct {
	// Word is the recognized token.
	Word string `json:"word"`
	// Speaker is the diarization label. Empty when the recognizer could
	// not attribute the word.
	Speaker string `json:"speaker,omitempty"`
}

// Chunk is one recognition result unit as produced by the backend.
type Chunk struct {
	// Words are the word-level entries in spoken order.
	Words []Word `json:"words"`
}

// Result holds the word-level output of a recognition call.
type Result struct {
	// Chunks are the recognition result units in original order.
	Chunks []Chunk `json:"chunks"`
}

// Words returns all words across chunks in encountered order.
func (r *Result) Words() []Word {
	var words []Word
	for _, c := range r.Chunks {
		words = append(words, c.Words...)
	}
	return words
}

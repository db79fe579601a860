// Package media classifies uploads by filename extension and extracts
// audio tracks from video containers with ffmpeg.
package media

import (
	"path/filepath"
	"strings"
)

// Kind is the media category of an uploaded file.
type Kind string

const (
	KindAudio       Kind = "audio"
	KindVideo       Kind = "video"
	KindUnsupported Kind = "unsupported"
)

var videoExtensions = map[string]bool{
	".mp4": true, ".avi": true, ".mov": true, ".mkv": true,
	".flv": true, ".wmv": true, ".webm": true, ".m4v": true,
	".mpg": true, ".mpeg": true, ".3gp": true, ".ogv": true,
}

var audioExtensions = map[string]bool{
	".mp3": true, ".wav": true, ".flac": true, ".m4a": true,
	".aac": true, ".ogg": true, ".wma": true, ".opus": true,
	".amr": true,
}

// Classify maps a filename to its media kind based solely on the extension,
// case-insensitively. It performs no I/O.
func Classify(filename string) Kind {
	ext := strings.ToLower(filepath.Ext(filename))
	switch {
	case videoExtensions[ext]:
		return KindVideo
	case audioExtensions[ext]:
		return KindAudio
	default:
		return KindUnsupported
	}
}

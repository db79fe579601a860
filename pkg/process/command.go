package process

import (
	"io"
	"time"
)

// Command describes a subprocess invocation, typically an ffmpeg or
// ffprobe run on an uploaded media file.
type Command struct {
	// Binary is the executable path or name (resolved via PATH).
	Binary string
	// Args are the command-line arguments.
	Args []string
	// Dir is the working directory. Empty means the current directory.
	Dir string
	// Env holds extra environment entries (key=value), merged with
	// os.Environ.
	Env []string
	// Stdin provides input to the process. May be nil.
	Stdin io.Reader
	// GracePeriod is how long a canceled run waits after SIGTERM before
	// escalating to SIGKILL. Zero means 5 seconds.
	GracePeriod time.Duration
}

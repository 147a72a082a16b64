// Package recording handles finished recordings: removing failed ones and
// uploading good ones to S3-compatible storage.
package recording

import (
	"errors"
	"time"
)

// Upload tuning.
const (
	// UploadTimeout bounds a single upload attempt.
	UploadTimeout = 5 * time.Minute
	// MaxUploadAttempts is how often an upload is tried before giving up.
	MaxUploadAttempts = 3
	// InitialUploadRetryDelay is the first pause between attempts.
	InitialUploadRetryDelay = 2 * time.Second
	// MaxUploadRetryDelay caps the pause between attempts.
	MaxUploadRetryDelay = 30 * time.Second
)

// ErrNothingToUpload is returned when the recording file is missing or empty.
var ErrNothingToUpload = errors.New("recording file is missing or empty")

// contentTypes maps recording extensions to MIME types.
var contentTypes = map[string]string{
	".mp4": "video/mp4",
	".mkv": "video/x-matroska",
	".flv": "video/x-flv",
	".mov": "video/quicktime",
	".ts":  "video/mp2t",
}

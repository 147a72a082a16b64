package util

import (
	"fmt"
	"time"
)

// recordingFilenameFormat names recordings after their UTC start time.
const recordingFilenameFormat = "2006-01-02-15-04-05"

// RecordingFilename returns the default file name for a recording started at t.
func RecordingFilename(t time.Time) string {
	return t.UTC().Format(recordingFilenameFormat) + ".mp4"
}

// FormatDuration formats milliseconds as a human-readable duration string.
// Examples: "45s", "2m 34s", "1h 23m"
func FormatDuration(ms int64) string {
	totalSeconds := ms / 1000
	if totalSeconds < 60 {
		return fmt.Sprintf("%ds", totalSeconds)
	}
	minutes := totalSeconds / 60
	seconds := totalSeconds % 60
	if minutes < 60 {
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}
	hours := minutes / 60
	minutes %= 60
	return fmt.Sprintf("%dh %dm", hours, minutes)
}

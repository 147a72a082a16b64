package recording

import (
	"log/slog"
	"os"
)

// FailedExitCode is the ffmpeg exit status that marks a recording as unusable.
const FailedExitCode = 1

// CleanupAfterExit removes the output file when ffmpeg exited with
// FailedExitCode and reports whether it did. Any other status keeps the file.
// Removal is best effort; errors are only logged.
func CleanupAfterExit(path string, exitCode int) bool {
	if exitCode != FailedExitCode {
		return false
	}
	if err := os.Remove(path); err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("failed to remove partial recording", "path", path, "error", err)
		}
		return false
	}
	slog.Info("removed partial recording", "path", path)
	return true
}

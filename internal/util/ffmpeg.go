package util

import (
	"os/exec"
	"path/filepath"
)

// DefaultFFmpegPath is the binary name looked up in PATH when no path is configured.
const DefaultFFmpegPath = "ffmpeg"

// ResolveFFmpegPath returns the path to the FFmpeg binary.
// If customPath is set, it validates the path exists and is executable and
// returns its absolute, symlink-free form.
// Otherwise, it searches for "ffmpeg" in the system PATH.
// Returns an empty string if FFmpeg is not found.
func ResolveFFmpegPath(customPath string) string {
	if customPath != "" && customPath != DefaultFFmpegPath {
		path, err := exec.LookPath(customPath)
		if err != nil {
			return ""
		}
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
		if resolved, err := filepath.EvalSymlinks(path); err == nil {
			path = resolved
		}
		return path
	}
	path, err := exec.LookPath(DefaultFFmpegPath)
	if err != nil {
		return ""
	}
	return path
}

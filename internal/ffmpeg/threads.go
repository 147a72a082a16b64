package ffmpeg

import (
	"log/slog"
	"runtime"

	"github.com/shirou/gopsutil/v4/cpu"
)

// Threads returns the encoder thread count: half the logical CPUs, at least one.
func Threads() int {
	n, err := cpu.Counts(true)
	if err != nil || n <= 0 {
		slog.Debug("failed to count CPUs, falling back to runtime", "error", err)
		n = runtime.NumCPU()
	}
	return max(n/2, 1)
}

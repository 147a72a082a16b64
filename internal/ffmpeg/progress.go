package ffmpeg

import (
	"bytes"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/oszuidwest/zwfm-screenrecorder/internal/types"
)

// maxPendingStatus bounds the unterminated stderr kept between writes.
const maxPendingStatus = 4096

// statusPair matches one key=value pair of ffmpeg's status line, where the
// value may be padded on the left: "fps= 60".
var statusPair = regexp.MustCompile(`(\w+)=\s*(\S+)`)

// ProgressWriter parses ffmpeg's periodic status lines from stderr.
// Lines are separated by '\r' or '\n'. It is safe for concurrent use.
type ProgressWriter struct {
	mu      sync.Mutex
	pending []byte
	emit    func(types.Progress)
}

// NewProgressWriter returns a writer that calls emit for every status line.
func NewProgressWriter(emit func(types.Progress)) *ProgressWriter {
	return &ProgressWriter{emit: emit}
}

// Write implements io.Writer. It never fails.
func (w *ProgressWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.pending = append(w.pending, p...)
	for {
		i := bytes.IndexAny(w.pending, "\r\n")
		if i < 0 {
			break
		}
		line := string(w.pending[:i])
		w.pending = w.pending[i+1:]
		if progress, ok := ParseProgress(line); ok {
			w.emit(progress)
		}
	}
	if len(w.pending) > maxPendingStatus {
		w.pending = w.pending[len(w.pending)-maxPendingStatus:]
	}
	return len(p), nil
}

// ParseProgress parses a status line such as
// "frame=  240 fps= 60 q=23.0 size=  1024kB time=00:00:04.00 bitrate=2097.2kbits/s speed=1x".
// It reports false for any other stderr output.
func ParseProgress(line string) (types.Progress, bool) {
	if !strings.HasPrefix(strings.TrimSpace(line), "frame=") {
		return types.Progress{}, false
	}

	var p types.Progress
	for _, m := range statusPair.FindAllStringSubmatch(line, -1) {
		key, value := m[1], m[2]
		switch key {
		case "frame":
			p.Frame, _ = strconv.ParseInt(value, 10, 64)
		case "fps":
			p.FPS, _ = strconv.ParseFloat(value, 64)
		case "size":
			digits := strings.TrimRightFunc(value, func(r rune) bool { return r < '0' || r > '9' })
			p.SizeKB, _ = strconv.ParseInt(digits, 10, 64)
		case "time":
			p.Time = value
		case "bitrate":
			p.Bitrate = value
		case "speed":
			p.Speed = value
		}
	}
	return p, true
}

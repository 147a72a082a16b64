// Package eventlog keeps a history of recordings in a JSON lines file.
// Each run appends its start, its outcome and any upload or cleanup.
package eventlog

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/adrg/xdg"
)

// EventType represents the type of event.
type EventType string

// Recording event types.
const (
	RecordingStarted  EventType = "recording_started"
	RecordingFinished EventType = "recording_finished"
	RecordingFailed   EventType = "recording_failed"
	RecordingRemoved  EventType = "recording_removed"
)

// Upload event types.
const (
	UploadCompleted EventType = "upload_completed"
	UploadFailed    EventType = "upload_failed"
)

// Event represents a single log entry.
type Event struct {
	Timestamp time.Time         `json:"ts"`
	Type      EventType         `json:"type"`
	Output    string            `json:"output"`
	Message   string            `json:"msg,omitempty"`
	Details   *RecordingDetails `json:"details,omitempty"`
}

// RecordingDetails describes the capture and its outcome.
type RecordingDetails struct {
	Stream      bool   `json:"stream,omitempty"`
	Window      bool   `json:"window,omitempty"`
	Screen      string `json:"screen,omitempty"` // WxH
	Canvas      string `json:"canvas,omitempty"` // WxH
	ExitCode    *int   `json:"exit_code,omitempty"`
	Interrupted bool   `json:"interrupted,omitempty"`
	DurationMs  int64  `json:"duration_ms,omitempty"`
	S3Key       string `json:"s3_key,omitempty"`
	Error       string `json:"error,omitempty"`
}

// Logger writes events to a JSON lines file. It is safe for concurrent use.
type Logger struct {
	mu       sync.Mutex
	filePath string
	file     *os.File
	encoder  *json.Encoder
}

// DefaultLogPath returns the history file under $XDG_STATE_HOME.
func DefaultLogPath() (string, error) {
	path, err := xdg.StateFile(filepath.Join("zwfm-screenrecorder", "history.jsonl"))
	if err != nil {
		return "", fmt.Errorf("resolve history path: %w", err)
	}
	return path, nil
}

// NewLogger creates a new event logger at the specified path.
func NewLogger(filePath string) (*Logger, error) {
	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	file, err := os.OpenFile(filePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	return &Logger{
		filePath: filePath,
		file:     file,
		encoder:  json.NewEncoder(file),
	}, nil
}

// Log writes an event to the log file.
func (l *Logger) Log(event *Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	return l.encoder.Encode(event)
}

// Close closes the log file.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file != nil {
		err := l.file.Close()
		l.file = nil
		return err
	}
	return nil
}

// Path returns the path to the log file.
func (l *Logger) Path() string {
	return l.filePath
}

// TypeFilter specifies which event types to include when reading.
type TypeFilter string

// Filter constants for ReadLast.
const (
	FilterAll       TypeFilter = ""
	FilterRecording TypeFilter = "recording"
	FilterUpload    TypeFilter = "upload"
)

// ParseFilter returns the filter for name.
func ParseFilter(name string) (TypeFilter, error) {
	switch f := TypeFilter(name); f {
	case FilterAll, FilterRecording, FilterUpload:
		return f, nil
	case "all":
		return FilterAll, nil
	default:
		return "", fmt.Errorf("unknown event filter %q: must be one of all, recording, upload", name)
	}
}

// MaxReadLimit is the maximum number of events that can be read at once.
const MaxReadLimit = 500

// ReadLast returns up to n events after skipping offset, newest first.
// The second result reports whether older events remain.
func ReadLast(filePath string, n, offset int, filter TypeFilter) ([]Event, bool, error) {
	n = min(n, MaxReadLimit)
	if n <= 0 {
		return []Event{}, false, nil
	}

	file, err := os.Open(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return []Event{}, false, nil
		}
		return nil, false, err
	}
	defer file.Close() //nolint:errcheck // Read-only operation, close error not critical

	var lines []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, false, err
	}

	events := make([]Event, 0, n)
	skipped := 0
	for i := len(lines) - 1; i >= 0; i-- {
		var event Event
		if err := json.Unmarshal([]byte(lines[i]), &event); err != nil {
			continue // Skip malformed lines
		}
		if !filter.matches(event.Type) {
			continue
		}
		if skipped < offset {
			skipped++
			continue
		}
		if len(events) == n {
			return events, true, nil
		}
		events = append(events, event)
	}

	return events, false, nil
}

func (f TypeFilter) matches(t EventType) bool {
	switch f {
	case FilterRecording:
		return IsRecordingEvent(t)
	case FilterUpload:
		return IsUploadEvent(t)
	default:
		return true
	}
}

// IsRecordingEvent returns true if the event type is a recording event.
func IsRecordingEvent(t EventType) bool {
	return t == RecordingStarted || t == RecordingFinished || t == RecordingFailed || t == RecordingRemoved
}

// IsUploadEvent returns true if the event type is an upload event.
func IsUploadEvent(t EventType) bool {
	return t == UploadCompleted || t == UploadFailed
}

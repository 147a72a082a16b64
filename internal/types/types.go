// Package types provides shared type definitions used across the recorder.
package types

import (
	"fmt"
	"strings"
)

// Resolution is a pixel size.
type Resolution struct {
	Width  int32 `json:"width"`
	Height int32 `json:"height"`
}

// String returns the resolution as WIDTHxHEIGHT, the form ffmpeg expects for -s.
func (r Resolution) String() string {
	return fmt.Sprintf("%dx%d", r.Width, r.Height)
}

// Empty reports whether the resolution has no area.
func (r Resolution) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Fits reports whether r fits inside other on both axes.
func (r Resolution) Fits(other Resolution) bool {
	return r.Width <= other.Width && r.Height <= other.Height
}

// Area returns width times height.
func (r Resolution) Area() int64 {
	return int64(r.Width) * int64(r.Height)
}

// Position is an absolute pixel offset from the top-left corner of the screen.
type Position struct {
	X int32 `json:"x"`
	Y int32 `json:"y"`
}

// WindowGeometry is the result of one window probe.
// Window always fits inside Screen when offset by Position.
type WindowGeometry struct {
	Screen   Resolution `json:"screen"`
	Window   Resolution `json:"window"`
	Position Position   `json:"position"`
}

// CapturePlan describes what ffmpeg grabs and how the grab is laid out
// on the output canvas.
type CapturePlan struct {
	Source         Resolution `json:"source"`
	SourcePosition Position   `json:"source_position"`
	Canvas         Resolution `json:"canvas"`
	Filter         string     `json:"filter"`
	Windowed       bool       `json:"windowed"`
}

// RTMPPrefix marks an output as a stream instead of a file.
const RTMPPrefix = "rtmp://"

// IsStreamOutput reports whether output is an RTMP URL.
func IsStreamOutput(output string) bool {
	return strings.HasPrefix(output, RTMPPrefix)
}

// StorageMode determines where finished recordings are kept.
type StorageMode string

const (
	// StorageLocal keeps recordings on the local filesystem only.
	StorageLocal StorageMode = "local"
	// StorageS3 uploads recordings and removes the local copy.
	StorageS3 StorageMode = "s3"
	// StorageBoth uploads recordings and keeps the local copy.
	StorageBoth StorageMode = "both"
)

// Uploads reports whether the mode sends recordings to S3.
func (m StorageMode) Uploads() bool {
	return m == StorageS3 || m == StorageBoth
}

// KeepsLocal reports whether the local file survives a successful upload.
func (m StorageMode) KeepsLocal() bool {
	return m != StorageS3
}

// Progress is a snapshot of ffmpeg's encoding status line.
type Progress struct {
	Frame   int64   `json:"frame"`
	FPS     float64 `json:"fps"`
	SizeKB  int64   `json:"size_kb"`
	Time    string  `json:"time"`
	Bitrate string  `json:"bitrate"`
	Speed   string  `json:"speed"`
}

package ffmpeg

import (
	"strconv"

	"github.com/oszuidwest/zwfm-screenrecorder/internal/types"
)

// DefaultDisplay is the X display grabbed by x11grab.
const DefaultDisplay = ":0"

// Frame rates per sink.
const (
	FileFrameRate   = 60
	StreamFrameRate = 30
)

// ArgsConfig holds everything needed to build an ffmpeg command line.
type ArgsConfig struct {
	Threads   int
	Display   string
	Screen    types.Resolution
	Plan      types.CapturePlan
	WithAudio bool
	Output    string
}

// videoArgs returns the libx264 settings for the sink. Streams trade
// quality for bitrate.
func videoArgs(stream bool) []string {
	crf := "18"
	if stream {
		crf = "25"
	}
	return []string{"-vcodec", "libx264", "-preset", "veryfast", "-pix_fmt", "yuv420p", "-crf", crf}
}

// audioArgs returns the audio encoder settings and any muting filter.
// A stream keeps its audio track even when muted so players see a
// consistent layout; it is silenced instead.
func audioArgs(stream, withAudio bool) (audio, mute []string) {
	audio = []string{"-acodec", "libfdk_aac", "-vbr", "5", "-ar", "44100"}
	if withAudio {
		return audio, nil
	}
	if stream {
		return audio, []string{"-af", "volume=0"}
	}
	return []string{"-an"}, nil
}

// BuildArgs returns the ffmpeg arguments for a screen recording.
func BuildArgs(cfg *ArgsConfig) []string {
	stream := types.IsStreamOutput(cfg.Output)

	frameRate := FileFrameRate
	var format []string
	if stream {
		frameRate = StreamFrameRate
		format = []string{"-f", "flv"}
	}

	display := cfg.Display
	if display == "" {
		display = DefaultDisplay
	}

	audio, mute := audioArgs(stream, cfg.WithAudio)

	args := []string{
		"-threads", strconv.Itoa(max(cfg.Threads, 1)),
		"-f", "x11grab",
		"-r", strconv.Itoa(frameRate),
		"-s", cfg.Screen.String(),
		"-i", display,
		"-f", "pulse",
		"-ac", "2",
		"-i", "default",
	}
	args = append(args, videoArgs(stream)...)
	args = append(args, "-vf", cfg.Plan.Filter)
	args = append(args, audio...)
	args = append(args, mute...)
	args = append(args, format...)
	args = append(args, cfg.Output)
	return args
}

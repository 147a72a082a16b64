package ffmpeg

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oszuidwest/zwfm-screenrecorder/internal/types"
)

func fullScreenPlan() types.CapturePlan {
	return types.CapturePlan{
		Source: types.Resolution{Width: 1920, Height: 1080},
		Canvas: types.Resolution{Width: 1920, Height: 1080},
		Filter: "pad=1920:1080:(ow-iw)/2:(oh-ih)/2",
	}
}

func TestBuildArgsFileMuted(t *testing.T) {
	args := BuildArgs(&ArgsConfig{
		Threads: 4,
		Screen:  types.Resolution{Width: 1920, Height: 1080},
		Plan:    fullScreenPlan(),
		Output:  "out.mp4",
	})

	want := []string{
		"-threads", "4", "-f", "x11grab", "-r", "60", "-s", "1920x1080", "-i", ":0",
		"-f", "pulse", "-ac", "2", "-i", "default",
		"-vcodec", "libx264", "-preset", "veryfast", "-pix_fmt", "yuv420p", "-crf", "18",
		"-vf", "pad=1920:1080:(ow-iw)/2:(oh-ih)/2",
		"-an",
		"out.mp4",
	}
	assert.Equal(t, want, args)
}

func TestBuildArgsFileWithAudio(t *testing.T) {
	args := BuildArgs(&ArgsConfig{
		Threads:   1,
		Screen:    types.Resolution{Width: 1920, Height: 1080},
		Plan:      fullScreenPlan(),
		WithAudio: true,
		Output:    "/tmp/rec.mp4",
	})

	tail := strings.Join(args[len(args)-9:], " ")
	assert.Equal(t, "-vf pad=1920:1080:(ow-iw)/2:(oh-ih)/2 -acodec libfdk_aac -vbr 5 -ar 44100 /tmp/rec.mp4", tail)
	assert.NotContains(t, args, "-an")
	assert.NotContains(t, args, "flv")
}

func TestBuildArgsStreamMuted(t *testing.T) {
	plan := fullScreenPlan()
	plan.Filter = "crop=1000:600:50:50,pad=1280:720:(ow-iw)/2:(oh-ih)/2"

	args := BuildArgs(&ArgsConfig{
		Threads: 2,
		Display: ":1",
		Screen:  types.Resolution{Width: 1920, Height: 1080},
		Plan:    plan,
		Output:  "rtmp://live.example.com/app/key",
	})

	want := []string{
		"-threads", "2", "-f", "x11grab", "-r", "30", "-s", "1920x1080", "-i", ":1",
		"-f", "pulse", "-ac", "2", "-i", "default",
		"-vcodec", "libx264", "-preset", "veryfast", "-pix_fmt", "yuv420p", "-crf", "25",
		"-vf", "crop=1000:600:50:50,pad=1280:720:(ow-iw)/2:(oh-ih)/2",
		"-acodec", "libfdk_aac", "-vbr", "5", "-ar", "44100",
		"-af", "volume=0",
		"-f", "flv",
		"rtmp://live.example.com/app/key",
	}
	assert.Equal(t, want, args)
}

func TestBuildArgsStreamWithAudio(t *testing.T) {
	args := BuildArgs(&ArgsConfig{
		Threads:   0,
		Screen:    types.Resolution{Width: 1280, Height: 720},
		Plan:      fullScreenPlan(),
		WithAudio: true,
		Output:    "rtmp://host/live",
	})

	assert.Equal(t, "1", args[1])
	assert.NotContains(t, args, "volume=0")
	assert.Equal(t, []string{"-f", "flv", "rtmp://host/live"}, args[len(args)-3:])
}

func TestThreads(t *testing.T) {
	assert.GreaterOrEqual(t, Threads(), 1)
}

func TestParseVersion(t *testing.T) {
	cases := []struct {
		line string
		want string
	}{
		{"ffmpeg version 6.1.1-3ubuntu5 Copyright (c) 2000-2023 the FFmpeg developers", "v6.1.1"},
		{"ffmpeg version n7.0 Copyright (c) 2000-2024 the FFmpeg developers", "v7.0.0"},
		{"ffmpeg version 4.4.2-0ubuntu0.22.04.1 Copyright", "v4.4.2"},
		{"ffmpeg version N-112233-gdeadbeef Copyright", ""},
		{"", ""},
		{"avconv version 12 Copyright", ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ParseVersion([]byte(tc.line+"\nbuilt with gcc\n")), tc.line)
	}
}

func writeScript(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755))
	return path
}

func TestPreflight(t *testing.T) {
	bin := writeScript(t, "ffmpeg", `echo "ffmpeg version 6.1.1 Copyright (c) 2000-2023 the FFmpeg developers"`)

	enc, err := Preflight(context.Background(), bin)
	require.NoError(t, err)
	assert.Equal(t, "v6.1.1", enc.Version)
	assert.True(t, filepath.IsAbs(enc.Path))
}

func TestPreflightMissingBinary(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "ffmpeg-missing")

	_, err := Preflight(context.Background(), missing)
	require.ErrorIs(t, err, types.ErrEncoderUnavailable)
	assert.Contains(t, err.Error(), missing)
}

func TestPreflightBrokenBinary(t *testing.T) {
	bin := writeScript(t, "ffmpeg", `echo "libx264.so: cannot open shared object file" >&2; exit 127`)

	_, err := Preflight(context.Background(), bin)
	require.ErrorIs(t, err, types.ErrEncoderUnavailable)
	assert.Contains(t, err.Error(), "cannot open shared object file")
}

func TestRunnerExitCode(t *testing.T) {
	var code int
	var err error

	code, err = Runner{}.Run(context.Background(), writeScript(t, "ok", "exit 0"), nil, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, code)

	code, err = Runner{}.Run(context.Background(), writeScript(t, "fail", "exit 1"), nil, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, code)
}

func TestRunnerStopsOnCancel(t *testing.T) {
	bin := writeScript(t, "long", `trap 'exit 0' INT; i=0; while [ $i -lt 50 ]; do sleep 0.1; i=$((i+1)); done; exit 3`)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	code, err := Runner{}.Run(ctx, bin, nil, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, code)
}

func TestRunnerStartFailure(t *testing.T) {
	_, err := Runner{}.Run(context.Background(), filepath.Join(t.TempDir(), "nope"), nil, nil, nil)
	assert.Error(t, err)
}

func TestParseProgress(t *testing.T) {
	p, ok := ParseProgress("frame=  240 fps= 60 q=23.0 size=    1024kB time=00:00:04.00 bitrate=2097.2kbits/s speed=1.00x    ")
	require.True(t, ok)
	assert.Equal(t, types.Progress{
		Frame:   240,
		FPS:     60,
		SizeKB:  1024,
		Time:    "00:00:04.00",
		Bitrate: "2097.2kbits/s",
		Speed:   "1.00x",
	}, p)

	_, ok = ParseProgress("Input #0, x11grab, from ':0':")
	assert.False(t, ok)
}

func TestProgressWriter(t *testing.T) {
	var got []types.Progress
	w := NewProgressWriter(func(p types.Progress) { got = append(got, p) })

	chunks := []string{
		"Stream mapping:\n  Stream #0:0 -> #0:0 (rawvideo (native) -> h264 (libx264))\n",
		"frame=   10 fps=0.0 q=0.0 size=       0kB time=00:00:00.16 bitrate=N/A speed=0.3x    \r",
		"frame=   60 fps= 59 q=23.0 size=     256KiB tim",
		"e=00:00:01.00 bitrate=2097.2kbits/s speed=0.99x    \r",
	}
	for _, c := range chunks {
		n, err := w.Write([]byte(c))
		require.NoError(t, err)
		assert.Equal(t, len(c), n)
	}

	require.Len(t, got, 2)
	assert.Equal(t, int64(10), got[0].Frame)
	assert.Equal(t, "N/A", got[0].Bitrate)
	assert.Equal(t, int64(60), got[1].Frame)
	assert.Equal(t, int64(256), got[1].SizeKB)
	assert.Equal(t, "00:00:01.00", got[1].Time)
}

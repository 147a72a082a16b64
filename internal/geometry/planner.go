// Package geometry turns a raw capture rectangle into an encoder-friendly
// output canvas and the ffmpeg filter expression that lays the grab out on it.
package geometry

import (
	"fmt"

	"github.com/oszuidwest/zwfm-screenrecorder/internal/types"
)

// ladder lists the standard 16:9 canvas sizes, largest first.
var ladder = [...]types.Resolution{
	{Width: 7680, Height: 4320},
	{Width: 3840, Height: 2160},
	{Width: 2560, Height: 1440},
	{Width: 1920, Height: 1080},
	{Width: 1280, Height: 720},
	{Width: 854, Height: 480},
	{Width: 640, Height: 360},
	{Width: 426, Height: 240},
}

// Ladder returns a copy of the standard canvas sizes, largest first.
func Ladder() []types.Resolution {
	out := make([]types.Resolution, len(ladder))
	copy(out, ladder[:])
	return out
}

// MaxCanvas is the canvas used when nothing on the ladder fits.
var MaxCanvas = ladder[0]

// Normalize returns the smallest standard size that holds r on both axes.
// Rectangles larger than MaxCanvas are clamped to MaxCanvas.
func Normalize(r types.Resolution) types.Resolution {
	canvas := MaxCanvas
	for _, candidate := range ladder[1:] {
		if r.Fits(candidate) {
			canvas = candidate
		}
	}
	return canvas
}

// RawPad rounds each axis of r up to the next multiple of 8.
func RawPad(r types.Resolution) types.Resolution {
	return types.Resolution{
		Width:  alignUp8(r.Width),
		Height: alignUp8(r.Height),
	}
}

func alignUp8(v int32) int32 {
	return (v + 7) &^ 7
}

// Plan computes the output canvas for raw and the filter that places the
// capture in the middle of it. When windowed, the grab is first cropped to
// raw at pos.
func Plan(raw types.Resolution, normalize, windowed bool, pos types.Position) types.CapturePlan {
	canvas := RawPad(raw)
	if normalize {
		canvas = Normalize(raw)
	}

	plan := types.CapturePlan{
		Source:   raw,
		Canvas:   canvas,
		Windowed: windowed,
	}

	pad := fmt.Sprintf("pad=%d:%d:(ow-iw)/2:(oh-ih)/2", canvas.Width, canvas.Height)
	if windowed {
		plan.SourcePosition = pos
		plan.Filter = fmt.Sprintf("crop=%d:%d:%d:%d,%s", raw.Width, raw.Height, pos.X, pos.Y, pad)
	} else {
		plan.Filter = pad
	}

	return plan
}

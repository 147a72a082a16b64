package probe

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/oszuidwest/zwfm-screenrecorder/internal/types"
)

const windowTool = "xwininfo"

// windowField maps an xwininfo report label to the field name used in errors.
type windowField struct {
	label string
	name  string
}

var (
	fieldWidth  = windowField{label: "Width:", name: "width"}
	fieldHeight = windowField{label: "Height:", name: "height"}
	fieldX      = windowField{label: "Absolute upper-left X", name: "x"}
	fieldY      = windowField{label: "Absolute upper-left Y", name: "y"}
)

// windowReport holds the raw values read from xwininfo.
type windowReport struct {
	Width, Height int32
	X, Y          int32
}

// WindowGeometry asks the user to click a window and returns its size and
// position, clipped to the screen. It blocks until a window is selected or
// ctx is done.
func (p *Prober) WindowGeometry(ctx context.Context) (types.WindowGeometry, error) {
	screen, err := p.ScreenResolution(ctx)
	if err != nil {
		return types.WindowGeometry{}, err
	}

	out, err := p.runner.Output(ctx, windowTool)
	if err != nil {
		return types.WindowGeometry{}, &types.ProbeError{Kind: types.ToolUnavailable, Tool: windowTool, Err: err}
	}

	report, err := parseWindowReport(out)
	if err != nil {
		return types.WindowGeometry{}, err
	}

	geom := ClipToScreen(screen, types.Resolution{Width: report.Width, Height: report.Height},
		types.Position{X: report.X, Y: report.Y})
	if geom.Window.Empty() {
		return geom, fmt.Errorf("%w: window %dx%d at %d,%d is outside the %s screen",
			types.ErrEmptyCapture, report.Width, report.Height, report.X, report.Y, screen)
	}
	return geom, nil
}

// ClipToScreen trims a window so it does not extend past the screen.
// A window that overhangs the right or bottom edge loses the overhang.
// A negative offset is moved to 0 and the hidden part is removed as well.
func ClipToScreen(screen, window types.Resolution, pos types.Position) types.WindowGeometry {
	if pos.X < 0 {
		window.Width += pos.X
		pos.X = 0
	}
	if pos.Y < 0 {
		window.Height += pos.Y
		pos.Y = 0
	}

	if window.Width > screen.Width-pos.X {
		window.Width = screen.Width - pos.X
	}
	if window.Height > screen.Height-pos.Y {
		window.Height = screen.Height - pos.Y
	}

	window.Width = max(window.Width, 0)
	window.Height = max(window.Height, 0)

	return types.WindowGeometry{Screen: screen, Window: window, Position: pos}
}

func parseWindowReport(out []byte) (windowReport, error) {
	fields := []windowField{fieldWidth, fieldHeight, fieldX, fieldY}
	values := make(map[windowField]string, len(fields))

	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		for _, f := range fields {
			if _, seen := values[f]; seen || !strings.HasPrefix(line, f.label) {
				continue
			}
			_, value, _ := strings.Cut(line, ":")
			values[f] = strings.TrimSpace(value)
		}
	}
	if err := scanner.Err(); err != nil {
		return windowReport{}, &types.ProbeError{Kind: types.ParseError, Tool: windowTool, Err: err}
	}

	var report windowReport
	targets := map[windowField]*int32{
		fieldWidth:  &report.Width,
		fieldHeight: &report.Height,
		fieldX:      &report.X,
		fieldY:      &report.Y,
	}
	for _, f := range fields {
		raw, ok := values[f]
		if !ok {
			return windowReport{}, &types.ProbeError{
				Kind:  types.ParseError,
				Tool:  windowTool,
				Field: f.name,
				Err:   fmt.Errorf("label %q not found", f.label),
			}
		}
		v, err := strconv.ParseInt(raw, 10, 32)
		if err != nil {
			var numErr *strconv.NumError
			if errors.As(err, &numErr) {
				err = numErr.Err
			}
			return windowReport{}, &types.ProbeError{
				Kind:  types.ParseError,
				Tool:  windowTool,
				Field: f.name,
				Err:   fmt.Errorf("invalid value %q: %w", raw, err),
			}
		}
		*targets[f] = int32(v)
	}

	if report.Width < 0 || report.Height < 0 {
		return windowReport{}, &types.ProbeError{
			Kind: types.ParseError,
			Tool: windowTool,
			Err:  fmt.Errorf("negative window size %dx%d", report.Width, report.Height),
		}
	}

	return report, nil
}

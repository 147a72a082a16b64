package probe

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/oszuidwest/zwfm-screenrecorder/internal/types"
)

const (
	screenTool = "xrandr"

	// currentMarker prefixes the active screen size in xrandr's "Screen N:" line.
	currentMarker = "current"
)

// Prober runs the display query tools. Every call starts from scratch.
type Prober struct {
	runner Runner
}

// New returns a Prober that runs tools through runner.
func New(runner Runner) *Prober {
	return &Prober{runner: runner}
}

// NewExec returns a Prober that runs the real X11 tools.
func NewExec() *Prober {
	return New(ExecRunner{})
}

// ScreenResolution returns the size of the whole X screen.
func (p *Prober) ScreenResolution(ctx context.Context) (types.Resolution, error) {
	out, err := p.runner.Output(ctx, screenTool)
	if err != nil {
		return types.Resolution{}, &types.ProbeError{Kind: types.ToolUnavailable, Tool: screenTool, Err: err}
	}
	return ParseScreenResolution(out)
}

// ParseScreenResolution extracts the current screen size from xrandr output,
// e.g. "Screen 0: minimum 8 x 8, current 1920 x 1080, maximum 32767 x 32767".
func ParseScreenResolution(out []byte) (types.Resolution, error) {
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		for field := range strings.SplitSeq(scanner.Text(), ",") {
			field = strings.TrimSpace(field)
			rest, ok := strings.CutPrefix(field, currentMarker)
			if !ok {
				continue
			}
			return parseDimensions(rest)
		}
	}
	if err := scanner.Err(); err != nil {
		return types.Resolution{}, &types.ProbeError{Kind: types.ParseError, Tool: screenTool, Err: err}
	}
	return types.Resolution{}, &types.ProbeError{
		Kind: types.ParseError,
		Tool: screenTool,
		Err:  fmt.Errorf("no %q screen size in output", currentMarker),
	}
}

// parseDimensions parses "1920 x 1080" (whitespace optional) into a Resolution.
func parseDimensions(s string) (types.Resolution, error) {
	compact := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)

	w, h, ok := strings.Cut(compact, "x")
	if !ok || strings.Contains(h, "x") {
		return types.Resolution{}, &types.ProbeError{
			Kind: types.ParseError,
			Tool: screenTool,
			Err:  fmt.Errorf("expected WIDTHxHEIGHT, got %q", compact),
		}
	}

	width, err := parseSize(w)
	if err != nil {
		return types.Resolution{}, &types.ProbeError{Kind: types.ParseError, Tool: screenTool, Field: "width", Err: err}
	}
	height, err := parseSize(h)
	if err != nil {
		return types.Resolution{}, &types.ProbeError{Kind: types.ParseError, Tool: screenTool, Field: "height", Err: err}
	}

	return types.Resolution{Width: width, Height: height}, nil
}

func parseSize(s string) (int32, error) {
	v, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return 0, err
	}
	if v < 0 {
		return 0, fmt.Errorf("negative size %d", v)
	}
	return int32(v), nil
}

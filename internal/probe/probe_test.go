package probe

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oszuidwest/zwfm-screenrecorder/internal/types"
)

const xrandrOutput = `Screen 0: minimum 8 x 8, current 1920 x 1080, maximum 32767 x 32767
eDP-1 connected primary 1920x1080+0+0 (normal left inverted right x axis y axis) 309mm x 174mm
   1920x1080     60.02*+  60.01    59.97
HDMI-1 disconnected (normal left inverted right x axis y axis)
`

const xwininfoOutput = `xwininfo: Please select the window about which you
         would like information by clicking the
         mouse in that window.

xwininfo: Window id: 0x3a00007 "Terminal"

  Absolute upper-left X:  50
  Absolute upper-left Y:  50
  Relative upper-left X:  0
  Relative upper-left Y:  0
  Width: 1000
  Height: 600
  Depth: 32
  Visual: 0x5b3
  Visual Class: TrueColor
  Border width: 0
  Class: InputOutput
  Colormap: 0x3a00006 (not installed)
  Bit Gravity State: NorthWestGravity
  Window Gravity State: NorthWestGravity
  Backing Store State: NotUseful
  Save Under State: no
  Map State: IsViewable
  Override Redirect State: no
  Corners:  +50+50  -870+50  -870-430  +50-430
  -geometry 1000x600+50+50
`

type fakeRunner struct {
	outputs map[string]string
	errs    map[string]error
	calls   []string
}

func (f *fakeRunner) Output(_ context.Context, name string, _ ...string) ([]byte, error) {
	f.calls = append(f.calls, name)
	if err := f.errs[name]; err != nil {
		return nil, err
	}
	return []byte(f.outputs[name]), nil
}

func TestScreenResolution(t *testing.T) {
	runner := &fakeRunner{outputs: map[string]string{"xrandr": xrandrOutput}}

	res, err := New(runner).ScreenResolution(context.Background())
	require.NoError(t, err)
	assert.Equal(t, types.Resolution{Width: 1920, Height: 1080}, res)
	assert.Equal(t, []string{"xrandr"}, runner.calls)
}

func TestScreenResolutionToolUnavailable(t *testing.T) {
	runner := &fakeRunner{errs: map[string]error{"xrandr": errors.New("exec: \"xrandr\": executable file not found in $PATH")}}

	_, err := New(runner).ScreenResolution(context.Background())
	require.Error(t, err)
	assert.True(t, types.IsProbeError(err, types.ToolUnavailable))
	assert.Contains(t, err.Error(), "xrandr")
}

func TestParseScreenResolution(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  types.Resolution
		field string
		fails bool
	}{
		{name: "standard", input: xrandrOutput, want: types.Resolution{Width: 1920, Height: 1080}},
		{name: "compact", input: "Screen 0: minimum 8 x 8, current 3840x2160, maximum 16384 x 16384\n", want: types.Resolution{Width: 3840, Height: 2160}},
		{name: "not first line", input: "garbage\nScreen 1: minimum 320 x 200, current 2560 x 1440, maximum 8192 x 8192\n", want: types.Resolution{Width: 2560, Height: 1440}},
		{name: "empty", input: "", fails: true},
		{name: "no marker", input: "Screen 0: minimum 8 x 8, maximum 32767 x 32767\n", fails: true},
		{name: "missing separator", input: "Screen 0: minimum 8 x 8, current 1920 1080\n", fails: true},
		{name: "three tokens", input: "Screen 0: minimum 8 x 8, current 1920 x 1080 x 2\n", fails: true},
		{name: "bad width", input: "Screen 0: minimum 8 x 8, current abc x 1080\n", fails: true, field: "width"},
		{name: "bad height", input: "Screen 0: minimum 8 x 8, current 1920 x 10a80\n", fails: true, field: "height"},
		{name: "negative", input: "Screen 0: minimum 8 x 8, current -1920 x 1080\n", fails: true, field: "width"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseScreenResolution([]byte(tc.input))
			if !tc.fails {
				require.NoError(t, err)
				assert.Equal(t, tc.want, got)
				return
			}
			require.Error(t, err)
			var pe *types.ProbeError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, types.ParseError, pe.Kind)
			assert.Equal(t, tc.field, pe.Field)
		})
	}
}

func TestWindowGeometry(t *testing.T) {
	runner := &fakeRunner{outputs: map[string]string{
		"xrandr":   xrandrOutput,
		"xwininfo": xwininfoOutput,
	}}

	geom, err := New(runner).WindowGeometry(context.Background())
	require.NoError(t, err)
	assert.Equal(t, types.WindowGeometry{
		Screen:   types.Resolution{Width: 1920, Height: 1080},
		Window:   types.Resolution{Width: 1000, Height: 600},
		Position: types.Position{X: 50, Y: 50},
	}, geom)
	assert.Equal(t, []string{"xrandr", "xwininfo"}, runner.calls)
}

func TestWindowGeometryScreenFailureSkipsSelection(t *testing.T) {
	runner := &fakeRunner{errs: map[string]error{"xrandr": errors.New("cannot open display")}}

	_, err := New(runner).WindowGeometry(context.Background())
	require.Error(t, err)
	assert.Equal(t, []string{"xrandr"}, runner.calls)
}

func TestWindowGeometryToolUnavailable(t *testing.T) {
	runner := &fakeRunner{
		outputs: map[string]string{"xrandr": xrandrOutput},
		errs:    map[string]error{"xwininfo": errors.New("not found")},
	}

	_, err := New(runner).WindowGeometry(context.Background())
	var pe *types.ProbeError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, types.ToolUnavailable, pe.Kind)
	assert.Equal(t, "xwininfo", pe.Tool)
}

func TestWindowGeometryFieldErrors(t *testing.T) {
	cases := map[string]struct {
		from, to string
	}{
		"width":  {"  Width: 1000", "  Width: wide"},
		"height": {"  Height: 600", ""},
		"x":      {"  Absolute upper-left X:  50", "  Absolute upper-left X:  5 0"},
		"y":      {"  Absolute upper-left Y:  50", ""},
	}
	for field, tc := range cases {
		t.Run(field, func(t *testing.T) {
			runner := &fakeRunner{outputs: map[string]string{
				"xrandr":   xrandrOutput,
				"xwininfo": replaceLine(xwininfoOutput, tc.from, tc.to),
			}}

			_, err := New(runner).WindowGeometry(context.Background())
			var pe *types.ProbeError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, types.ParseError, pe.Kind)
			assert.Equal(t, field, pe.Field)
			assert.Contains(t, err.Error(), field)
		})
	}
}

func TestWindowGeometryTitleWithLabel(t *testing.T) {
	titles := []string{
		`"Height: 12 - notes"`,
		`"Width: 3 Absolute upper-left X: 9"`,
		`"Absolute upper-left Y:  7"`,
	}
	for _, title := range titles {
		t.Run(title, func(t *testing.T) {
			report := replaceLine(xwininfoOutput, `xwininfo: Window id: 0x3a00007 "Terminal"`,
				`xwininfo: Window id: 0x3a00007 `+title)
			runner := &fakeRunner{outputs: map[string]string{"xrandr": xrandrOutput, "xwininfo": report}}

			geom, err := New(runner).WindowGeometry(context.Background())
			require.NoError(t, err)
			assert.Equal(t, types.Resolution{Width: 1000, Height: 600}, geom.Window)
			assert.Equal(t, types.Position{X: 50, Y: 50}, geom.Position)
		})
	}
}

func TestWindowGeometryClipped(t *testing.T) {
	report := replaceLine(xwininfoOutput, "  Absolute upper-left X:  50", "  Absolute upper-left X:  1500")
	report = replaceLine(report, "  Absolute upper-left Y:  50", "  Absolute upper-left Y:  900")
	runner := &fakeRunner{outputs: map[string]string{"xrandr": xrandrOutput, "xwininfo": report}}

	geom, err := New(runner).WindowGeometry(context.Background())
	require.NoError(t, err)
	assert.Equal(t, types.Resolution{Width: 420, Height: 180}, geom.Window)
	assert.Equal(t, types.Position{X: 1500, Y: 900}, geom.Position)
}

func TestWindowGeometryOffScreen(t *testing.T) {
	report := replaceLine(xwininfoOutput, "  Absolute upper-left X:  50", "  Absolute upper-left X:  2000")
	runner := &fakeRunner{outputs: map[string]string{"xrandr": xrandrOutput, "xwininfo": report}}

	_, err := New(runner).WindowGeometry(context.Background())
	assert.ErrorIs(t, err, types.ErrEmptyCapture)
}

func TestClipToScreen(t *testing.T) {
	screen := types.Resolution{Width: 1920, Height: 1080}

	for x := int32(0); x <= screen.Width; x += 37 {
		for w := int32(1); w <= 2500; w += 113 {
			geom := ClipToScreen(screen, types.Resolution{Width: w, Height: 10}, types.Position{X: x, Y: 0})
			if x+w > screen.Width {
				assert.Equal(t, screen.Width-x, geom.Window.Width)
			} else {
				assert.Equal(t, w, geom.Window.Width)
			}
			assert.LessOrEqual(t, geom.Position.X+geom.Window.Width, screen.Width)
		}
	}

	geom := ClipToScreen(screen, types.Resolution{Width: 800, Height: 2000}, types.Position{X: 10, Y: 100})
	assert.Equal(t, types.Resolution{Width: 800, Height: 980}, geom.Window)
}

func TestClipToScreenHugeWindow(t *testing.T) {
	screen := types.Resolution{Width: 1920, Height: 1080}

	geom := ClipToScreen(screen, types.Resolution{Width: 2147483000, Height: 2147483000}, types.Position{X: 1000, Y: 80})
	assert.Equal(t, types.Resolution{Width: 920, Height: 1000}, geom.Window)
	assert.Equal(t, types.Position{X: 1000, Y: 80}, geom.Position)
}

func TestClipToScreenNegativeOffset(t *testing.T) {
	screen := types.Resolution{Width: 1920, Height: 1080}

	geom := ClipToScreen(screen, types.Resolution{Width: 800, Height: 600}, types.Position{X: -100, Y: -50})
	assert.Equal(t, types.Position{}, geom.Position)
	assert.Equal(t, types.Resolution{Width: 700, Height: 550}, geom.Window)

	geom = ClipToScreen(screen, types.Resolution{Width: 80, Height: 60}, types.Position{X: -100, Y: 0})
	assert.True(t, geom.Window.Empty())
	assert.Zero(t, geom.Window.Width)
}

func replaceLine(text, from, to string) string {
	var b strings.Builder
	for _, line := range strings.Split(text, "\n") {
		switch {
		case line != from:
			b.WriteString(line + "\n")
		case to != "":
			b.WriteString(to + "\n")
		}
	}
	return b.String()
}

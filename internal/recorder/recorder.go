// Package recorder runs one screen recording: encoder preflight, screen or
// window probing, canvas planning, the ffmpeg run and the post-exit steps.
package recorder

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/oszuidwest/zwfm-screenrecorder/internal/eventlog"
	"github.com/oszuidwest/zwfm-screenrecorder/internal/ffmpeg"
	"github.com/oszuidwest/zwfm-screenrecorder/internal/geometry"
	"github.com/oszuidwest/zwfm-screenrecorder/internal/notify"
	"github.com/oszuidwest/zwfm-screenrecorder/internal/recording"
	"github.com/oszuidwest/zwfm-screenrecorder/internal/types"
	"github.com/oszuidwest/zwfm-screenrecorder/internal/util"
)

// monitorCloseTimeout bounds the progress monitor shutdown.
const monitorCloseTimeout = 3 * time.Second

// Prober measures the screen and the selected window.
type Prober interface {
	ScreenResolution(ctx context.Context) (types.Resolution, error)
	WindowGeometry(ctx context.Context) (types.WindowGeometry, error)
}

// Encoder runs ffmpeg to completion and returns its exit code.
type Encoder interface {
	Run(ctx context.Context, ffmpegPath string, args []string, stdout, stderr io.Writer) (int, error)
}

// Uploader stores a finished recording and returns its object key.
type Uploader interface {
	Upload(ctx context.Context, localPath string) (string, error)
}

// Notifier delivers recording events.
type Notifier interface {
	Send(ctx context.Context, payload *notify.WebhookPayload) error
}

// Monitor receives live progress while ffmpeg runs.
type Monitor interface {
	Publish(p types.Progress)
	Close(ctx context.Context, exitCode int) error
}

// History records what happened to each recording.
type History interface {
	Log(event *eventlog.Event) error
}

// Deps are the collaborators of a Recorder. Uploader, Notifier, History and
// StartMonitor are optional.
type Deps struct {
	Preflight    func(ctx context.Context, ffmpegPath string) (*ffmpeg.Encoder, error)
	Prober       Prober
	Encoder      Encoder
	Uploader     Uploader
	Notifier     Notifier
	History      History
	StartMonitor func(addr string) (Monitor, error)
	Threads      func() int
	Stdout       io.Writer
	Stderr       io.Writer
}

// Recorder runs recordings.
type Recorder struct {
	deps Deps
}

// New returns a Recorder. Missing required collaborators fall back to the
// real ffmpeg and X11 implementations.
func New(deps Deps) *Recorder {
	if deps.Preflight == nil {
		deps.Preflight = ffmpeg.Preflight
	}
	if deps.Encoder == nil {
		deps.Encoder = ffmpeg.Runner{}
	}
	if deps.Threads == nil {
		deps.Threads = ffmpeg.Threads
	}
	if deps.Stdout == nil {
		deps.Stdout = os.Stdout
	}
	if deps.Stderr == nil {
		deps.Stderr = os.Stderr
	}
	return &Recorder{deps: deps}
}

// Result describes a finished ffmpeg run.
type Result struct {
	Output      string
	Stream      bool
	Screen      types.Resolution
	Plan        types.CapturePlan
	Args        []string
	ExitCode    int
	Interrupted bool
	Removed     bool
	UploadedKey string
	Duration    time.Duration
}

// Succeeded reports whether the recording is usable. An interrupted run is
// fine as long as ffmpeg did not report a failure.
func (r *Result) Succeeded() bool {
	return r.ExitCode == 0 || (r.Interrupted && r.ExitCode != recording.FailedExitCode)
}

// ExitStatus returns the status the process should exit with.
func (r *Result) ExitStatus() int {
	switch {
	case r.Succeeded():
		return 0
	case r.ExitCode < 0:
		return 1
	default:
		return r.ExitCode
	}
}

// Run performs one recording. Errors are returned before ffmpeg starts;
// once it has run, its exit code is reported through the Result.
func (r *Recorder) Run(ctx context.Context, opts *Options) (*Result, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	enc, err := r.deps.Preflight(ctx, opts.FFmpegPath)
	if err != nil {
		return nil, err
	}
	slog.Info("ffmpeg found", "path", enc.Path, "version", enc.Version)

	if !opts.Stream() {
		if err := util.CheckOutputPath(opts.Output); err != nil {
			return nil, err
		}
		if err := util.CheckPathWritable(filepath.Dir(opts.Output)); err != nil {
			return nil, util.WrapError("prepare output directory", err)
		}
	}

	if r.deps.Prober == nil {
		return nil, fmt.Errorf("no display prober configured")
	}
	screen, raw, pos, err := r.capture(ctx, opts.Window)
	if err != nil {
		return nil, err
	}

	plan := geometry.Plan(raw, opts.Normalize(), opts.Window, pos)
	slog.Info("capture planned",
		"screen", screen.String(),
		"source", plan.Source.String(),
		"x", plan.SourcePosition.X,
		"y", plan.SourcePosition.Y,
		"canvas", plan.Canvas.String(),
		"normalize", opts.Normalize())

	res := &Result{
		Output: opts.Output,
		Stream: opts.Stream(),
		Screen: screen,
		Plan:   plan,
		Args: ffmpeg.BuildArgs(&ffmpeg.ArgsConfig{
			Threads:   r.deps.Threads(),
			Display:   opts.Display,
			Screen:    screen,
			Plan:      plan,
			WithAudio: opts.WithAudio,
			Output:    opts.Output,
		}),
	}

	stderr := r.deps.Stderr
	var mon Monitor
	if opts.MonitorAddr != "" && r.deps.StartMonitor != nil {
		mon, err = r.deps.StartMonitor(opts.MonitorAddr)
		if err != nil {
			return nil, util.WrapError("start progress monitor", err)
		}
		stderr = io.MultiWriter(stderr, ffmpeg.NewProgressWriter(mon.Publish))
	}

	if res.Stream {
		slog.Info("streaming", "url", opts.Output)
	} else {
		slog.Info("recording", "path", opts.Output)
	}
	r.record(eventlog.RecordingStarted, res, "")

	start := time.Now()
	code, runErr := r.runEncoder(ctx, enc.Path, res.Args, stderr, &res.Interrupted)
	res.Duration = time.Since(start)
	res.ExitCode = code

	if mon != nil {
		closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), monitorCloseTimeout)
		if err := mon.Close(closeCtx, code); err != nil {
			slog.Warn("failed to stop progress monitor", "error", err)
		}
		cancel()
	}

	if runErr != nil {
		r.record(eventlog.RecordingFailed, res, runErr.Error())
		r.notify(ctx, res, runErr.Error())
		return res, runErr
	}

	r.finish(ctx, res)
	return res, nil
}

// capture returns the screen size, the rectangle to record and its offset.
func (r *Recorder) capture(ctx context.Context, window bool) (screen, raw types.Resolution, pos types.Position, err error) {
	if window {
		slog.Info("please select a window with your mouse")
		geom, err := r.deps.Prober.WindowGeometry(ctx)
		if err != nil {
			return screen, raw, pos, util.WrapError("probe window", err)
		}
		return geom.Screen, geom.Window, geom.Position, nil
	}

	screen, err = r.deps.Prober.ScreenResolution(ctx)
	if err != nil {
		return screen, raw, pos, util.WrapError("probe screen", err)
	}
	if screen.Empty() {
		return screen, raw, pos, fmt.Errorf("%w: screen reports %s", types.ErrEmptyCapture, screen)
	}
	return screen, screen, types.Position{}, nil
}

// runEncoder runs ffmpeg while catching interrupts. A terminal interrupt
// reaches ffmpeg directly through the shared process group; any caught
// signal is also forwarded so a SIGTERM sent only to us stops the capture.
func (r *Recorder) runEncoder(ctx context.Context, path string, args []string, stderr io.Writer, interrupted *bool) (int, error) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, util.ShutdownSignals()...)
	defer signal.Stop(sigCh)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var caught atomic.Bool
	done := make(chan struct{})
	watched := make(chan struct{})
	go func() {
		defer close(watched)
		for {
			select {
			case sig := <-sigCh:
				if !caught.Swap(true) {
					slog.Warn("interrupted, waiting for ffmpeg to finish", "signal", sig.String())
					cancel()
				}
			case <-done:
				return
			}
		}
	}()

	code, err := r.deps.Encoder.Run(runCtx, path, args, r.deps.Stdout, stderr)
	close(done)
	<-watched

	*interrupted = caught.Load()
	return code, err
}

// finish applies the exit-code contract and the optional upload and notification.
func (r *Recorder) finish(ctx context.Context, res *Result) {
	slog.Info("ffmpeg exited",
		"exit_code", res.ExitCode,
		"interrupted", res.Interrupted,
		"duration", util.FormatDuration(res.Duration.Milliseconds()))

	if res.Succeeded() {
		r.record(eventlog.RecordingFinished, res, "")
	} else {
		r.record(eventlog.RecordingFailed, res, "")
	}

	if !res.Stream {
		res.Removed = recording.CleanupAfterExit(res.Output, res.ExitCode)
		if res.Removed {
			r.record(eventlog.RecordingRemoved, res, "")
		}
	}

	if res.Succeeded() && !res.Stream && r.deps.Uploader != nil {
		key, err := r.deps.Uploader.Upload(ctx, res.Output)
		if err != nil {
			slog.Error("failed to upload recording", "path", res.Output, "error", err)
			r.record(eventlog.UploadFailed, res, err.Error())
		} else {
			res.UploadedKey = key
			r.record(eventlog.UploadCompleted, res, "")
		}
	}

	r.notify(ctx, res, "")
}

// notify sends the recording event if a notifier is configured.
func (r *Recorder) notify(ctx context.Context, res *Result, message string) {
	if r.deps.Notifier == nil {
		return
	}

	event := notify.EventRecordingFinished
	if message != "" || !res.Succeeded() {
		event = notify.EventRecordingFailed
	}

	payload := &notify.WebhookPayload{
		Event:       event,
		Output:      res.Output,
		Stream:      res.Stream,
		ExitCode:    res.ExitCode,
		Interrupted: res.Interrupted,
		DurationMs:  res.Duration.Milliseconds(),
		Removed:     res.Removed,
		UploadedKey: res.UploadedKey,
		Message:     message,
	}

	util.LogNotifyResult(func() error {
		return r.deps.Notifier.Send(context.WithoutCancel(ctx), payload)
	}, "webhook")
}

// record appends an event to the history if one is configured.
func (r *Recorder) record(eventType eventlog.EventType, res *Result, errMsg string) {
	if r.deps.History == nil {
		return
	}

	details := &eventlog.RecordingDetails{
		Stream: res.Stream,
		Window: res.Plan.Windowed,
		Screen: res.Screen.String(),
		Canvas: res.Plan.Canvas.String(),
		S3Key:  res.UploadedKey,
		Error:  errMsg,
	}
	if eventType != eventlog.RecordingStarted {
		code := res.ExitCode
		details.ExitCode = &code
		details.Interrupted = res.Interrupted
		details.DurationMs = res.Duration.Milliseconds()
	}

	if err := r.deps.History.Log(&eventlog.Event{
		Type:    eventType,
		Output:  res.Output,
		Details: details,
	}); err != nil {
		slog.Warn("failed to write recording history", "type", eventType, "error", err)
	}
}

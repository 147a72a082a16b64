// Package main records the screen of a Linux X11 session with FFmpeg. The
// recording is saved as a file or streamed over RTMP.
//
// Usage:
//
//	zwfm-screenrecorder [-w] [-a] [-n] [-o FILE/RTMP_URL] [-f FFMPEG_PATH] [--config path]
//
// If --config is not specified, the recorder reads config.json from
// $XDG_CONFIG_HOME/zwfm-screenrecorder.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/oszuidwest/zwfm-screenrecorder/internal/config"
	"github.com/oszuidwest/zwfm-screenrecorder/internal/eventlog"
	"github.com/oszuidwest/zwfm-screenrecorder/internal/monitor"
	"github.com/oszuidwest/zwfm-screenrecorder/internal/notify"
	"github.com/oszuidwest/zwfm-screenrecorder/internal/probe"
	"github.com/oszuidwest/zwfm-screenrecorder/internal/recorder"
	"github.com/oszuidwest/zwfm-screenrecorder/internal/recording"
	"github.com/oszuidwest/zwfm-screenrecorder/internal/util"
)

const longHelp = `Record your screen on Linux with FFmpeg. The recording can be saved as a
file, or be streamed via the RTMP protocol. FFmpeg needs to be built with
libxcb, libfdk-aac and libx264.`

const examples = `  zwfm-screenrecorder                   # Record the full screen without audio into the current working directory
  zwfm-screenrecorder -w                # Select a window and record it without audio
  zwfm-screenrecorder -a                # Record the full screen with the system audio
  zwfm-screenrecorder -o /path/to/file  # Record the full screen without audio to /path/to/file
  zwfm-screenrecorder -o rtmp://xxx     # Record the full screen without audio and stream it to rtmp://xxx`

// cliFlags holds the parsed command line.
type cliFlags struct {
	window      bool
	withAudio   bool
	noNormalize bool
	output      string
	ffmpegPath  string
	configPath  string
	monitor     string
	logLevel    string
}

func main() {
	exitCode := 0
	cmd := newRootCommand(&exitCode)
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		slog.Error("screen recorder failed", "error", err)
		if exitCode == 0 {
			exitCode = 1
		}
	}
	os.Exit(exitCode)
}

// newRootCommand builds the CLI. The process exit status is stored in exitCode.
func newRootCommand(exitCode *int) *cobra.Command {
	var flags cliFlags

	cmd := &cobra.Command{
		Use:           "zwfm-screenrecorder",
		Short:         "Record your screen with FFmpeg",
		Long:          longHelp,
		Example:       examples,
		Version:       fmt.Sprintf("%s (commit %s, built %s)", Version, Commit, BuildTime),
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			code, err := run(cmd, &flags)
			*exitCode = code
			return err
		},
	}

	f := cmd.Flags()
	f.BoolVarP(&flags.window, "window", "w", false, "select a window to record")
	f.BoolVarP(&flags.withAudio, "with-audio", "a", false, "record your screen with audio, internal or external depending on your environment")
	f.BoolVarP(&flags.noNormalize, "no-normalize", "n", false, "do not pad the video to a standard 16:9 size (alias --nn)")
	f.StringVarP(&flags.output, "output", "o", "", "destination of your video, a file path or an RTMP URL (default: <output_dir>/<time>.mp4)")
	f.StringVarP(&flags.ffmpegPath, "ffmpeg-path", "f", util.DefaultFFmpegPath, "path of your FFmpeg executable")
	cmd.PersistentFlags().StringVar(&flags.configPath, "config", "", "path to config file (default: $XDG_CONFIG_HOME/zwfm-screenrecorder/config.json)")
	f.StringVar(&flags.monitor, "monitor", "", "serve live progress over WebSocket on this host:port")
	cmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "info", "log level: debug, info, warn or error")
	f.SetNormalizeFunc(normalizeFlagName)

	cmd.AddCommand(newHistoryCommand(&flags))
	return cmd
}

// normalizeFlagName maps flag aliases to their canonical name.
func normalizeFlagName(_ *pflag.FlagSet, name string) pflag.NormalizedName {
	if name == "nn" {
		name = "no-normalize"
	}
	return pflag.NormalizedName(name)
}

// setupLogging installs a tint handler at the given level.
func setupLogging(level string) error {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return fmt.Errorf("invalid log level %q", level)
	}
	slog.SetDefault(slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      lvl,
		TimeFormat: time.TimeOnly,
		NoColor:    os.Getenv("NO_COLOR") != "",
	})))
	return nil
}

// run records once and returns the process exit status.
func run(cmd *cobra.Command, flags *cliFlags) (int, error) {
	if err := setupLogging(flags.logLevel); err != nil {
		return 1, err
	}

	snap, err := loadConfig(flags.configPath)
	if err != nil {
		return 1, err
	}

	opts := &recorder.Options{
		Window:      flags.window,
		WithAudio:   flags.withAudio,
		NoNormalize: flags.noNormalize,
		Output:      flags.output,
		FFmpegPath:  snap.FFmpegPath,
		Display:     snap.Display,
		MonitorAddr: snap.MonitorListen,
	}
	if cmd.Flags().Changed("ffmpeg-path") {
		opts.FFmpegPath = flags.ffmpegPath
	}
	if cmd.Flags().Changed("monitor") {
		opts.MonitorAddr = flags.monitor
	}
	if opts.Output == "" {
		opts.Output = recorder.DefaultOutput(snap.OutputDir, time.Now())
	}

	ctx := cmd.Context()
	deps := recorder.Deps{
		Prober:       probe.NewExec(),
		StartMonitor: startMonitor,
	}
	if snap.HasUpload() {
		if u := recording.NewUploader(&snap.S3, snap.StorageMode); u != nil {
			deps.Uploader = u
		}
	}
	if snap.HasWebhook() {
		if w := notify.NewWebhook(ctx, &snap.Webhook); w != nil {
			deps.Notifier = w
		}
	}
	if snap.HasHistory() {
		history, err := openHistory(snap.HistoryLog)
		if err != nil {
			slog.Warn("recording history disabled", "error", err)
		} else {
			defer util.SafeCloseFunc(history, "recording history")()
			deps.History = history
		}
	}

	res, err := recorder.New(deps).Run(ctx, opts)
	if err != nil {
		return 1, err
	}
	return res.ExitStatus(), nil
}

// loadConfig reads the config file at path, or at the default location when
// path is empty.
func loadConfig(path string) (config.Snapshot, error) {
	if path == "" {
		var err error
		if path, err = config.DefaultPath(); err != nil {
			return config.Snapshot{}, err
		}
	}
	slog.Debug("using config file", "path", path)

	cfg := config.New(path)
	if err := cfg.Load(); err != nil {
		return config.Snapshot{}, util.WrapError("load config", err)
	}
	return cfg.Snapshot(), nil
}

// historyPath returns the configured history file or the default one.
func historyPath(configured string) (string, error) {
	if configured != "" {
		return configured, nil
	}
	return eventlog.DefaultLogPath()
}

func openHistory(configured string) (*eventlog.Logger, error) {
	path, err := historyPath(configured)
	if err != nil {
		return nil, err
	}
	return eventlog.NewLogger(path)
}

func startMonitor(addr string) (recorder.Monitor, error) {
	srv, err := monitor.Start(addr)
	if err != nil {
		return nil, err
	}
	return srv, nil
}

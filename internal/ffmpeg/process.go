// Package ffmpeg builds, checks and runs the ffmpeg screen capture process.
package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"

	"github.com/oszuidwest/zwfm-screenrecorder/internal/util"
)

// Process represents a running FFmpeg subprocess.
type Process struct {
	Cmd *exec.Cmd
}

// StartProcess launches ffmpeg with the terminal's stdin and the given
// stdout and stderr. The process stays in our process group so a terminal
// interrupt reaches it directly and it can finalize its output.
func StartProcess(ffmpegPath string, args []string, stdout, stderr io.Writer) (*Process, error) {
	cmd := exec.Command(ffmpegPath, args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	slog.Debug("starting ffmpeg", "path", ffmpegPath, "args", args)

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start ffmpeg: %w", err)
	}

	return &Process{Cmd: cmd}, nil
}

// Wait blocks until ffmpeg exits and returns its exit code. An error is
// returned only when the exit status could not be determined.
func (p *Process) Wait() (int, error) {
	err := p.Cmd.Wait()
	if err == nil {
		return 0, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	return -1, fmt.Errorf("wait for ffmpeg: %w", err)
}

// Runner starts an encoder process and waits for it.
type Runner struct{}

// Run starts ffmpeg and blocks until it exits, returning its exit code.
// When ctx is done ffmpeg is asked to stop, and Run still waits for it to
// finish writing its output.
func (Runner) Run(ctx context.Context, ffmpegPath string, args []string, stdout, stderr io.Writer) (int, error) {
	proc, err := StartProcess(ffmpegPath, args, stdout, stderr)
	if err != nil {
		return -1, err
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			slog.Info("stopping ffmpeg", "pid", proc.Cmd.Process.Pid)
			if err := util.GracefulSignal(proc.Cmd.Process); err != nil && !errors.Is(err, os.ErrProcessDone) {
				slog.Warn("failed to signal ffmpeg", "error", err)
			}
		case <-done:
		}
	}()

	return proc.Wait()
}

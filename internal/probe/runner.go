// Package probe queries the X display for the screen size and the geometry
// of an interactively selected window.
package probe

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"

	"github.com/oszuidwest/zwfm-screenrecorder/internal/util"
)

// Runner runs an external tool and returns its standard output.
type Runner interface {
	Output(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs tools as subprocesses.
type ExecRunner struct{}

// Output runs name with args and returns its stdout. A non-zero exit is an
// error carrying the last line the tool wrote to stderr.
func (ExecRunner) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if msg := util.ExtractLastError(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%w: %s", err, msg)
		}
		return nil, err
	}
	return stdout.Bytes(), nil
}

package ffmpeg

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"regexp"
	"time"

	"golang.org/x/mod/semver"

	"github.com/oszuidwest/zwfm-screenrecorder/internal/types"
	"github.com/oszuidwest/zwfm-screenrecorder/internal/util"
)

// MinimumVersion is the oldest ffmpeg release known to handle the filter graph
// and pulse input used here.
const MinimumVersion = "v4.0.0"

const preflightTimeout = 10 * time.Second

// versionPattern matches "ffmpeg version 6.1.1-3ubuntu5" and "ffmpeg version n7.0".
var versionPattern = regexp.MustCompile(`^ffmpeg version n?(\d+)\.(\d+)(?:\.(\d+))?`)

// Encoder describes a usable ffmpeg binary.
type Encoder struct {
	Path    string
	Version string // canonical semver, empty for git builds
}

// Preflight verifies that the configured ffmpeg binary exists and runs.
// It must succeed before any probing starts.
func Preflight(ctx context.Context, configuredPath string) (*Encoder, error) {
	name := configuredPath
	if name == "" {
		name = util.DefaultFFmpegPath
	}

	path := util.ResolveFFmpegPath(configuredPath)
	if path == "" {
		return nil, fmt.Errorf("%w: %s not found or not executable", types.ErrEncoderUnavailable, name)
	}

	ctx, cancel := context.WithTimeout(ctx, preflightTimeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, path, "-version")
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := util.ExtractLastError(stderr.String()); msg != "" {
			err = fmt.Errorf("%w: %s", err, msg)
		}
		return nil, fmt.Errorf("%w: %s cannot be executed: %w", types.ErrEncoderUnavailable, path, err)
	}

	enc := &Encoder{Path: path, Version: ParseVersion(stdout.Bytes())}
	switch {
	case enc.Version == "":
		slog.Debug("ffmpeg version not recognised", "path", path)
	case semver.Compare(enc.Version, MinimumVersion) < 0:
		slog.Warn("ffmpeg is older than the minimum supported version",
			"path", path, "version", enc.Version, "minimum", MinimumVersion)
	}

	return enc, nil
}

// ParseVersion returns the canonical semver of the ffmpeg release reported by
// "ffmpeg -version", or an empty string if none can be found.
func ParseVersion(out []byte) string {
	scanner := bufio.NewScanner(bytes.NewReader(out))
	if !scanner.Scan() {
		return ""
	}
	m := versionPattern.FindStringSubmatch(scanner.Text())
	if m == nil {
		return ""
	}
	patch := m[3]
	if patch == "" {
		patch = "0"
	}
	v := fmt.Sprintf("v%s.%s.%s", m[1], m[2], patch)
	if !semver.IsValid(v) {
		return ""
	}
	return v
}

package recorder

import (
	"fmt"
	"net"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/oszuidwest/zwfm-screenrecorder/internal/types"
	"github.com/oszuidwest/zwfm-screenrecorder/internal/util"
)

// validate is the shared validator instance for options.
var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())

	// Use flag names in error messages instead of struct field names
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("flag"), ",", 2)[0]
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})

	if err := validate.RegisterValidation("listen_addr", validateListenAddr); err != nil {
		panic(err)
	}
}

// validateListenAddr accepts anything net.Listen takes for TCP: an optional
// host or bracketed IPv6 literal and a numeric port, 0 included.
func validateListenAddr(fl validator.FieldLevel) bool {
	_, port, err := net.SplitHostPort(fl.Field().String())
	if err != nil {
		return false
	}
	_, err = strconv.ParseUint(port, 10, 16)
	return err == nil
}

// Options selects what to record and where to send it.
type Options struct {
	Window      bool   `flag:"window"`
	WithAudio   bool   `flag:"with-audio"`
	NoNormalize bool   `flag:"no-normalize"`
	Output      string `flag:"output" validate:"required,max=4096"`
	FFmpegPath  string `flag:"ffmpeg-path" validate:"required,max=4096"`
	Display     string `flag:"display" validate:"required,contains=:"`
	MonitorAddr string `flag:"monitor" validate:"omitempty,listen_addr"`
}

// Normalize reports whether the canvas snaps to the standard size ladder.
func (o *Options) Normalize() bool {
	return !o.NoNormalize
}

// Stream reports whether the output is an RTMP URL.
func (o *Options) Stream() bool {
	return types.IsStreamOutput(o.Output)
}

// DefaultOutput returns the file a recording started at t is written to when
// no output is given.
func DefaultOutput(dir string, t time.Time) string {
	name := util.RecordingFilename(t)
	if dir == "" {
		return name
	}
	return filepath.Join(dir, name)
}

// Validate checks the options and returns a *types.ValidationError listing
// every invalid field.
func (o *Options) Validate() error {
	err := validate.Struct(o)
	if err == nil {
		return nil
	}

	verr := types.NewValidationError()
	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		for _, e := range validationErrors {
			verr.Add(e.Field(), formatValidationMessage(e), e.Value())
		}
	} else {
		verr.Add("", err.Error(), nil)
	}
	return verr
}

// formatValidationMessage creates a human-readable message from a validator error.
func formatValidationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "max":
		return fmt.Sprintf("must be at most %s characters", e.Param())
	case "contains":
		return fmt.Sprintf("must contain %q", e.Param())
	case "listen_addr":
		return "must be a host:port address"
	default:
		return fmt.Sprintf("failed validation '%s'", e.Tag())
	}
}

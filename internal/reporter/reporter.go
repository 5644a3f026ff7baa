package reporter

import (
	"errors"

	"github.com/rs/zerolog"
)

const header = "[Sentry Plugin] Error: "

// Logger is the logging capability the plugin writes through.
type Logger interface {
	Info(msg string)
	Warn(msg string)
	Error(msg string)
}

// FatalError is returned by Report when errors abort the build.
type FatalError struct {
	Err error
}

func (e *FatalError) Error() string {
	return header + e.Err.Error()
}

func (e *FatalError) Unwrap() error {
	return e.Err
}

// IsFatal reports whether err came from a Reporter in abort mode.
func IsFatal(err error) bool {
	var fatal *FatalError
	return errors.As(err, &fatal)
}

// Reporter decides whether a failure stops the build or is only logged.
type Reporter struct {
	logger Logger
	silent bool
	abort  bool
}

// New creates a reporter.
func New(logger Logger, silent, abort bool) *Reporter {
	return &Reporter{logger: logger, silent: silent, abort: abort}
}

// Report surfaces err. In abort mode it returns a *FatalError, otherwise it
// logs err and returns nil. Silent mode drops the log line but keeps the
// abort decision.
func (r *Reporter) Report(err error) error {
	if err == nil {
		return nil
	}
	if r.abort {
		return &FatalError{Err: err}
	}
	if !r.silent && r.logger != nil {
		r.logger.Error(err.Error())
	}
	return nil
}

// Info logs a progress message unless silent.
func (r *Reporter) Info(msg string) {
	if !r.silent && r.logger != nil {
		r.logger.Info(msg)
	}
}

// Warn logs a warning unless silent.
func (r *Reporter) Warn(msg string) {
	if !r.silent && r.logger != nil {
		r.logger.Warn(msg)
	}
}

// Zerolog adapts a zerolog.Logger to Logger.
type Zerolog struct {
	l zerolog.Logger
}

// NewZerolog wraps l.
func NewZerolog(l zerolog.Logger) *Zerolog {
	return &Zerolog{l: l}
}

func (z *Zerolog) Info(msg string) {
	z.l.Info().Msg(msg)
}

func (z *Zerolog) Warn(msg string) {
	z.l.Warn().Msg("Warning: " + msg)
}

func (z *Zerolog) Error(msg string) {
	z.l.Error().Msg("Error: " + msg)
}

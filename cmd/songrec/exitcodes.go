package main

import (
	"errors"

	"github.com/hupe1980/songrec"
)

// Exit codes for CLI commands
const (
	ExitSuccess     = 0
	ExitError       = 1
	ExitConfigError = 2
	ExitDataError   = 3
)

// configError marks failures to load or apply configuration.
type configError struct{ err error }

func (e *configError) Error() string { return "loading config: " + e.err.Error() }
func (e *configError) Unwrap() error { return e.err }

func exitCode(err error) int {
	var ce *configError
	switch {
	case err == nil:
		return ExitSuccess
	case errors.As(err, &ce):
		return ExitConfigError
	case errors.Is(err, songrec.ErrMissingArtifact), errors.Is(err, songrec.ErrMalformedIndex):
		return ExitDataError
	default:
		return ExitError
	}
}

// errors.go defines the error kinds surfaced to the MCP host. Every failed
// tool call ends up as one of these, rendered as "<kind>: <message>".
package main

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a tool failure for the host.
type ErrorKind string

const (
	KindConfiguration ErrorKind = "configuration_error"
	KindValidation    ErrorKind = "validation_error"
	KindUpstream      ErrorKind = "upstream_error"
	KindNotFound      ErrorKind = "not_found_error"
)

// ToolError is the structured error returned from every tool handler.
type ToolError struct {
	Kind    ErrorKind
	Message string
	Err     error // underlying cause, may be nil
}

func (e *ToolError) Error() string {
	return string(e.Kind) + ": " + e.Message
}

func (e *ToolError) Unwrap() error { return e.Err }

func validationErrorf(format string, args ...any) *ToolError {
	return &ToolError{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func notFoundErrorf(format string, args ...any) *ToolError {
	return &ToolError{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// ConfigurationError reports a missing or unusable setting.
type ConfigurationError struct {
	Variable string
	Reason   string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s %s", e.Variable, e.Reason)
}

// UpstreamError is returned by the API client once a call has failed for
// good: either retries ran out or the failure was not worth retrying.
// StatusCode is 0 when no HTTP response was received.
type UpstreamError struct {
	Endpoint   string
	StatusCode int
	Attempts   int
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s failed after %d attempt(s) with status %d: %v", e.Endpoint, e.Attempts, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s failed after %d attempt(s): %v", e.Endpoint, e.Attempts, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// asToolError maps any error coming out of the client or validation layer to
// a *ToolError. Errors that are already ToolErrors pass through untouched.
func asToolError(err error) *ToolError {
	if err == nil {
		return nil
	}
	var te *ToolError
	if errors.As(err, &te) {
		return te
	}
	var ue *UpstreamError
	if errors.As(err, &ue) {
		return &ToolError{Kind: KindUpstream, Message: ue.Error(), Err: err}
	}
	var ce *ConfigurationError
	if errors.As(err, &ce) {
		return &ToolError{Kind: KindConfiguration, Message: ce.Error(), Err: err}
	}
	// Context cancellation and anything unexpected still came from the
	// upstream round trip.
	return &ToolError{Kind: KindUpstream, Message: err.Error(), Err: err}
}

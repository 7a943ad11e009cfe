package audio

import (
	"fmt"

	"thirdcoast.systems/tubeaudio/pkg/utils/format"
)

// maxBodyDetail bounds the raw upstream output carried in error details.
const maxBodyDetail = 512

// InputError is a request the backend cannot serve because of caller input,
// such as a selector the source does not offer.
type InputError struct {
	Msg string
}

func (e *InputError) Error() string { return e.Msg }

// ProtocolError reports a collaborator that answered with a non-success HTTP
// status or exited non-zero.
type ProtocolError struct {
	Source   string
	Status   int
	ExitCode int
	Body     string
	Cause    error
}

// NewProtocolError builds a ProtocolError, truncating body for diagnostics.
func NewProtocolError(source string, status, exitCode int, body string, cause error) *ProtocolError {
	return &ProtocolError{
		Source:   source,
		Status:   status,
		ExitCode: exitCode,
		Body:     format.Truncate(body, maxBodyDetail),
		Cause:    cause,
	}
}

func (e *ProtocolError) Error() string {
	msg := e.Source + ": "
	switch {
	case e.Status != 0:
		msg += fmt.Sprintf("unexpected status %d", e.Status)
	case e.ExitCode != 0:
		msg += fmt.Sprintf("exited with code %d", e.ExitCode)
	case e.Cause != nil:
		msg += e.Cause.Error()
	default:
		msg += "request failed"
	}
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

func (e *ProtocolError) Unwrap() error { return e.Cause }

// DataError reports a successful collaborator response that lacks a required field.
type DataError struct {
	Source string
	Field  string
}

func (e *DataError) Error() string {
	return fmt.Sprintf("%s: response is missing %s", e.Source, e.Field)
}

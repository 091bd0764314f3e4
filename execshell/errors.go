package execshell

import (
	"errors"
	"fmt"
)

const (
	processSpawnerNotConfiguredMessageConstant = "process spawner not configured"
	invalidOutputMessageConstant               = "Invalid or empty shell output."
	unknownErrorMessageConstant                = "Unknown error"
	commandFailedTemplateConstant              = "%s (code: %d)"
)

// ErrProcessSpawnerNotConfigured reports construction without a process spawner.
var ErrProcessSpawnerNotConfigured = errors.New(processSpawnerNotConfiguredMessageConstant)

// OutputDecodingError reports a command that exited successfully but produced
// standard output that is not valid UTF-8 text.
type OutputDecodingError struct{}

// Error implements the error interface for OutputDecodingError.
func (OutputDecodingError) Error() string {
	return invalidOutputMessageConstant
}

// CommandFailedError reports a command that exited with a non-zero code.
//
// Message carries the newline-trimmed standard error text of the child, or
// "Unknown error" when the captured bytes are not valid UTF-8.
type CommandFailedError struct {
	ExitCode int
	Message  string
}

// Error implements the error interface for CommandFailedError.
func (failure CommandFailedError) Error() string {
	return fmt.Sprintf(commandFailedTemplateConstant, failure.Message, failure.ExitCode)
}

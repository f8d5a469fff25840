package apperrors

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Application exit codes define the standard exit statuses for the application.
// These codes are used to signal the outcome of the program execution to the OS.
const (
	ExitSuccess       = 0   // Indicates successful execution.
	ExitErrorGeneric  = 1   // Indicates a generic or usage error.
	ExitErrorTimeout  = 2   // Indicates the profiled command timed out.
	ExitErrorConfig   = 4   // Indicates a configuration error.
	ExitErrorSpawn    = 127 // Indicates the command could not be started.
	ExitErrorCanceled = 130 // Indicates the operation was canceled (e.g., SIGINT).
)

var (
	// ErrSampleUnavailable is matched by every SampleUnavailableError.
	ErrSampleUnavailable = errors.New("sample unavailable")

	// ErrDoubleStop is returned when a sampler handle is stopped more than once.
	ErrDoubleStop = errors.New("sampler already stopped")
)

// ConfigError represents a user configuration error, such as invalid flags or
// values. It indicates that the application cannot proceed due to incorrect user input.
type ConfigError struct {
	// Message explains the specific configuration error.
	Message string
}

// Error returns the error message for a ConfigError.
func (e ConfigError) Error() string { return e.Message }

// NewConfigError creates a new ConfigError with a formatted message.
//
// Parameters:
//   - format: A format string (see fmt.Sprintf).
//   - a: Arguments to be formatted into the string.
//
// Returns:
//   - error: A new ConfigError instance containing the formatted message.
func NewConfigError(format string, a ...any) error {
	return ConfigError{Message: fmt.Sprintf(format, a...)}
}

// SpawnError reports that a command could not be started at all (not found,
// permission denied, empty command line). A command that starts and then
// exits with a non-zero status is not a SpawnError.
type SpawnError struct {
	// Command is the command line that failed to start.
	Command []string
	// Cause is the underlying error returned by the OS.
	Cause error
}

// Error returns a message naming the command and the cause.
func (e SpawnError) Error() string {
	return fmt.Sprintf("failed to start %q: %v", strings.Join(e.Command, " "), e.Cause)
}

// Unwrap returns the underlying OS error.
func (e SpawnError) Unwrap() error { return e.Cause }

// IsSpawnError reports whether err is or wraps a SpawnError.
func IsSpawnError(err error) bool {
	var spawnErr SpawnError
	return errors.As(err, &spawnErr)
}

// SampleUnavailableError reports a transient failure to read a system metric.
// Samplers skip the tick and keep going.
type SampleUnavailableError struct {
	// Metric names the reading that failed (e.g. "cpu", "memory").
	Metric string
	// Cause is the underlying error.
	Cause error
}

// Error returns a formatted message describing the failed reading.
func (e SampleUnavailableError) Error() string {
	return fmt.Sprintf("sample unavailable: %s: %v", e.Metric, e.Cause)
}

// Unwrap returns the underlying cause.
func (e SampleUnavailableError) Unwrap() error { return e.Cause }

// Is makes every SampleUnavailableError match ErrSampleUnavailable.
func (e SampleUnavailableError) Is(target error) bool { return target == ErrSampleUnavailable }

// TimeoutError represents a profiled command exceeding its time limit.
type TimeoutError struct {
	// Operation is the name of the operation that timed out.
	Operation string
	// Limit is the duration after which the operation was considered timed out.
	Limit time.Duration
}

// Error returns a formatted message describing the timeout.
func (e TimeoutError) Error() string {
	return fmt.Sprintf("operation %q timed out after %s", e.Operation, e.Limit)
}

// ValidationError represents an input validation failure. It identifies which
// field failed validation and provides a human-readable explanation.
type ValidationError struct {
	// Field is the name of the field that failed validation.
	Field string
	// Message explains the validation failure.
	Message string
}

// Error returns a formatted message describing the validation failure.
func (e ValidationError) Error() string {
	return fmt.Sprintf("validation error for %q: %s", e.Field, e.Message)
}

// WrapError wraps an error with additional context using fmt.Errorf and %w.
// This allows the wrapped error to be unwrapped with errors.Unwrap() and
// checked with errors.Is() and errors.As().
//
// Returns nil if err is nil.
func WrapError(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	message := fmt.Sprintf(format, args...)
	return fmt.Errorf("%s: %w", message, err)
}

// IsContextError checks if the error is a context cancellation or deadline exceeded error.
func IsContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// ExitCodeFor maps an error returned by a profiling run to the process exit
// code. A nil error maps to ExitSuccess.
func ExitCodeFor(err error) int {
	var (
		configErr     ConfigError
		validationErr ValidationError
		timeoutErr    TimeoutError
	)
	switch {
	case err == nil:
		return ExitSuccess
	case IsSpawnError(err):
		return ExitErrorSpawn
	case errors.As(err, &configErr), errors.As(err, &validationErr):
		return ExitErrorConfig
	case errors.As(err, &timeoutErr), errors.Is(err, context.DeadlineExceeded):
		return ExitErrorTimeout
	case errors.Is(err, context.Canceled):
		return ExitErrorCanceled
	default:
		return ExitErrorGeneric
	}
}

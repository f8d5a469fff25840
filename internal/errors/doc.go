// Package apperrors holds the error types bsprof distinguishes when deciding
// how to react and which exit code to return: invalid configuration, a
// command that could not be spawned, a skipped sample, a run timeout.
//
// Types carrying a cause implement Unwrap, so callers match them with
// errors.Is and errors.As. ExitCodeFor maps any returned error to the
// process exit code.
package apperrors

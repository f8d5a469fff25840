// Package apperrors provides tests for application error types.
package apperrors

import (
	"context"
	"errors"
	"os/exec"
	"testing"
	"time"
)

func TestConfigError(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name        string
		err         error
		expected    string
		checkTypeAs bool
	}{
		{
			name:     "Error returns message",
			err:      ConfigError{Message: "invalid flag value"},
			expected: "invalid flag value",
		},
		{
			name:     "NewConfigError creates formatted error",
			err:      NewConfigError("sampling interval must be positive, got %s", time.Duration(0)),
			expected: "sampling interval must be positive, got 0s",
		},
		{
			name:        "ConfigError type assertion",
			err:         NewConfigError("test error"),
			expected:    "test error",
			checkTypeAs: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if tt.err.Error() != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, tt.err.Error())
			}
			if tt.checkTypeAs {
				var configErr ConfigError
				if !errors.As(tt.err, &configErr) {
					t.Error("expected error to be ConfigError type")
				}
			}
		})
	}
}

func TestSpawnError(t *testing.T) {
	t.Parallel()

	cause := exec.ErrNotFound
	err := SpawnError{Command: []string{"no-such-binary", "-j", "4"}, Cause: cause}

	want := `failed to start "no-such-binary -j 4": executable file not found in $PATH`
	if err.Error() != want {
		t.Errorf("expected %q, got %q", want, err.Error())
	}
	if !errors.Is(err, exec.ErrNotFound) {
		t.Error("errors.Is should find the cause through SpawnError")
	}

	wrapped := WrapError(err, "run %d", 1)
	if !IsSpawnError(wrapped) {
		t.Error("IsSpawnError should see through WrapError")
	}
	if IsSpawnError(errors.New("exit status 2")) {
		t.Error("IsSpawnError should be false for unrelated errors")
	}
}

func TestSampleUnavailableError(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{
			name:     "cpu reading",
			err:      SampleUnavailableError{Metric: "cpu", Cause: errors.New("no such file")},
			expected: "sample unavailable: cpu: no such file",
		},
		{
			name:     "wrapped memory reading",
			err:      WrapError(SampleUnavailableError{Metric: "memory", Cause: errors.New("EACCES")}, "tick 3"),
			expected: "tick 3: sample unavailable: memory: EACCES",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if tt.err.Error() != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, tt.err.Error())
			}
			if !errors.Is(tt.err, ErrSampleUnavailable) {
				t.Error("errors.Is should match ErrSampleUnavailable")
			}
		})
	}
}

func TestTimeoutError(t *testing.T) {
	t.Parallel()
	err := TimeoutError{Operation: "make -j8", Limit: 30 * time.Second}
	if err.Error() != `operation "make -j8" timed out after 30s` {
		t.Errorf("unexpected message %q", err.Error())
	}
	var timeoutErr TimeoutError
	if !errors.As(WrapError(err, "run"), &timeoutErr) {
		t.Error("expected error to be TimeoutError type")
	}
}

func TestValidationError(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		err      ValidationError
		expected string
	}{
		{
			name:     "Error returns formatted message",
			err:      ValidationError{Field: "jobs", Message: "must be positive"},
			expected: `validation error for "jobs": must be positive`,
		},
		{
			name:     "Error with different field",
			err:      ValidationError{Field: "format", Message: `unknown format "yaml"`},
			expected: `validation error for "format": unknown format "yaml"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var err error = tt.err
			if err.Error() != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, err.Error())
			}
			var validationErr ValidationError
			if !errors.As(err, &validationErr) {
				t.Error("expected error to be ValidationError type")
			}
		})
	}
}

func TestWrapError(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name        string
		original    error
		format      string
		args        []any
		expectedMsg string
		expectNil   bool
		checkIs     error
	}{
		{
			name:        "wraps error with context",
			original:    errors.New("disk full"),
			format:      "failed to write report",
			expectedMsg: "failed to write report: disk full",
		},
		{
			name:        "preserves error chain",
			original:    context.DeadlineExceeded,
			format:      "command timed out",
			expectedMsg: "command timed out: context deadline exceeded",
			checkIs:     context.DeadlineExceeded,
		},
		{
			name:      "returns nil for nil error",
			original:  nil,
			format:    "some context",
			expectNil: true,
		},
		{
			name:        "supports format arguments",
			original:    errors.New("database is locked"),
			format:      "failed to save run %d to %s",
			args:        []any{3, "runs.db"},
			expectedMsg: "failed to save run 3 to runs.db: database is locked",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			wrapped := WrapError(tt.original, tt.format, tt.args...)

			if tt.expectNil {
				if wrapped != nil {
					t.Error("WrapError(nil, ...) should return nil")
				}
				return
			}
			if wrapped == nil {
				t.Fatal("wrapped error should not be nil")
			}
			if wrapped.Error() != tt.expectedMsg {
				t.Errorf("expected %q, got %q", tt.expectedMsg, wrapped.Error())
			}
			if tt.checkIs != nil && !errors.Is(wrapped, tt.checkIs) {
				t.Errorf("wrapped error should preserve %v in the chain", tt.checkIs)
			}
		})
	}
}

func TestIsContextError(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"context.Canceled", context.Canceled, true},
		{"context.DeadlineExceeded", context.DeadlineExceeded, true},
		{"wrapped context.Canceled", WrapError(context.Canceled, "operation canceled"), true},
		{"regular error", errors.New("some error"), false},
		{"nil error", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := IsContextError(tt.err); got != tt.expected {
				t.Errorf("IsContextError(%v) = %v, expected %v", tt.err, got, tt.expected)
			}
		})
	}
}

func TestExitCodeFor(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"spawn", SpawnError{Command: []string{"x"}, Cause: exec.ErrNotFound}, ExitErrorSpawn},
		{"wrapped spawn", WrapError(SpawnError{Command: []string{"x"}, Cause: exec.ErrNotFound}, "jobs=2"), ExitErrorSpawn},
		{"config", NewConfigError("bad interval"), ExitErrorConfig},
		{"validation", ValidationError{Field: "jobs", Message: "must be positive"}, ExitErrorConfig},
		{"timeout", TimeoutError{Operation: "make", Limit: time.Second}, ExitErrorTimeout},
		{"deadline", WrapError(context.DeadlineExceeded, "run"), ExitErrorTimeout},
		{"canceled", context.Canceled, ExitErrorCanceled},
		{"generic", errors.New("boom"), ExitErrorGeneric},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := ExitCodeFor(tt.err); got != tt.want {
				t.Errorf("ExitCodeFor(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestExitCodes(t *testing.T) {
	t.Parallel()
	codes := map[string]int{
		"ExitSuccess":       ExitSuccess,
		"ExitErrorGeneric":  ExitErrorGeneric,
		"ExitErrorTimeout":  ExitErrorTimeout,
		"ExitErrorConfig":   ExitErrorConfig,
		"ExitErrorSpawn":    ExitErrorSpawn,
		"ExitErrorCanceled": ExitErrorCanceled,
	}

	if ExitSuccess != 0 {
		t.Errorf("ExitSuccess should be 0, got %d", ExitSuccess)
	}
	if ExitErrorGeneric != 1 {
		t.Errorf("usage errors must exit with 1, got %d", ExitErrorGeneric)
	}
	if ExitErrorCanceled != 130 {
		t.Errorf("ExitErrorCanceled should be 130 (SIGINT convention), got %d", ExitErrorCanceled)
	}

	seen := make(map[int]string)
	for name, code := range codes {
		if existing, ok := seen[code]; ok {
			t.Errorf("duplicate exit code %d: %s and %s", code, existing, name)
		}
		seen[code] = name
	}
}

package errors

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestErrorClassString(t *testing.T) {
	tests := []struct {
		class ErrorClass
		want  string
	}{
		{ErrorTransient, "transient"},
		{ErrorInvalid, "invalid"},
		{ErrorFatal, "fatal"},
		{ErrorClass(99), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.class.String(); got != tt.want {
			t.Errorf("ErrorClass(%d).String() = %q, want %q", tt.class, got, tt.want)
		}
	}
}

func TestWrapFormatsContext(t *testing.T) {
	base := errors.New("boom")
	err := Wrap(base, "pipeline", "ProcessBatch", "persisting point")

	want := "pipeline.ProcessBatch: persisting point failed: boom"
	if err.Error() != want {
		t.Errorf("Wrap() = %q, want %q", err.Error(), want)
	}
	if !errors.Is(err, base) {
		t.Error("wrapped error should unwrap to base")
	}
}

func TestWrapNilReturnsNil(t *testing.T) {
	if Wrap(nil, "c", "m", "a") != nil {
		t.Error("Wrap(nil) should return nil")
	}
	if WrapTransient(nil, "c", "m", "a") != nil {
		t.Error("WrapTransient(nil) should return nil")
	}
	if WrapInvalid(nil, "c", "m", "a") != nil {
		t.Error("WrapInvalid(nil) should return nil")
	}
	if WrapFatal(nil, "c", "m", "a") != nil {
		t.Error("WrapFatal(nil) should return nil")
	}
}

func TestClassifiedWrappers(t *testing.T) {
	base := errors.New("boom")

	tests := []struct {
		name  string
		err   error
		check func(error) bool
		class ErrorClass
	}{
		{"transient", WrapTransient(base, "c", "m", "a"), IsTransient, ErrorTransient},
		{"invalid", WrapInvalid(base, "c", "m", "a"), IsInvalid, ErrorInvalid},
		{"fatal", WrapFatal(base, "c", "m", "a"), IsFatal, ErrorFatal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !tt.check(tt.err) {
				t.Errorf("classification check failed for %v", tt.err)
			}
			if Classify(tt.err) != tt.class {
				t.Errorf("Classify() = %v, want %v", Classify(tt.err), tt.class)
			}
			if !errors.Is(tt.err, base) {
				t.Error("classified error should unwrap to base")
			}
		})
	}
}

func TestClassificationSurvivesFurtherWrapping(t *testing.T) {
	inner := WrapInvalid(ErrUnsupportedKind, "aggregate", "Aggregate", "kind variance")
	outer := fmt.Errorf("handling request: %w", inner)

	if !IsInvalid(outer) {
		t.Error("invalid classification lost through fmt.Errorf wrapping")
	}
	if !errors.Is(outer, ErrUnsupportedKind) {
		t.Error("sentinel lost through wrapping")
	}
}

func TestSentinelClassification(t *testing.T) {
	if !IsTransient(ErrStorageUnavailable) {
		t.Error("storage unavailable should be transient")
	}
	if !IsTransient(ErrDeliveryFailed) {
		t.Error("delivery failure should be transient")
	}
	if !IsTransient(context.DeadlineExceeded) {
		t.Error("deadline exceeded should be transient")
	}
	if !IsInvalid(ErrInvalidData) {
		t.Error("invalid data should be invalid")
	}
	if !IsFatal(ErrMissingConfig) {
		t.Error("missing config should be fatal")
	}
	if IsTransient(nil) || IsInvalid(nil) || IsFatal(nil) {
		t.Error("nil is never classified")
	}
}

func TestTransientMessagePatterns(t *testing.T) {
	if !IsTransient(errors.New("dial tcp: connection refused")) {
		t.Error("connection errors should look transient")
	}
	if IsTransient(errors.New("syntax error at line 3")) {
		t.Error("parse errors should not look transient")
	}
}

func TestDefaultRetryConfig(t *testing.T) {
	cfg := DefaultRetryConfig()

	if cfg.MaxRetries != 3 {
		t.Errorf("MaxRetries = %d, want 3", cfg.MaxRetries)
	}
	if cfg.InitialDelay != 30*time.Second {
		t.Errorf("InitialDelay = %v, want 30s", cfg.InitialDelay)
	}

	rc := cfg.ToRetryConfig()
	if rc.MaxAttempts != cfg.MaxRetries+1 {
		t.Errorf("MaxAttempts = %d, want %d", rc.MaxAttempts, cfg.MaxRetries+1)
	}
}

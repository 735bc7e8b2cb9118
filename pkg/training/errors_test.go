package training

import (
	"net"
	"testing"

	"github.com/pkg/errors"
)

func TestErrorReasonSurvivesWrapping(t *testing.T) {
	cause := &net.OpError{Op: "dial", Err: errors.New("connection refused")}
	err := errors.Wrap(NewPersistenceError("Failed to save sensor data", cause), "gateway")

	if !IsPersistenceError(err) {
		t.Fatalf("IsPersistenceError(%v) = false, want true", err)
	}
	if got := MessageOf(err); got != "Failed to save sensor data" {
		t.Fatalf("MessageOf() = %q, want %q", got, "Failed to save sensor data")
	}

	var opErr *net.OpError
	if !errors.As(err, &opErr) {
		t.Fatal("cause is not reachable through the error chain")
	}
}

func TestReasonOfPlainError(t *testing.T) {
	err := errors.New("boom")
	if got := ReasonOf(err); got != "" {
		t.Fatalf("ReasonOf() = %q, want empty", got)
	}
	if got := MessageOf(err); got != "boom" {
		t.Fatalf("MessageOf() = %q, want %q", got, "boom")
	}
}

func TestErrorString(t *testing.T) {
	if got := NewNoActiveSessionError().Error(); got != "ERR_NO_ACTIVE_SESSION: No active training session" {
		t.Fatalf("Error() = %q", got)
	}
}

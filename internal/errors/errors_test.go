package errors

import (
	stderrors "errors"
	"strings"
	"testing"
)

func TestUserError(t *testing.T) {
	inner := stderrors.New("connection refused")
	err := UserError{
		Message:    "Failed to reach key vault",
		Details:    "dial tcp: connection refused",
		Suggestion: "Check the vault URL and your network access",
		Err:        inner,
	}

	msg := err.Error()
	if !strings.Contains(msg, "Failed to reach key vault") {
		t.Errorf("missing message: %s", msg)
	}
	if !strings.Contains(msg, "Details:") {
		t.Errorf("missing details: %s", msg)
	}
	if !strings.Contains(msg, "Check the vault URL") {
		t.Errorf("missing suggestion: %s", msg)
	}
	if !stderrors.Is(err, inner) {
		t.Error("Unwrap chain broken")
	}
}

func TestUserErrorFallsBackToWrapped(t *testing.T) {
	err := UserError{Err: stderrors.New("boom")}
	if !strings.Contains(err.Error(), "boom") {
		t.Errorf("expected wrapped error text, got %s", err.Error())
	}
}

func TestConfigError(t *testing.T) {
	err := ConfigError{
		Field:      "expirationDays",
		Value:      -1,
		Message:    "must be positive",
		Suggestion: "Use a value like 90",
	}

	msg := err.Error()
	for _, want := range []string{"expirationDays", "-1", "must be positive", "Use a value like 90"} {
		if !strings.Contains(msg, want) {
			t.Errorf("missing %q in %s", want, msg)
		}
	}
}

func TestStoreError(t *testing.T) {
	inner := stderrors.New("403")
	err := StoreError{Store: "kv-prod", Operation: "UpdateSecret", Err: inner}
	if !strings.Contains(err.Error(), "kv-prod") || !strings.Contains(err.Error(), "UpdateSecret") {
		t.Errorf("unexpected message: %s", err.Error())
	}
	if !stderrors.Is(err, inner) {
		t.Error("Unwrap chain broken")
	}
}

package sentinel

import (
	"errors"
	"fmt"
	"testing"
)

// TestErrorMessage verifies that Error returns its underlying string.
func TestErrorMessage(t *testing.T) {
	t.Parallel()

	const e = Error("instance not found")
	if got := e.Error(); got != "instance not found" {
		t.Errorf("Error() = %q, want %q", got, "instance not found")
	}
}

// TestErrorsIsThroughWrapping verifies that errors.Is matches a sentinel
// through a chain of fmt.Errorf %w wrapping.
func TestErrorsIsThroughWrapping(t *testing.T) {
	t.Parallel()

	const base = Error("pool is empty")
	wrapped := fmt.Errorf("next: %w", fmt.Errorf("select instance: %w", base))

	if !errors.Is(wrapped, base) {
		t.Errorf("errors.Is(%v, %v) = false, want true", wrapped, base)
	}
}

// TestDistinctSentinelsDoNotMatch verifies that two different sentinel values
// never match each other via errors.Is.
func TestDistinctSentinelsDoNotMatch(t *testing.T) {
	t.Parallel()

	const a = Error("a")
	const b = Error("b")

	if errors.Is(a, b) {
		t.Error("errors.Is(a, b) = true, want false for distinct sentinels")
	}
}

package process

import (
	"context"
	"errors"
	"testing"
	"time"
)

// TestWaitReadyValidation verifies that invalid configurations are rejected
// with the matching sentinel errors.
func TestWaitReadyValidation(t *testing.T) {
	t.Parallel()

	alwaysReady := func(_ context.Context, _ int) (bool, error) { return true, nil }

	tests := map[string]struct {
		cfg     WaitReadyConfig
		wantErr error
	}{
		"zero interval": {
			cfg:     WaitReadyConfig{Name: "tor", Interval: 0, Timeout: time.Second},
			wantErr: ErrIntervalNotPositive,
		},
		"zero timeout": {
			cfg:     WaitReadyConfig{Name: "tor", Interval: time.Millisecond, Timeout: 0},
			wantErr: ErrTimeoutNotPositive,
		},
	}

	for name, tc := range tests {
		tc := tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			err := WaitReady(context.Background(), tc.cfg, alwaysReady)
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("WaitReady error = %v, want %v", err, tc.wantErr)
			}
		})
	}
}

// TestWaitReadyEmptyName verifies the name requirement.
func TestWaitReadyEmptyName(t *testing.T) {
	t.Parallel()

	err := WaitReady(context.Background(),
		WaitReadyConfig{Interval: time.Millisecond, Timeout: time.Second},
		func(_ context.Context, _ int) (bool, error) { return true, nil })
	if err == nil {
		t.Fatal("WaitReady with empty name should fail")
	}
}

// TestWaitReadySucceedsAfterRetries verifies that polling continues until the
// check reports ready and that attempts are sequential and 1-based.
func TestWaitReadySucceedsAfterRetries(t *testing.T) {
	t.Parallel()

	var attempts []int
	err := WaitReady(context.Background(), WaitReadyConfig{
		Interval: time.Millisecond,
		Timeout:  5 * time.Second,
		Name:     "tor",
	}, func(_ context.Context, attempt int) (bool, error) {
		attempts = append(attempts, attempt)
		return attempt >= 3, nil
	})
	if err != nil {
		t.Fatalf("WaitReady failed: %v", err)
	}
	if len(attempts) != 3 || attempts[0] != 1 || attempts[2] != 3 {
		t.Errorf("attempts = %v, want [1 2 3]", attempts)
	}
}

// TestWaitReadyFatalCheckError verifies that a non-nil check error aborts
// polling immediately.
func TestWaitReadyFatalCheckError(t *testing.T) {
	t.Parallel()

	fatal := errors.New("bad torrc")
	calls := 0
	err := WaitReady(context.Background(), WaitReadyConfig{
		Interval: time.Millisecond,
		Timeout:  5 * time.Second,
		Name:     "tor",
	}, func(_ context.Context, _ int) (bool, error) {
		calls++
		return false, fatal
	})
	if !errors.Is(err, fatal) {
		t.Errorf("WaitReady error = %v, want wrapping %v", err, fatal)
	}
	if calls != 1 {
		t.Errorf("check called %d times, want 1 (fatal aborts polling)", calls)
	}
}

// TestWaitReadyAbortsWhenProcessExits verifies that a closed ProcessExited
// channel aborts the wait with ErrProcessExited.
func TestWaitReadyAbortsWhenProcessExits(t *testing.T) {
	t.Parallel()

	exited := make(chan struct{})
	close(exited)

	err := WaitReady(context.Background(), WaitReadyConfig{
		Interval:      time.Millisecond,
		Timeout:       5 * time.Second,
		Name:          "tor",
		ProcessExited: exited,
	}, func(_ context.Context, _ int) (bool, error) {
		return false, nil
	})
	if !errors.Is(err, ErrProcessExited) {
		t.Errorf("WaitReady error = %v, want ErrProcessExited", err)
	}
}

// TestWaitReadyTimesOut verifies that a never-ready check fails with the
// context deadline error once the timeout elapses.
func TestWaitReadyTimesOut(t *testing.T) {
	t.Parallel()

	err := WaitReady(context.Background(), WaitReadyConfig{
		Interval: time.Millisecond,
		Timeout:  25 * time.Millisecond,
		Name:     "tor",
	}, func(_ context.Context, _ int) (bool, error) {
		return false, nil
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("WaitReady error = %v, want context.DeadlineExceeded", err)
	}
}

package shared

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestIsSQLiteConflictError(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{errors.New("SQLITE_BUSY: database busy"), true},
		{fmt.Errorf("save: %w", errors.New("database is locked")), true},
		{errors.New("no such table: users"), false},
	}
	for _, tt := range tests {
		if got := IsSQLiteConflictError(tt.err); got != tt.want {
			t.Errorf("IsSQLiteConflictError(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestRetryOnConflict(t *testing.T) {
	calls := 0
	err := RetryOnConflict(context.Background(), 3, time.Millisecond, func() error {
		calls++
		if calls < 3 {
			return errors.New("database is locked")
		}
		return nil
	})
	if err != nil || calls != 3 {
		t.Fatalf("RetryOnConflict = %v after %d calls, want success after 3", err, calls)
	}
}

func TestRetryOnConflictStopsOnOtherErrors(t *testing.T) {
	calls := 0
	boom := errors.New("boom")
	err := RetryOnConflict(context.Background(), 5, time.Millisecond, func() error {
		calls++
		return boom
	})
	if !errors.Is(err, boom) || calls != 1 {
		t.Errorf("RetryOnConflict = %v after %d calls, want boom after 1", err, calls)
	}
}

func TestRetryOnConflictGivesUp(t *testing.T) {
	calls := 0
	err := RetryOnConflict(context.Background(), 2, time.Millisecond, func() error {
		calls++
		return errors.New("SQLITE_BUSY")
	})
	if err == nil || calls != 2 {
		t.Errorf("RetryOnConflict = %v after %d calls, want error after 2", err, calls)
	}
}

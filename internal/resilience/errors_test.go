package resilience

import (
	"errors"
	"fmt"
	"syscall"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestIsTransient_Nil(t *testing.T) {
	if IsTransient(nil) {
		t.Error("nil error should not be transient")
	}
}

func TestIsTransient_WrappedTransientError(t *testing.T) {
	err := fmt.Errorf("promote: %w", NewTransientError(errors.New("conn dropped")))
	if !IsTransient(err) {
		t.Error("wrapped TransientError should be transient")
	}
}

func TestIsTransient_PgErrors(t *testing.T) {
	cases := []struct {
		code string
		want bool
	}{
		{"40001", true},  // serialization failure
		{"40P01", true},  // deadlock
		{"53300", true},  // too many connections
		{"08006", true},  // connection failure
		{"23505", false}, // unique violation
		{"42601", false}, // syntax error
	}
	for _, tc := range cases {
		err := fmt.Errorf("query: %w", &pgconn.PgError{Code: tc.code})
		if got := IsTransient(err); got != tc.want {
			t.Errorf("code %s: expected %v, got %v", tc.code, tc.want, got)
		}
	}
}

func TestIsTransient_SQLiteBusy(t *testing.T) {
	if !IsTransient(errors.New("sqlite: insert identifier: database is locked (5) (SQLITE_BUSY)")) {
		t.Error("SQLITE_BUSY should be transient")
	}
}

func TestIsTransient_Syscall(t *testing.T) {
	if !IsTransient(fmt.Errorf("dial: %w", syscall.ECONNREFUSED)) {
		t.Error("ECONNREFUSED should be transient")
	}
}

func TestIsTransient_PermanentErrors(t *testing.T) {
	if IsTransient(errors.New("vessel not found: 42")) {
		t.Error("not-found should not be transient")
	}
	if IsTransient(errors.New("identifier already exists")) {
		t.Error("constraint violation should not be transient")
	}
}

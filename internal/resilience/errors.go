package resilience

import (
	"errors"
	"net"
	"strings"
	"syscall"

	"github.com/jackc/pgx/v5/pgconn"
)

// TransientError wraps an error that is safe to retry.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return e.Err.Error()
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// NewTransientError marks an error as transient.
func NewTransientError(err error) *TransientError {
	return &TransientError{Err: err}
}

// IsTransient reports whether the error (or any error in its chain) is a
// transient store failure: a serialization or deadlock abort, a dropped
// connection, or an SQLite busy lock. Constraint violations and not-found
// errors are never transient.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var te *TransientError
	if errors.As(err, &te) {
		return true
	}

	if isTransientPgError(err) {
		return true
	}

	// Network-level failures between the client and the database.
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return true
	}

	// String heuristics for drivers that don't expose typed errors,
	// notably SQLite's busy/locked states.
	msg := strings.ToLower(err.Error())
	transientPatterns := []string{
		"database is locked",
		"database table is locked",
		"connection reset by peer",
		"broken pipe",
		"i/o timeout",
		"unexpected eof",
		"conn closed",
	}
	for _, p := range transientPatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}

	return false
}

// isTransientPgError checks PostgreSQL SQLSTATE classes that indicate the
// statement can be retried as-is.
func isTransientPgError(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	switch pgErr.Code {
	case "40001", // serialization_failure
		"40P01", // deadlock_detected
		"53300", // too_many_connections
		"57P03": // cannot_connect_now
		return true
	}
	// Class 08: connection exceptions.
	return strings.HasPrefix(pgErr.Code, "08")
}

package storage

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/jackc/pgx/v5/pgconn"
)

// FailureClass buckets write failures so the coordinator can report them
// structurally without inspecting driver errors.
type FailureClass string

const (
	FailurePermissionDenied FailureClass = "permission_denied"
	FailureSchemaMismatch   FailureClass = "schema_mismatch"
	FailureNetwork          FailureClass = "network_error"
	FailureUnknown          FailureClass = "unknown"
)

// WriteFailure is a classified write error.
type WriteFailure struct {
	Class FailureClass
	Err   error
}

func (f *WriteFailure) Error() string {
	return fmt.Sprintf("%s: %v", f.Class, f.Err)
}

func (f *WriteFailure) Unwrap() error {
	return f.Err
}

// classifyWriteError maps driver errors onto failure classes.
func classifyWriteError(err error) *WriteFailure {
	return &WriteFailure{Class: classOf(err), Err: err}
}

func classOf(err error) FailureClass {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "42501", "28000", "28P01": // insufficient_privilege, auth failures
			return FailurePermissionDenied
		case "42P01", "42703", "42804", "42P10": // undefined table/column, type mismatch
			return FailureSchemaMismatch
		}
		return FailureUnknown
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return FailureNetwork
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return FailureNetwork
	}

	return FailureUnknown
}

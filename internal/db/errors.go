package db

import (
	"errors"
	"net"
	"syscall"
)

// Sentinel errors for index operations.
var (
	ErrKeyNotFound   = errors.New("db: key not found")
	ErrIndexNotFound = errors.New("db: index not found")
	ErrIndexExists   = errors.New("db: index already exists")
	ErrUnavailable   = errors.New("db: backend unavailable")
)

// Op constants name backend operations for error context.
const (
	OpCreateIndex = "FT.CREATE"
	OpIndexInfo   = "FT.INFO"
	OpSearch      = "FT.SEARCH"
	OpMerge       = "JSON.MERGE"
	OpSet         = "JSON.SET"
	OpPing        = "PING"
	OpCount       = "COUNT"
	OpMultiSearch = "MSEARCH"
	OpBulk        = "BULK"
	OpRefresh     = "REFRESH"
	OpPut         = "PUT"
)

// Error wraps an underlying error with the operation name for diagnostics.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }

// IsUnavailable reports whether err means the backend could not be reached,
// as opposed to a request the backend rejected.
func IsUnavailable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrUnavailable) || errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne)
}

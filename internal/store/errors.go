package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mattn/go-sqlite3"
)

// Sentinel errors, one per Kind. Match with errors.Is.
var (
	ErrNotFound         = errors.New("not found")
	ErrInvalid          = errors.New("invalid argument")
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrWriteConflict    = errors.New("write conflict")
	ErrSerialization    = errors.New("serialization failed")
)

// Kind classifies a store failure.
type Kind int

const (
	KindUnknown Kind = iota
	KindNotFound
	KindInvalid
	KindStoreUnavailable
	KindWriteConflict
	KindSerialization
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindInvalid:
		return "invalid"
	case KindStoreUnavailable:
		return "store_unavailable"
	case KindWriteConflict:
		return "write_conflict"
	case KindSerialization:
		return "serialization"
	default:
		return "unknown"
	}
}

func (k Kind) sentinel() error {
	switch k {
	case KindNotFound:
		return ErrNotFound
	case KindInvalid:
		return ErrInvalid
	case KindStoreUnavailable:
		return ErrStoreUnavailable
	case KindWriteConflict:
		return ErrWriteConflict
	case KindSerialization:
		return ErrSerialization
	default:
		return nil
	}
}

// Error wraps a failure with the operation that produced it and its Kind.
type Error struct {
	Op   string
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("store: %v", e.Err)
	}
	return fmt.Sprintf("store: %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel for e.Kind.
func (e *Error) Is(target error) bool {
	s := e.Kind.sentinel()
	return s != nil && target == s
}

// KindOf returns the Kind of err, or KindUnknown.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	for _, k := range []Kind{KindNotFound, KindInvalid, KindStoreUnavailable, KindWriteConflict, KindSerialization} {
		if errors.Is(err, k.sentinel()) {
			return k
		}
	}
	return KindUnknown
}

// NewError builds an *Error of the given kind.
func NewError(op string, kind Kind, format string, args ...any) error {
	return &Error{Op: op, Kind: kind, Err: fmt.Errorf(format, args...)}
}

// NotFound reports a missing entity.
func NotFound(op, what, id string) error {
	return &Error{Op: op, Kind: KindNotFound, Err: fmt.Errorf("%s %s does not exist", what, id)}
}

// wrapError attaches op and a Kind derived from err.
func wrapError(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *Error
	if errors.As(err, &se) {
		return err
	}
	return &Error{Op: op, Kind: classify(err), Err: err}
}

func classify(err error) Kind {
	if errors.Is(err, sql.ErrNoRows) {
		return KindNotFound
	}
	if errors.Is(err, sql.ErrConnDone) || errors.Is(err, sql.ErrTxDone) {
		return KindStoreUnavailable
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return KindUnknown
	}
	var sqlErr sqlite3.Error
	if errors.As(err, &sqlErr) {
		switch sqlErr.Code {
		case sqlite3.ErrBusy, sqlite3.ErrLocked, sqlite3.ErrConstraint:
			return KindWriteConflict
		case sqlite3.ErrCantOpen, sqlite3.ErrIoErr, sqlite3.ErrReadonly,
			sqlite3.ErrFull, sqlite3.ErrNotADB, sqlite3.ErrCorrupt:
			return KindStoreUnavailable
		case sqlite3.ErrError:
			if strings.Contains(sqlErr.Error(), "already exists") {
				return KindWriteConflict
			}
		}
		return KindUnknown
	}
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	var unsupported *json.UnsupportedTypeError
	var unsupportedVal *json.UnsupportedValueError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) ||
		errors.As(err, &unsupported) || errors.As(err, &unsupportedVal) {
		return KindSerialization
	}
	if strings.Contains(err.Error(), "database is closed") {
		return KindStoreUnavailable
	}
	return KindUnknown
}

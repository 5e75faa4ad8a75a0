package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/mattn/go-sqlite3"
)

func TestErrorKinds(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"no rows", sql.ErrNoRows, KindNotFound},
		{"conn done", sql.ErrConnDone, KindStoreUnavailable},
		{"busy", sqlite3.Error{Code: sqlite3.ErrBusy}, KindWriteConflict},
		{"constraint", sqlite3.Error{Code: sqlite3.ErrConstraint}, KindWriteConflict},
		{"cannot open", sqlite3.Error{Code: sqlite3.ErrCantOpen}, KindStoreUnavailable},
		{"cancelled", context.Canceled, KindUnknown},
		{"other", errors.New("boom"), KindUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := wrapError("op", tt.err)
			if got := KindOf(err); got != tt.want {
				t.Errorf("KindOf = %v, want %v", got, tt.want)
			}
			if !errors.Is(err, tt.err) {
				t.Error("wrapped error lost its cause")
			}
		})
	}
}

func TestErrorIs(t *testing.T) {
	err := fmt.Errorf("get: %w", NotFound("get", "document", "abc"))
	if !errors.Is(err, ErrNotFound) {
		t.Error("expected ErrNotFound")
	}
	if errors.Is(err, ErrInvalid) {
		t.Error("did not expect ErrInvalid")
	}
	if KindOf(err) != KindNotFound || KindOf(err).String() != "not_found" {
		t.Errorf("KindOf = %v", KindOf(err))
	}
	if KindOf(fmt.Errorf("x: %w", ErrWriteConflict)) != KindWriteConflict {
		t.Error("bare sentinel should classify")
	}
	if wrapError("op", nil) != nil {
		t.Error("wrapError(nil) should be nil")
	}
	inner := NewError("inner", KindSerialization, "bad")
	if wrapError("outer", inner) != inner {
		t.Error("already classified errors are returned as is")
	}
}

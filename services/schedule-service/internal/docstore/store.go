// Package docstore defines the document-oriented persistence contract the
// scheduling engine writes through. The engine depends only on the Store
// interface; Postgres backs it in production and the in-memory variant backs
// tests and offline tooling.
package docstore

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("docstore: record not found")

// Record is the persisted appointment document. Date is ISO ("2006-01-02"),
// StartTime/EndTime are "HH:MM". Staff name and color are stored denormalized
// alongside the staff id.
type Record struct {
	ID         string
	Date       string
	StartTime  string
	EndTime    string
	StaffID    string
	StaffName  string
	StaffColor string
	Title      string
	Notes      string
	Type       string
	Deleted    bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
	DeletedAt  *time.Time
}

// Patch carries the fields of a merge-update; nil fields are left untouched.
type Patch struct {
	Date       *string
	StartTime  *string
	EndTime    *string
	StaffID    *string
	StaffName  *string
	StaffColor *string
	Title      *string
	Notes      *string
	Type       *string
}

type Store interface {
	// QueryRange returns all non-deleted records whose date falls in the
	// inclusive [dateFrom, dateTo] range.
	QueryRange(ctx context.Context, dateFrom, dateTo string) ([]Record, error)

	// Insert stores rec and returns its id. A fresh id is assigned when
	// rec.ID is empty; a caller-supplied id is honored so undo can restore a
	// deleted record under its original identity.
	Insert(ctx context.Context, rec Record) (string, error)

	// MergeUpdate applies the non-nil fields of p to the record with id.
	MergeUpdate(ctx context.Context, id string, p Patch) error

	// MarkDeleted tombstones the record (deleted flag + deletion timestamp).
	// Records are never physically removed. Already-deleted ids are a no-op.
	MarkDeleted(ctx context.Context, id string) error
}

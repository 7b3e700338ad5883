package mutation

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// HeaderFilter narrows header listings
type HeaderFilter struct {
	DateFrom string // inclusive, yyyy-mm-dd; empty means unbounded
	DateTo   string // inclusive
	Status   Status // empty means any status
}

// ReceiveUpdate carries the header-level outcome of a reconciliation
type ReceiveUpdate struct {
	Status     Status
	ReceivedBy string
	ReceivedAt time.Time
}

// LineUpdate sets the received quantity of one line
type LineUpdate struct {
	LineID      string
	QtyReceived decimal.Decimal
}

// Repository is the persistence port for mutation forms
type Repository interface {
	// InsertHeader persists a new header. Implementations retry with a
	// reduced column set when the target schema predates the status and
	// outlet-id columns.
	InsertHeader(ctx context.Context, h *Header) error

	// InsertLines bulk-inserts the doubled movement rows
	InsertLines(ctx context.Context, lines []Line) error

	// FindHeaderByID returns a header or shared.ErrNotFound
	FindHeaderByID(ctx context.Context, id string) (*Header, error)

	// ListHeaders returns headers matching the filter, newest first
	ListHeaders(ctx context.Context, f HeaderFilter) ([]Header, error)

	// FindLinesByHeaderID returns all lines of a header
	FindLinesByHeaderID(ctx context.Context, headerID string) ([]Line, error)

	// ApplyReceive atomically applies the reconciliation outcome: every
	// line update scoped by line id and header id, then the header update.
	// A header write that fails on the full payload is retried with the
	// status column only so legacy schemas without received_by/received_at
	// still converge.
	ApplyReceive(ctx context.Context, headerID string, upd ReceiveUpdate, lines []LineUpdate) error
}

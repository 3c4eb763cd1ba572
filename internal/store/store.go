// Package store provides the inventory storage interface and its
// SQLite implementation.
package store

import (
	"context"
	"errors"
	"time"

	"packrat/internal/model"
)

// ErrUnavailable wraps storage connectivity failures. Callers treat it
// as retryable; conversation state is preserved so the user is never
// asked the same questions again.
var ErrUnavailable = errors.New("storage unavailable")

// Criteria is the intent-shaped query filter handlers build from an
// extracted filter set. Zero-value fields are not constrained.
type Criteria struct {
	Category        string
	Location        string
	Condition       string
	AcquisitionType string
	PriceMin        *float64
	PriceMax        *float64
	DateFrom        *time.Time
	DateTo          *time.Time
	Limit           int
	// Chronological orders by purchase date, newest first, for
	// purchase-history style queries.
	Chronological bool
}

// Store is the storage collaborator contract the core depends on.
type Store interface {
	// QueryItems returns read copies of matching items.
	QueryItems(ctx context.Context, c Criteria) ([]model.Item, error)

	// CountItems returns the number of matching items.
	CountItems(ctx context.Context, c Criteria) (int, error)

	// SumPrices returns the total price over matching items. An empty
	// match set sums to zero, not an error.
	SumPrices(ctx context.Context, c Criteria) (float64, error)

	// QueryRepairs returns repairs joined with item names, optionally
	// restricted to one status.
	QueryRepairs(ctx context.Context, status string) ([]model.Repair, error)

	// InsertAcquisition persists a completed acquisition record and
	// returns the new item id.
	InsertAcquisition(ctx context.Context, rec *model.AcquisitionRecord) (string, error)

	// SaveSession, LoadSession and DeleteSession round-trip serialized
	// conversation/context blobs keyed by session id and kind.
	SaveSession(ctx context.Context, sessionID, kind string, blob []byte) error
	LoadSession(ctx context.Context, sessionID, kind string) ([]byte, error)
	DeleteSession(ctx context.Context, sessionID, kind string) error

	// Close closes the store.
	Close() error
}

// Session blob kinds.
const (
	SessionKindConversation = "conversation"
	SessionKindContext      = "context"
)

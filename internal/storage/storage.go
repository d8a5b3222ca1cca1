package storage

import (
	"context"

	"lendingScope/internal/model"
)

// Batch is the set of writes one event group reconciles atomically.
type Batch struct {
	Obligations    []model.Obligation
	Records        []model.Record
	BorrowDynamics []model.BorrowDynamic
	SupplyBalances []model.SupplyBalance
	Cursors        []model.EventCursor
}

// IsEmpty reports whether the batch carries no writes.
func (b Batch) IsEmpty() bool {
	return len(b.Obligations) == 0 &&
		len(b.Records) == 0 &&
		len(b.BorrowDynamics) == 0 &&
		len(b.SupplyBalances) == 0 &&
		len(b.Cursors) == 0
}

// Store is the persistent document store behind the indexer.
type Store interface {
	// LoadCursor returns the cursor for an event type; ok is false at stream origin.
	LoadCursor(ctx context.Context, eventType string) (model.EventCursor, bool, error)
	FindObligation(ctx context.Context, id string) (model.Obligation, bool, error)
	// Commit applies the whole batch in one transaction or nothing at all.
	Commit(ctx context.Context, batch Batch) error
}

// ErrorSink receives events whose payload could not be projected.
type ErrorSink interface {
	PutProjectionErrors(errs []model.ProjectionError) error
}

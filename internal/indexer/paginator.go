package indexer

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"lendingScope/internal/chain"
	"lendingScope/internal/model"
)

// EventSource is the paginated event query of the chain query service.
type EventSource interface {
	QueryEvents(ctx context.Context, eventType string, cursor *model.EventID, limit int) (chain.EventPage, error)
}

// PaginatorConfig holds paging and retry settings.
type PaginatorConfig struct {
	PageSize     int
	MaxRetries   int
	RetryBackoff time.Duration
}

// Paginator walks an event stream from a cursor to its current head.
type Paginator struct {
	cfg    PaginatorConfig
	source EventSource
	logger *zap.Logger
}

func NewPaginator(cfg PaginatorConfig, source EventSource, logger *zap.Logger) *Paginator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.PageSize <= 0 || cfg.PageSize > chain.MaxPageSize {
		cfg.PageSize = chain.MaxPageSize
	}
	return &Paginator{cfg: cfg, source: source, logger: logger}
}

// FetchSince returns every event of eventType after cursor in ascending
// order, with the id of the last one as the new cursor. A nil cursor starts
// at the stream origin. With no new events the cursor is returned unchanged.
// On error no events are returned and the caller must keep its cursor.
func (p *Paginator) FetchSince(ctx context.Context, eventType string, cursor *model.EventID) ([]model.RawEvent, *model.EventID, error) {
	if p.source == nil {
		return nil, cursor, fmt.Errorf("event source is nil")
	}

	var events []model.RawEvent
	pos := cursor
	for {
		page, err := p.queryWithRetry(ctx, eventType, pos)
		if err != nil {
			return nil, cursor, fmt.Errorf("query events %s: %w", eventType, err)
		}

		for _, ev := range page.Data {
			raw, err := buildRawEvent(ev)
			if err != nil {
				return nil, cursor, err
			}
			events = append(events, raw)
		}

		if !page.HasNextPage || len(page.Data) == 0 {
			break
		}
		next := page.NextCursor
		if next == nil {
			last := page.Data[len(page.Data)-1].ID
			next = &last
		}
		if pos != nil && *next == *pos {
			return nil, cursor, fmt.Errorf("query events %s: cursor did not advance past %s", eventType, pos)
		}
		pos = next
	}

	if len(events) == 0 {
		return nil, cursor, nil
	}
	last := events[len(events)-1].ID
	return events, &last, nil
}

func (p *Paginator) queryWithRetry(ctx context.Context, eventType string, cursor *model.EventID) (chain.EventPage, error) {
	var page chain.EventPage
	err := withRetry(ctx, p.cfg.MaxRetries, p.cfg.RetryBackoff, func(ctx context.Context) error {
		var err error
		page, err = p.source.QueryEvents(ctx, eventType, cursor, p.cfg.PageSize)
		if err != nil {
			p.logger.Warn("query events failed", zap.Error(err), zap.String("event_type", eventType))
		}
		return err
	})
	return page, err
}

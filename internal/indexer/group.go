package indexer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"lendingScope/internal/model"
	"lendingScope/internal/protocol"
	"lendingScope/internal/storage"
)

// KindResult is the projected output of one event kind within a cycle.
type KindResult struct {
	Projector protocol.Projector
	Fragments []model.Fragment
	// Cursor is the advanced position, or nil when the kind made no progress.
	Cursor *model.EventCursor
	// Truncated is set when events past the last fragment were left for a
	// later cycle.
	Truncated bool
}

// Hold drops the fragments from index i on and moves the cursor back to the
// last fragment kept, so the dropped events are fetched again next cycle.
func (k *KindResult) Hold(i int) {
	if i < 0 || i >= len(k.Fragments) {
		return
	}
	k.Fragments = k.Fragments[:i]
	k.Truncated = true
	if i == 0 {
		k.Cursor = nil
		return
	}
	k.Cursor = &model.EventCursor{EventType: k.Projector.EventType(), Next: k.Fragments[i-1].EventID}
}

// ReconcileFunc builds the writes of a group from the kinds fetched this cycle.
// It may Hold a kind back; cursors are added by the caller afterwards.
type ReconcileFunc func(ctx context.Context, kinds []*KindResult) (storage.Batch, error)

// Group is a set of event kinds reconciled in one transaction.
type Group struct {
	Name       string
	Projectors []protocol.Projector
	Reconcile  ReconcileFunc
}

// GroupStats summarizes one group run.
type GroupStats struct {
	Events      int
	Malformed   int
	FailedKinds []model.EventKind
	Records     int
	Obligations int
	Advanced    int
}

// Ingestor runs groups: fetch, project, reconcile and commit.
type Ingestor struct {
	store     storage.Store
	paginator *Paginator
	errors    storage.ErrorSink
	onState   func(State)
	// reported holds malformed events already surfaced by this process.
	reported map[model.EventID]struct{}
}

func NewIngestor(store storage.Store, paginator *Paginator, errSink storage.ErrorSink) *Ingestor {
	return &Ingestor{
		store:     store,
		paginator: paginator,
		errors:    errSink,
		reported:  make(map[model.EventID]struct{}),
	}
}

// RunGroup runs one group. Kinds are fetched in the group's projector order.
// A fetch failure of one kind only drops that kind from the batch; a
// reconcile or commit failure aborts the whole group and leaves every cursor
// of the group where it was.
func (in *Ingestor) RunGroup(ctx context.Context, g *Group, logger *zap.Logger) (GroupStats, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("group", g.Name))
	var stats GroupStats

	in.setState(StateFetchingEvents)
	kinds := make([]*KindResult, 0, len(g.Projectors))
	for _, p := range g.Projectors {
		start := time.Now()
		res, fetched, malformed, err := in.fetchKind(ctx, p, logger)
		if err != nil {
			if ctx.Err() != nil {
				return stats, ctx.Err()
			}
			stats.FailedKinds = append(stats.FailedKinds, p.Kind())
			logger.Warn("fetch events failed, kind skipped this cycle",
				zap.String("event_kind", string(p.Kind())),
				zap.Duration("duration", time.Since(start)),
				zap.Error(err),
			)
			continue
		}
		stats.Events += fetched
		stats.Malformed += malformed
		logger.Debug("fetched events",
			zap.String("event_kind", string(p.Kind())),
			zap.Int("events", fetched),
			zap.Int("fragments", len(res.Fragments)),
			zap.Duration("duration", time.Since(start)),
		)
		kinds = append(kinds, res)
	}

	in.setState(StateAggregating)
	var batch storage.Batch
	if g.Reconcile != nil {
		var err error
		batch, err = g.Reconcile(ctx, kinds)
		if err != nil {
			return stats, fmt.Errorf("reconcile %s: %w", g.Name, err)
		}
	}
	for _, k := range kinds {
		if k.Cursor != nil {
			batch.Cursors = append(batch.Cursors, *k.Cursor)
			stats.Advanced += len(k.Fragments)
		}
	}
	stats.Records = len(batch.Records)
	stats.Obligations = len(batch.Obligations)

	if batch.IsEmpty() {
		return stats, nil
	}

	in.setState(StateCommitting)
	if err := in.store.Commit(ctx, batch); err != nil {
		return stats, fmt.Errorf("commit %s: %w", g.Name, err)
	}
	return stats, nil
}

// fetchKind loads the cursor of one kind, fetches its new events and projects
// them. Projection stops at the first malformed event; the returned cursor
// only covers the events before it.
func (in *Ingestor) fetchKind(ctx context.Context, p protocol.Projector, logger *zap.Logger) (*KindResult, int, int, error) {
	res := &KindResult{Projector: p}

	stored, ok, err := in.store.LoadCursor(ctx, p.EventType())
	if err != nil {
		return res, 0, 0, fmt.Errorf("load cursor: %w", err)
	}
	var cursor *model.EventID
	if ok {
		cursor = &stored.Next
	}

	events, next, err := in.paginator.FetchSince(ctx, p.EventType(), cursor)
	if err != nil {
		return res, 0, 0, err
	}
	if len(events) == 0 {
		return res, 0, 0, nil
	}

	var lastGood *model.EventID
	malformed := 0
	for i, ev := range events {
		frag, err := p.Project(ev)
		if err != nil {
			var projErr *model.ProjectionError
			if !errors.As(err, &projErr) {
				return res, 0, 0, err
			}
			malformed = len(events) - i
			in.reportMalformed(p, projErr, malformed, logger)
			break
		}
		res.Fragments = append(res.Fragments, frag)
		id := ev.ID
		lastGood = &id
	}

	if malformed == 0 {
		lastGood = next
	} else {
		res.Truncated = true
	}
	if lastGood != nil {
		res.Cursor = &model.EventCursor{EventType: p.EventType(), Next: *lastGood}
	}
	return res, len(events), malformed, nil
}

// reportMalformed surfaces a malformed event once per process. Later cycles
// that fetch the same held event only log at debug level.
func (in *Ingestor) reportMalformed(p protocol.Projector, projErr *model.ProjectionError, held int, logger *zap.Logger) {
	id := model.EventID{TxDigest: projErr.TxDigest, EventSeq: projErr.EventSeq}
	if _, ok := in.reported[id]; ok {
		logger.Debug("malformed event still held",
			zap.String("event_kind", string(p.Kind())),
			zap.String("event_id", id.String()),
			zap.Int("held_events", held),
		)
		return
	}
	in.reported[id] = struct{}{}

	logger.Error("malformed event payload, cursor held before it",
		zap.String("event_kind", string(p.Kind())),
		zap.String("event_type", p.EventType()),
		zap.String("event_id", id.String()),
		zap.String("field", projErr.Field),
		zap.Int("held_events", held),
	)
	if in.errors == nil {
		return
	}
	if err := in.errors.PutProjectionErrors([]model.ProjectionError{*projErr}); err != nil {
		delete(in.reported, id)
		logger.Warn("write projection error", zap.Error(err))
	}
}

func (in *Ingestor) setState(s State) {
	if in.onState != nil {
		in.onState(s)
	}
}

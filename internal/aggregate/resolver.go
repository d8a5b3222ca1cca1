package aggregate

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"lendingScope/internal/model"
)

// ErrUnknownParent marks a child event whose obligation is neither in the
// current cycle nor in the store.
var ErrUnknownParent = errors.New("unknown parent obligation")

// KindOrder is the order in which obligation event kinds are resolved.
var KindOrder = []model.EventKind{
	model.KindObligationCreated,
	model.KindCollateralDeposit,
	model.KindCollateralWithdraw,
	model.KindBorrow,
	model.KindRepay,
	model.KindLiquidation,
}

// ParentFinder looks up obligations that were not touched in the current cycle.
type ParentFinder interface {
	FindObligation(ctx context.Context, id string) (model.Obligation, bool, error)
}

// PositionReader reads authoritative collateral and debt views from chain.
type PositionReader interface {
	ObligationCollaterals(ctx context.Context, obligationID string) ([]model.Collateral, error)
	ObligationDebts(ctx context.Context, obligationID string) ([]model.Debt, error)
}

// KindBatch is the projected fragments of one event kind, in stream order.
type KindBatch struct {
	Kind      model.EventKind
	Effect    model.Effect
	Fragments []model.Fragment
	// HoldUnknown stops the batch at its first fragment with an unknown
	// parent instead of skipping it. Set while creations may still be missing.
	HoldUnknown bool
}

// Skipped is a fragment dropped during resolution.
type Skipped struct {
	Kind    model.EventKind
	EventID model.EventID
	Err     error
}

// Result is the output of one resolution.
type Result struct {
	// Obligations are the working copies to upsert, in first-touch order.
	Obligations []model.Obligation
	// Records are the child records to insert, in kind then stream order.
	Records []model.Record
	Skipped []Skipped
	// Held maps a kind to the index of its first fragment left unresolved.
	Held map[model.EventKind]int
	// CollateralRefreshes and DebtRefreshes count chain reads per view.
	CollateralRefreshes int
	DebtRefreshes       int
}

// Resolver turns fragments into obligation mutations and child records.
type Resolver struct {
	parents   ParentFinder
	positions PositionReader
	logger    *zap.Logger
}

func NewResolver(parents ParentFinder, positions PositionReader, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{parents: parents, positions: positions, logger: logger}
}

// Resolve applies batches to working copies of their obligations. Each
// obligation whose collateral or debt view was invalidated is refreshed
// wholesale from chain once, after every fragment has been applied.
func (r *Resolver) Resolve(ctx context.Context, batches []KindBatch) (Result, error) {
	if r.parents == nil {
		return Result{}, fmt.Errorf("parent finder is nil")
	}
	if r.positions == nil {
		return Result{}, fmt.Errorf("position reader is nil")
	}

	cache := NewCycleCache()
	defer cache.Discard()

	ordered := orderBatches(batches)
	dirty := make(map[string]model.Effect)
	var result Result

	for _, batch := range ordered {
		for i, frag := range batch.Fragments {
			parent, err := r.lookup(ctx, cache, frag)
			if errors.Is(err, ErrUnknownParent) && batch.HoldUnknown {
				r.logger.Info("hold fragments until their parent is indexed",
					zap.String("event_kind", string(frag.Kind)),
					zap.String("obligation", frag.ObligationID),
					zap.String("event_id", frag.EventID.String()),
					zap.Int("held", len(batch.Fragments)-i),
				)
				if result.Held == nil {
					result.Held = make(map[model.EventKind]int)
				}
				result.Held[batch.Kind] = i
				break
			}
			if errors.Is(err, ErrUnknownParent) {
				r.logger.Warn("skip fragment with unknown parent",
					zap.String("event_kind", string(frag.Kind)),
					zap.String("obligation", frag.ObligationID),
					zap.String("event_id", frag.EventID.String()),
				)
				result.Skipped = append(result.Skipped, Skipped{Kind: frag.Kind, EventID: frag.EventID, Err: err})
				continue
			}
			if err != nil {
				return Result{}, err
			}

			if frag.Created != nil {
				parent.Key = frag.Created.Key
				parent.Sender = frag.Created.Sender
				parent.CreatedAtMs = frag.Created.CreatedAtMs
			}
			if frag.Record != nil {
				parent.AddRef(frag.Kind, frag.EventID)
				result.Records = append(result.Records, frag.Record)
			}
			dirty[parent.ID] |= batch.Effect
		}
	}

	for _, o := range cache.Snapshot() {
		effect := dirty[o.ID]
		parent, _ := cache.Get(o.ID)
		if effect.Has(model.EffectCollateral) {
			collaterals, err := r.positions.ObligationCollaterals(ctx, o.ID)
			if err != nil {
				return Result{}, fmt.Errorf("refresh collaterals: %w", err)
			}
			parent.Collaterals = collaterals
			result.CollateralRefreshes++
		}
		if effect.Has(model.EffectDebt) {
			debts, err := r.positions.ObligationDebts(ctx, o.ID)
			if err != nil {
				return Result{}, fmt.Errorf("refresh debts: %w", err)
			}
			parent.Debts = debts
			result.DebtRefreshes++
		}
	}

	result.Obligations = cache.Snapshot()
	return result, nil
}

// lookup returns the working copy for the fragment's obligation, loading it
// from the store on first touch. Only creation fragments may introduce a new
// obligation.
func (r *Resolver) lookup(ctx context.Context, cache *CycleCache, frag model.Fragment) (*model.Obligation, error) {
	if frag.ObligationID == "" {
		return nil, fmt.Errorf("%s fragment %s has no obligation id", frag.Kind, frag.EventID)
	}
	if parent, ok := cache.Get(frag.ObligationID); ok {
		return parent, nil
	}

	stored, ok, err := r.parents.FindObligation(ctx, frag.ObligationID)
	if err != nil {
		return nil, fmt.Errorf("find obligation %s: %w", frag.ObligationID, err)
	}
	if ok {
		return cache.Put(stored), nil
	}
	if frag.Created != nil {
		return cache.Put(*frag.Created), nil
	}
	return nil, fmt.Errorf("%s %s: %w", frag.Kind, frag.ObligationID, ErrUnknownParent)
}

func orderBatches(batches []KindBatch) []KindBatch {
	rank := make(map[model.EventKind]int, len(KindOrder))
	for i, kind := range KindOrder {
		rank[kind] = i
	}
	ordered := append([]KindBatch(nil), batches...)
	sort.SliceStable(ordered, func(i, j int) bool {
		ri, ok := rank[ordered[i].Kind]
		if !ok {
			ri = len(KindOrder)
		}
		rj, ok := rank[ordered[j].Kind]
		if !ok {
			rj = len(KindOrder)
		}
		return ri < rj
	})
	return ordered
}

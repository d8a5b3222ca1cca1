package aggregate

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"lendingScope/internal/model"
)

type fakeParents struct {
	stored map[string]model.Obligation
	finds  int
	err    error
}

func (f *fakeParents) FindObligation(_ context.Context, id string) (model.Obligation, bool, error) {
	f.finds++
	if f.err != nil {
		return model.Obligation{}, false, f.err
	}
	o, ok := f.stored[id]
	return o, ok, nil
}

type fakePositions struct {
	collaterals map[string][]model.Collateral
	debts       map[string][]model.Debt
	collCalls   map[string]int
	debtCalls   map[string]int
	err         error
}

func newFakePositions() *fakePositions {
	return &fakePositions{
		collaterals: make(map[string][]model.Collateral),
		debts:       make(map[string][]model.Debt),
		collCalls:   make(map[string]int),
		debtCalls:   make(map[string]int),
	}
}

func (f *fakePositions) ObligationCollaterals(_ context.Context, id string) ([]model.Collateral, error) {
	f.collCalls[id]++
	if f.err != nil {
		return nil, f.err
	}
	return f.collaterals[id], nil
}

func (f *fakePositions) ObligationDebts(_ context.Context, id string) ([]model.Debt, error) {
	f.debtCalls[id]++
	if f.err != nil {
		return nil, f.err
	}
	return f.debts[id], nil
}

func eventID(n int) model.EventID {
	return model.EventID{TxDigest: fmt.Sprintf("D%d", n), EventSeq: "0"}
}

func createdFragment(n int, id string) model.Fragment {
	return model.Fragment{
		Kind:         model.KindObligationCreated,
		EventID:      eventID(n),
		ObligationID: id,
		Created:      &model.Obligation{ID: id, Key: id + "-key", Sender: "0xaa", CreatedAtMs: uint64(n)},
	}
}

func depositFragment(n int, id string) model.Fragment {
	rec := model.CollateralDeposit{EventID: eventID(n), ObligationID: id, CoinType: "a::sui::SUI", Amount: "10"}
	return model.Fragment{Kind: model.KindCollateralDeposit, EventID: rec.EventID, ObligationID: id, Record: rec}
}

func withdrawFragment(n int, id string) model.Fragment {
	rec := model.CollateralWithdraw{EventID: eventID(n), ObligationID: id, CoinType: "a::sui::SUI", Amount: "4"}
	return model.Fragment{Kind: model.KindCollateralWithdraw, EventID: rec.EventID, ObligationID: id, Record: rec}
}

func repayFragment(n int, id string) model.Fragment {
	rec := model.Repay{EventID: eventID(n), ObligationID: id, CoinType: "b::usdc::USDC", Amount: "1"}
	return model.Fragment{Kind: model.KindRepay, EventID: rec.EventID, ObligationID: id, Record: rec}
}

func TestResolveCreationThenDepositSameCycle(t *testing.T) {
	parents := &fakeParents{stored: map[string]model.Obligation{}}
	positions := newFakePositions()
	positions.collaterals["O1"] = []model.Collateral{{CoinType: "a::sui::SUI", Amount: "10"}}

	r := NewResolver(parents, positions, nil)
	// deposit batch is listed first but creation must still be resolved first
	result, err := r.Resolve(context.Background(), []KindBatch{
		{Kind: model.KindCollateralDeposit, Effect: model.EffectCollateral, Fragments: []model.Fragment{depositFragment(2, "O1")}},
		{Kind: model.KindObligationCreated, Effect: model.EffectCollateral, Fragments: []model.Fragment{createdFragment(1, "O1")}},
	})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(result.Skipped) != 0 {
		t.Fatalf("unexpected skipped fragments: %+v", result.Skipped)
	}
	if len(result.Obligations) != 1 {
		t.Fatalf("expected one obligation, got %d", len(result.Obligations))
	}
	o := result.Obligations[0]
	if o.Key != "O1-key" || len(o.Deposits) != 1 || o.Deposits[0] != eventID(2) {
		t.Fatalf("obligation mismatch: %+v", o)
	}
	if len(o.Collaterals) != 1 || o.Collaterals[0].Amount != "10" {
		t.Fatalf("collaterals not refreshed: %+v", o.Collaterals)
	}
	if len(result.Records) != 1 {
		t.Fatalf("expected one record, got %d", len(result.Records))
	}
	if positions.collCalls["O1"] != 1 {
		t.Fatalf("expected a single collateral refresh, got %d", positions.collCalls["O1"])
	}
	if positions.debtCalls["O1"] != 0 {
		t.Fatalf("debt view should not be refreshed")
	}
}

func TestResolveFallsBackToStore(t *testing.T) {
	parents := &fakeParents{stored: map[string]model.Obligation{
		"O1": {ID: "O1", Key: "K1", Repays: []model.EventID{eventID(1)}},
	}}
	positions := newFakePositions()
	positions.debts["O1"] = []model.Debt{{CoinType: "b::usdc::USDC", Amount: "99"}}

	r := NewResolver(parents, positions, nil)
	result, err := r.Resolve(context.Background(), []KindBatch{
		{Kind: model.KindRepay, Effect: model.EffectDebt, Fragments: []model.Fragment{repayFragment(5, "O1"), repayFragment(6, "O1")}},
	})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if parents.finds != 1 {
		t.Fatalf("store should be hit once per obligation, got %d", parents.finds)
	}
	o := result.Obligations[0]
	if len(o.Repays) != 3 || o.Key != "K1" {
		t.Fatalf("repays not appended to stored obligation: %+v", o)
	}
	if len(o.Debts) != 1 || o.Debts[0].Amount != "99" {
		t.Fatalf("debts not refreshed: %+v", o.Debts)
	}
	if got := result.Records[0].Parent(); got != "O1" {
		t.Fatalf("record parent mismatch: %s", got)
	}
	// stored state must not be mutated through the working copy
	if len(parents.stored["O1"].Repays) != 1 {
		t.Fatalf("stored obligation aliased by working copy")
	}
}

func TestResolveSkipsUnknownParent(t *testing.T) {
	parents := &fakeParents{stored: map[string]model.Obligation{"O2": {ID: "O2"}}}
	r := NewResolver(parents, newFakePositions(), nil)

	result, err := r.Resolve(context.Background(), []KindBatch{
		{Kind: model.KindRepay, Effect: model.EffectDebt, Fragments: []model.Fragment{repayFragment(1, "O1"), repayFragment(2, "O2")}},
	})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(result.Skipped) != 1 || !errors.Is(result.Skipped[0].Err, ErrUnknownParent) {
		t.Fatalf("expected one unknown-parent skip, got %+v", result.Skipped)
	}
	if len(result.Records) != 1 || result.Records[0].Parent() != "O2" {
		t.Fatalf("only the linked repay should be recorded: %+v", result.Records)
	}
	for _, rec := range result.Records {
		found := false
		for _, o := range result.Obligations {
			if o.ID == rec.Parent() {
				found = true
			}
		}
		if !found {
			t.Fatalf("record %s references obligation outside the result", rec.Key())
		}
	}
}

func TestResolveDepositWithdrawRefreshedOnce(t *testing.T) {
	parents := &fakeParents{stored: map[string]model.Obligation{"O1": {ID: "O1"}}}
	positions := newFakePositions()
	positions.collaterals["O1"] = []model.Collateral{{CoinType: "a::sui::SUI", Amount: "6"}}

	r := NewResolver(parents, positions, nil)
	result, err := r.Resolve(context.Background(), []KindBatch{
		{Kind: model.KindCollateralWithdraw, Effect: model.EffectCollateral, Fragments: []model.Fragment{withdrawFragment(2, "O1")}},
		{Kind: model.KindCollateralDeposit, Effect: model.EffectCollateral, Fragments: []model.Fragment{depositFragment(1, "O1")}},
	})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	o := result.Obligations[0]
	if len(o.Deposits) != 1 || len(o.Withdraws) != 1 {
		t.Fatalf("both refs expected: %+v", o)
	}
	if o.Collaterals[0].Amount != "6" || positions.collCalls["O1"] != 1 {
		t.Fatalf("collateral view should be refreshed once from chain: %+v calls=%d", o.Collaterals, positions.collCalls["O1"])
	}
	if _, ok := result.Records[0].(model.CollateralDeposit); !ok {
		t.Fatalf("deposit records must precede withdraw records, got %T", result.Records[0])
	}
}

func TestResolveReplayDoesNotDuplicateRefs(t *testing.T) {
	parents := &fakeParents{stored: map[string]model.Obligation{
		"O1": {ID: "O1", Deposits: []model.EventID{eventID(1)}},
	}}
	r := NewResolver(parents, newFakePositions(), nil)
	result, err := r.Resolve(context.Background(), []KindBatch{
		{Kind: model.KindCollateralDeposit, Effect: model.EffectCollateral, Fragments: []model.Fragment{depositFragment(1, "O1")}},
	})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(result.Obligations[0].Deposits) != 1 {
		t.Fatalf("replayed deposit duplicated: %+v", result.Obligations[0].Deposits)
	}
}

func TestResolveErrors(t *testing.T) {
	storeErr := errors.New("store down")
	r := NewResolver(&fakeParents{err: storeErr}, newFakePositions(), nil)
	_, err := r.Resolve(context.Background(), []KindBatch{
		{Kind: model.KindRepay, Fragments: []model.Fragment{repayFragment(1, "O1")}},
	})
	if !errors.Is(err, storeErr) {
		t.Fatalf("expected store error, got %v", err)
	}

	positions := newFakePositions()
	positions.err = errors.New("rpc down")
	r = NewResolver(&fakeParents{stored: map[string]model.Obligation{"O1": {ID: "O1"}}}, positions, nil)
	_, err = r.Resolve(context.Background(), []KindBatch{
		{Kind: model.KindRepay, Effect: model.EffectDebt, Fragments: []model.Fragment{repayFragment(1, "O1")}},
	})
	if err == nil {
		t.Fatalf("expected refresh error")
	}
}

func TestCycleCacheIsolation(t *testing.T) {
	cache := NewCycleCache()
	original := model.Obligation{ID: "O1", Deposits: []model.EventID{eventID(1)}}
	working := cache.Put(original)
	working.AddRef(model.KindCollateralDeposit, eventID(2))

	if len(original.Deposits) != 1 {
		t.Fatalf("put must copy the obligation")
	}
	snap := cache.Snapshot()
	snap[0].AddRef(model.KindCollateralDeposit, eventID(3))
	if got, _ := cache.Get("O1"); len(got.Deposits) != 2 {
		t.Fatalf("snapshot must not alias working copies: %+v", got.Deposits)
	}

	cache.Discard()
	if cache.Len() != 0 {
		t.Fatalf("discard should empty the cache")
	}
	if _, ok := cache.Get("O1"); ok {
		t.Fatalf("discarded cache still returns working copies")
	}
}

func TestResolveHoldsUnknownParent(t *testing.T) {
	parents := &fakeParents{stored: map[string]model.Obligation{"O1": {ID: "O1"}}}
	positions := newFakePositions()

	r := NewResolver(parents, positions, nil)
	result, err := r.Resolve(context.Background(), []KindBatch{
		{
			Kind:        model.KindCollateralDeposit,
			Effect:      model.EffectCollateral,
			HoldUnknown: true,
			Fragments: []model.Fragment{
				depositFragment(1, "O1"),
				depositFragment(2, "O2"),
				depositFragment(3, "O1"),
			},
		},
		{Kind: model.KindRepay, Effect: model.EffectDebt, Fragments: []model.Fragment{repayFragment(4, "O3")}},
	})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if i, ok := result.Held[model.KindCollateralDeposit]; !ok || i != 1 {
		t.Fatalf("held mismatch: %+v", result.Held)
	}
	if len(result.Records) != 1 || result.Records[0].Key() != eventID(1) {
		t.Fatalf("only the fragment before the hold should resolve: %+v", result.Records)
	}
	if len(result.Skipped) != 1 || result.Skipped[0].EventID != eventID(4) {
		t.Fatalf("batch without hold should skip: %+v", result.Skipped)
	}
	if o := result.Obligations[0]; len(o.Deposits) != 1 {
		t.Fatalf("deposit references mismatch: %+v", o.Deposits)
	}
}

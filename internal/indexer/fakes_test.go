package indexer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"lendingScope/internal/chain"
	"lendingScope/internal/model"
	"lendingScope/internal/storage"
)

const testPackage = "0x00000000000000000000000000000000000000000000000000000000000000aa"

func eventType(suffix string) string {
	return testPackage + "::" + suffix
}

func chainEvent(digest string, payload map[string]interface{}) chain.Event {
	data, _ := json.Marshal(payload)
	return chain.Event{
		ID:          model.EventID{TxDigest: digest, EventSeq: "0"},
		Sender:      "0xsender",
		Type:        "test",
		ParsedJSON:  data,
		TimestampMs: "1700000000000",
	}
}

// fakeSource serves fixed event streams with upstream-style paging.
type fakeSource struct {
	streams map[string][]chain.Event
	fail    map[string]error
	queries int
	// beforeQuery lets a test change a stream while a cycle is running.
	beforeQuery func(eventType string)
}

func (f *fakeSource) QueryEvents(_ context.Context, eventType string, cursor *model.EventID, limit int) (chain.EventPage, error) {
	f.queries++
	if f.beforeQuery != nil {
		f.beforeQuery(eventType)
	}
	if err := f.fail[eventType]; err != nil {
		return chain.EventPage{}, err
	}
	stream := f.streams[eventType]
	start := 0
	if cursor != nil {
		start = -1
		for i, ev := range stream {
			if ev.ID == *cursor {
				start = i + 1
				break
			}
		}
		if start < 0 {
			return chain.EventPage{}, fmt.Errorf("unknown cursor %s", cursor)
		}
	}
	end := start + limit
	if end > len(stream) {
		end = len(stream)
	}
	page := chain.EventPage{Data: append([]chain.Event(nil), stream[start:end]...), HasNextPage: end < len(stream)}
	if len(page.Data) > 0 {
		last := page.Data[len(page.Data)-1].ID
		page.NextCursor = &last
	} else {
		page.NextCursor = cursor
	}
	return page, nil
}

// fakeStore applies a batch only when the whole commit succeeds.
type fakeStore struct {
	cursors     map[string]model.EventCursor
	obligations map[string]model.Obligation
	records     map[model.EventID]model.Record
	dynamics    map[string]model.BorrowDynamic
	supplies    map[string]model.SupplyBalance
	commitErr   error
	commits     int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		cursors:     make(map[string]model.EventCursor),
		obligations: make(map[string]model.Obligation),
		records:     make(map[model.EventID]model.Record),
		dynamics:    make(map[string]model.BorrowDynamic),
		supplies:    make(map[string]model.SupplyBalance),
	}
}

var _ storage.Store = (*fakeStore)(nil)

func (s *fakeStore) LoadCursor(_ context.Context, eventType string) (model.EventCursor, bool, error) {
	c, ok := s.cursors[eventType]
	return c, ok, nil
}

func (s *fakeStore) FindObligation(_ context.Context, id string) (model.Obligation, bool, error) {
	o, ok := s.obligations[id]
	return o.Clone(), ok, nil
}

func (s *fakeStore) Commit(_ context.Context, b storage.Batch) error {
	if s.commitErr != nil {
		return s.commitErr
	}
	for _, rec := range b.Records {
		if parent := rec.Parent(); parent != "" {
			if _, ok := s.obligations[parent]; !ok && !batchHasObligation(b, parent) {
				return errors.New("foreign key violation")
			}
		}
	}
	for _, o := range b.Obligations {
		s.obligations[o.ID] = o.Clone()
	}
	for _, rec := range b.Records {
		if _, ok := s.records[rec.Key()]; !ok {
			s.records[rec.Key()] = rec
		}
	}
	for _, d := range b.BorrowDynamics {
		s.dynamics[d.CoinType] = d
	}
	for _, sb := range b.SupplyBalances {
		s.supplies[sb.CoinType] = sb
	}
	for _, c := range b.Cursors {
		s.cursors[c.EventType] = c
	}
	s.commits++
	return nil
}

func batchHasObligation(b storage.Batch, id string) bool {
	for _, o := range b.Obligations {
		if o.ID == id {
			return true
		}
	}
	return false
}

func (s *fakeStore) recordsOf(kind model.EventKind) int {
	n := 0
	for _, rec := range s.records {
		if rec.Kind() == kind {
			n++
		}
	}
	return n
}

type fakeSink struct {
	errs []model.ProjectionError
}

func (f *fakeSink) PutProjectionErrors(errs []model.ProjectionError) error {
	f.errs = append(f.errs, errs...)
	return nil
}

// fakeChainState answers position and market reads with fixed values.
type fakeChainState struct {
	collaterals map[string][]model.Collateral
	debts       map[string][]model.Debt
	dynamics    []model.BorrowDynamic
	sheets      map[string]model.BalanceSheet
	positionErr error
	reads       int
}

func (f *fakeChainState) ObligationCollaterals(_ context.Context, id string) ([]model.Collateral, error) {
	f.reads++
	if f.positionErr != nil {
		return nil, f.positionErr
	}
	return f.collaterals[id], nil
}

func (f *fakeChainState) ObligationDebts(_ context.Context, id string) ([]model.Debt, error) {
	f.reads++
	if f.positionErr != nil {
		return nil, f.positionErr
	}
	return f.debts[id], nil
}

func (f *fakeChainState) BorrowDynamics(context.Context) ([]model.BorrowDynamic, error) {
	f.reads++
	return f.dynamics, nil
}

func (f *fakeChainState) BalanceSheets(_ context.Context, coinTypes []string) ([]model.BalanceSheet, error) {
	f.reads++
	out := make([]model.BalanceSheet, 0, len(coinTypes))
	for _, coinType := range coinTypes {
		sheet, ok := f.sheets[coinType]
		if !ok {
			return nil, fmt.Errorf("no balance sheet for %s", coinType)
		}
		out = append(out, sheet)
	}
	return out, nil
}

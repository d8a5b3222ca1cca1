package indexer

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"lendingScope/internal/aggregate"
	"lendingScope/internal/model"
	"lendingScope/internal/protocol"
	"lendingScope/internal/storage"
)

const (
	GroupLiquidation    = "liquidation"
	GroupMarketDynamics = "market_dynamics"
	GroupFlashLoans     = "flash_loans"
	GroupLending        = "lending"
)

// MarketReader reads market-wide state from chain.
type MarketReader interface {
	BorrowDynamics(ctx context.Context) ([]model.BorrowDynamic, error)
	BalanceSheets(ctx context.Context, coinTypes []string) ([]model.BalanceSheet, error)
}

// NewLiquidationGroup covers obligation creation and every event that changes
// an obligation's collateral or debt. Child kinds are fetched before creations
// so any child seen this cycle has its creation fetched after it. When the
// creation stream did not reach its head, children of unknown obligations are
// held for the next cycle instead of skipped.
func NewLiquidationGroup(events *protocol.Events, resolver *aggregate.Resolver, logger *zap.Logger) (*Group, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	fetchOrder := append(append([]model.EventKind(nil), aggregate.KindOrder[1:]...), aggregate.KindOrder[0])
	projectors, err := events.Projectors(fetchOrder...)
	if err != nil {
		return nil, err
	}

	return &Group{
		Name:       GroupLiquidation,
		Projectors: projectors,
		Reconcile: func(ctx context.Context, kinds []*KindResult) (storage.Batch, error) {
			creationsComplete := false
			byKind := make(map[model.EventKind]*KindResult, len(kinds))
			for _, k := range kinds {
				byKind[k.Projector.Kind()] = k
				if k.Projector.Kind() == model.KindObligationCreated {
					creationsComplete = !k.Truncated
				}
			}

			batches := make([]aggregate.KindBatch, 0, len(kinds))
			for _, k := range kinds {
				if len(k.Fragments) == 0 {
					continue
				}
				batches = append(batches, aggregate.KindBatch{
					Kind:        k.Projector.Kind(),
					Effect:      k.Projector.Classify(),
					Fragments:   k.Fragments,
					HoldUnknown: !creationsComplete && k.Projector.Kind() != model.KindObligationCreated,
				})
			}
			if len(batches) == 0 {
				return storage.Batch{}, nil
			}

			result, err := resolver.Resolve(ctx, batches)
			if err != nil {
				return storage.Batch{}, err
			}
			for kind, i := range result.Held {
				byKind[kind].Hold(i)
			}
			if len(result.Skipped) > 0 {
				logger.Warn("fragments skipped during resolution", zap.Int("skipped", len(result.Skipped)))
			}
			logger.Debug("obligations resolved",
				zap.Int("obligations", len(result.Obligations)),
				zap.Int("records", len(result.Records)),
				zap.Int("held_kinds", len(result.Held)),
				zap.Int("collateral_refreshes", result.CollateralRefreshes),
				zap.Int("debt_refreshes", result.DebtRefreshes),
			)
			return storage.Batch{Obligations: result.Obligations, Records: result.Records}, nil
		},
	}, nil
}

// NewMarketDynamicsGroup replaces the borrow dynamics of every asset. It has
// no event stream and therefore no cursor.
func NewMarketDynamicsGroup(market MarketReader) *Group {
	return &Group{
		Name: GroupMarketDynamics,
		Reconcile: func(ctx context.Context, _ []*KindResult) (storage.Batch, error) {
			dynamics, err := market.BorrowDynamics(ctx)
			if err != nil {
				return storage.Batch{}, err
			}
			return storage.Batch{BorrowDynamics: dynamics}, nil
		},
	}
}

// NewFlashLoanGroup records flash loan borrow and repay legs.
func NewFlashLoanGroup(events *protocol.Events) (*Group, error) {
	projectors, err := events.Projectors(model.KindFlashLoanBorrow, model.KindFlashLoanRepay)
	if err != nil {
		return nil, err
	}
	return &Group{
		Name:       GroupFlashLoans,
		Projectors: projectors,
		Reconcile: func(_ context.Context, kinds []*KindResult) (storage.Batch, error) {
			return storage.Batch{Records: collectRecords(kinds)}, nil
		},
	}, nil
}

// NewLendingGroup records mints and redeems and recomputes the supply balance
// of every asset they touched.
func NewLendingGroup(events *protocol.Events, market MarketReader) (*Group, error) {
	projectors, err := events.Projectors(model.KindMint, model.KindRedeem)
	if err != nil {
		return nil, err
	}
	return &Group{
		Name:       GroupLending,
		Projectors: projectors,
		Reconcile: func(ctx context.Context, kinds []*KindResult) (storage.Batch, error) {
			records := collectRecords(kinds)
			batch := storage.Batch{Records: records}

			coinTypes := touchedAssets(records)
			if len(coinTypes) == 0 {
				return batch, nil
			}
			sheets, err := market.BalanceSheets(ctx, coinTypes)
			if err != nil {
				return storage.Batch{}, err
			}
			for _, sheet := range sheets {
				balance, err := protocol.DeriveSupplyBalance(sheet)
				if err != nil {
					return storage.Batch{}, fmt.Errorf("supply balance: %w", err)
				}
				batch.SupplyBalances = append(batch.SupplyBalances, balance)
			}
			return batch, nil
		},
	}, nil
}

func collectRecords(kinds []*KindResult) []model.Record {
	var records []model.Record
	for _, k := range kinds {
		for _, frag := range k.Fragments {
			if frag.Record != nil {
				records = append(records, frag.Record)
			}
		}
	}
	return records
}

func touchedAssets(records []model.Record) []string {
	seen := make(map[string]struct{})
	for _, rec := range records {
		switch r := rec.(type) {
		case model.Mint:
			seen[r.DepositAsset] = struct{}{}
		case model.Redeem:
			seen[r.WithdrawAsset] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for coinType := range seen {
		out = append(out, coinType)
	}
	sort.Strings(out)
	return out
}

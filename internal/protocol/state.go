package protocol

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/tidwall/gjson"

	"lendingScope/internal/chain"
	"lendingScope/internal/model"
)

const (
	obligationCollateralTablePath = "collaterals.fields.table.fields.id.id"
	obligationDebtTablePath       = "debts.fields.table.fields.id.id"
	marketBorrowDynamicsTablePath = "borrow_dynamics.fields.table.fields.id.id"
	marketBalanceSheetsTablePath  = "vault.fields.balance_sheets.fields.table.fields.id.id"

	entryCoinTypePath = "name.fields.name"
)

// ObjectReader is the subset of the chain client used to read object state.
type ObjectReader interface {
	GetObject(ctx context.Context, objectID string) (chain.ObjectData, error)
	MultiGetObjects(ctx context.Context, objectIDs []string) ([]chain.ObjectData, error)
	GetDynamicFields(ctx context.Context, parentID string, cursor *string, limit int) (chain.DynamicFieldPage, error)
}

// StateReader derives obligation and market views from current on-chain state.
type StateReader struct {
	objects  ObjectReader
	marketID string
}

func NewStateReader(objects ObjectReader, marketID string) *StateReader {
	return &StateReader{objects: objects, marketID: marketID}
}

// ObligationCollaterals returns the full collateral view of an obligation.
func (r *StateReader) ObligationCollaterals(ctx context.Context, obligationID string) ([]model.Collateral, error) {
	entries, err := r.tableEntries(ctx, obligationID, obligationCollateralTablePath)
	if err != nil {
		return nil, fmt.Errorf("obligation %s collaterals: %w", obligationID, err)
	}
	out := make([]model.Collateral, 0, len(entries))
	for _, entry := range entries {
		f := &fieldReader{raw: entry}
		c := model.Collateral{
			CoinType: f.str(entryCoinTypePath),
			Amount:   f.str("value.fields.amount"),
		}
		if err := f.err(); err != nil {
			return nil, fmt.Errorf("obligation %s collateral: %w", obligationID, err)
		}
		out = append(out, c)
	}
	return out, nil
}

// ObligationDebts returns the full debt view of an obligation.
func (r *StateReader) ObligationDebts(ctx context.Context, obligationID string) ([]model.Debt, error) {
	entries, err := r.tableEntries(ctx, obligationID, obligationDebtTablePath)
	if err != nil {
		return nil, fmt.Errorf("obligation %s debts: %w", obligationID, err)
	}
	out := make([]model.Debt, 0, len(entries))
	for _, entry := range entries {
		f := &fieldReader{raw: entry}
		d := model.Debt{
			CoinType:    f.str(entryCoinTypePath),
			Amount:      f.str("value.fields.amount"),
			BorrowIndex: f.str("value.fields.borrow_index"),
		}
		if err := f.err(); err != nil {
			return nil, fmt.Errorf("obligation %s debt: %w", obligationID, err)
		}
		out = append(out, d)
	}
	return out, nil
}

// BorrowDynamics returns the interest accrual state of every market asset.
func (r *StateReader) BorrowDynamics(ctx context.Context) ([]model.BorrowDynamic, error) {
	entries, err := r.tableEntries(ctx, r.marketID, marketBorrowDynamicsTablePath)
	if err != nil {
		return nil, fmt.Errorf("market borrow dynamics: %w", err)
	}
	out := make([]model.BorrowDynamic, 0, len(entries))
	for _, entry := range entries {
		f := &fieldReader{raw: entry}
		d := model.BorrowDynamic{
			CoinType:          f.str(entryCoinTypePath),
			BorrowIndex:       f.str("value.fields.borrow_index"),
			InterestRate:      f.str("value.fields.interest_rate.fields.value"),
			InterestRateScale: f.str("value.fields.interest_rate_scale"),
			LastUpdated:       f.uint("value.fields.last_updated"),
		}
		if err := f.err(); err != nil {
			return nil, fmt.Errorf("borrow dynamic: %w", err)
		}
		out = append(out, d)
	}
	return out, nil
}

// BalanceSheets returns the market balance sheets for the requested coin
// types. An empty filter returns every asset. A requested coin type the
// market does not list is an error.
func (r *StateReader) BalanceSheets(ctx context.Context, coinTypes []string) ([]model.BalanceSheet, error) {
	entries, err := r.tableEntries(ctx, r.marketID, marketBalanceSheetsTablePath)
	if err != nil {
		return nil, fmt.Errorf("market balance sheets: %w", err)
	}
	wanted := make(map[string]struct{}, len(coinTypes))
	for _, coinType := range coinTypes {
		wanted[coinType] = struct{}{}
	}

	out := make([]model.BalanceSheet, 0, len(entries))
	for _, entry := range entries {
		f := &fieldReader{raw: entry}
		sheet := model.BalanceSheet{
			CoinType:         f.str(entryCoinTypePath),
			Cash:             f.str("value.fields.cash"),
			Debt:             f.str("value.fields.debt"),
			Revenue:          f.str("value.fields.revenue"),
			MarketCoinSupply: f.str("value.fields.market_coin_supply"),
		}
		if err := f.err(); err != nil {
			return nil, fmt.Errorf("balance sheet: %w", err)
		}
		if len(wanted) > 0 {
			if _, ok := wanted[sheet.CoinType]; !ok {
				continue
			}
			delete(wanted, sheet.CoinType)
		}
		out = append(out, sheet)
	}
	if len(wanted) > 0 {
		missing := make([]string, 0, len(wanted))
		for coinType := range wanted {
			missing = append(missing, coinType)
		}
		sort.Strings(missing)
		return nil, fmt.Errorf("market has no balance sheet for %s", strings.Join(missing, ", "))
	}
	return out, nil
}

// tableEntries resolves the table id at tablePath inside the object and
// returns the content fields of every entry in it. Entry objects are fetched
// one page at a time with a single batched call.
func (r *StateReader) tableEntries(ctx context.Context, objectID, tablePath string) ([][]byte, error) {
	obj, err := r.objects.GetObject(ctx, objectID)
	if err != nil {
		return nil, err
	}
	if obj.Content == nil {
		return nil, fmt.Errorf("object %s has no content", objectID)
	}
	tableID := gjson.GetBytes(obj.Content.Fields, tablePath)
	if !tableID.Exists() {
		return nil, fmt.Errorf("object %s: missing field %q", objectID, tablePath)
	}

	var entries [][]byte
	var cursor *string
	for {
		page, err := r.objects.GetDynamicFields(ctx, tableID.String(), cursor, chain.MaxPageSize)
		if err != nil {
			return nil, err
		}
		ids := make([]string, 0, len(page.Data))
		for _, field := range page.Data {
			ids = append(ids, field.ObjectID)
		}
		objects, err := r.objects.MultiGetObjects(ctx, ids)
		if err != nil {
			return nil, err
		}
		for _, entry := range objects {
			if entry.Content == nil {
				return nil, fmt.Errorf("table entry %s has no content", entry.ObjectID)
			}
			entries = append(entries, entry.Content.Fields)
		}
		if !page.HasNextPage || page.NextCursor == nil {
			break
		}
		cursor = page.NextCursor
	}
	return entries, nil
}

type fieldReader struct {
	raw     []byte
	missing string
}

func (f *fieldReader) str(path string) string {
	res := gjson.GetBytes(f.raw, path)
	if !res.Exists() {
		if f.missing == "" {
			f.missing = path
		}
		return ""
	}
	return res.String()
}

func (f *fieldReader) uint(path string) uint64 {
	res := gjson.GetBytes(f.raw, path)
	if !res.Exists() {
		if f.missing == "" {
			f.missing = path
		}
		return 0
	}
	return res.Uint()
}

func (f *fieldReader) err() error {
	if f.missing == "" {
		return nil
	}
	return fmt.Errorf("missing field %q", f.missing)
}

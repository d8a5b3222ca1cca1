package postgres

import (
	"fmt"
	"strings"

	"lendingScope/internal/model"
)

type recordRow struct {
	table   string
	columns []string
	args    []interface{}
}

func rowForRecord(rec model.Record) (recordRow, error) {
	id := rec.Key()
	switch r := rec.(type) {
	case model.CollateralDeposit:
		return recordRow{
			table:   "collateral_deposits",
			columns: []string{"tx_digest", "event_seq", "obligation_id", "sender", "provider", "coin_type", "amount", "timestamp_ms"},
			args:    []interface{}{id.TxDigest, id.EventSeq, r.ObligationID, r.Sender, r.Provider, r.CoinType, r.Amount, int64(r.TimestampMs)},
		}, nil
	case model.CollateralWithdraw:
		return recordRow{
			table:   "collateral_withdraws",
			columns: []string{"tx_digest", "event_seq", "obligation_id", "sender", "taker", "coin_type", "amount", "timestamp_ms"},
			args:    []interface{}{id.TxDigest, id.EventSeq, r.ObligationID, r.Sender, r.Taker, r.CoinType, r.Amount, int64(r.TimestampMs)},
		}, nil
	case model.Borrow:
		return recordRow{
			table:   "borrows",
			columns: []string{"tx_digest", "event_seq", "obligation_id", "sender", "borrower", "coin_type", "amount", "fee", "timestamp_ms"},
			args:    []interface{}{id.TxDigest, id.EventSeq, r.ObligationID, r.Sender, r.Borrower, r.CoinType, r.Amount, r.Fee, int64(r.TimestampMs)},
		}, nil
	case model.Repay:
		return recordRow{
			table:   "repays",
			columns: []string{"tx_digest", "event_seq", "obligation_id", "sender", "repayer", "coin_type", "amount", "timestamp_ms"},
			args:    []interface{}{id.TxDigest, id.EventSeq, r.ObligationID, r.Sender, r.Repayer, r.CoinType, r.Amount, int64(r.TimestampMs)},
		}, nil
	case model.Liquidation:
		return recordRow{
			table: "liquidations",
			columns: []string{
				"tx_digest", "event_seq", "obligation_id", "sender", "liquidator", "debt_type", "collateral_type",
				"repay_on_behalf", "repay_revenue", "liq_amount", "timestamp_ms",
			},
			args: []interface{}{
				id.TxDigest, id.EventSeq, r.ObligationID, r.Sender, r.Liquidator, r.DebtType, r.CollateralType,
				r.RepayOnBehalf, r.RepayRevenue, r.LiqAmount, int64(r.TimestampMs),
			},
		}, nil
	case model.FlashLoan:
		return recordRow{
			table:   "flash_loans",
			columns: []string{"tx_digest", "event_seq", "leg", "sender", "account", "coin_type", "amount", "fee", "timestamp_ms"},
			args:    []interface{}{id.TxDigest, id.EventSeq, string(r.Leg), r.Sender, r.Account, r.CoinType, r.Amount, r.Fee, int64(r.TimestampMs)},
		}, nil
	case model.Mint:
		return recordRow{
			table:   "mints",
			columns: []string{"tx_digest", "event_seq", "sender", "minter", "deposit_asset", "deposit_amount", "mint_asset", "mint_amount", "timestamp_ms"},
			args:    []interface{}{id.TxDigest, id.EventSeq, r.Sender, r.Minter, r.DepositAsset, r.DepositAmount, r.MintAsset, r.MintAmount, int64(r.TimestampMs)},
		}, nil
	case model.Redeem:
		return recordRow{
			table:   "redeems",
			columns: []string{"tx_digest", "event_seq", "sender", "redeemer", "withdraw_asset", "withdraw_amount", "burn_asset", "burn_amount", "timestamp_ms"},
			args:    []interface{}{id.TxDigest, id.EventSeq, r.Sender, r.Redeemer, r.WithdrawAsset, r.WithdrawAmount, r.BurnAsset, r.BurnAmount, int64(r.TimestampMs)},
		}, nil
	default:
		return recordRow{}, fmt.Errorf("unsupported record type %T", rec)
	}
}

// insertSQL builds an insert that skips rows already stored for the same event.
func (r recordRow) insertSQL() string {
	placeholders := make([]string, len(r.columns))
	for i := range r.columns {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	return fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (tx_digest, event_seq) DO NOTHING",
		r.table,
		strings.Join(r.columns, ", "),
		strings.Join(placeholders, ", "),
	)
}

package model

import "encoding/json"

// EventKind identifies a category of protocol event.
type EventKind string

const (
	KindObligationCreated  EventKind = "obligation_created"
	KindCollateralDeposit  EventKind = "collateral_deposit"
	KindCollateralWithdraw EventKind = "collateral_withdraw"
	KindBorrow             EventKind = "borrow"
	KindRepay              EventKind = "repay"
	KindLiquidation        EventKind = "liquidation"
	KindFlashLoanBorrow    EventKind = "flashloan_borrow"
	KindFlashLoanRepay     EventKind = "flashloan_repay"
	KindMint               EventKind = "mint"
	KindRedeem             EventKind = "redeem"
)

// EventID is the upstream pagination token of a single event.
type EventID struct {
	TxDigest string `json:"txDigest"`
	EventSeq string `json:"eventSeq"`
}

// IsZero reports whether the id is unset.
func (id EventID) IsZero() bool {
	return id.TxDigest == "" && id.EventSeq == ""
}

func (id EventID) String() string {
	return id.TxDigest + ":" + id.EventSeq
}

// RawEvent is an event as returned by the chain, before projection.
type RawEvent struct {
	ID          EventID         `json:"id"`
	Type        string          `json:"type"`
	Sender      string          `json:"sender"`
	TimestampMs uint64          `json:"timestamp_ms"`
	Payload     json.RawMessage `json:"payload"`
}

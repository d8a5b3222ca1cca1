package protocol

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"lendingScope/internal/model"
)

// Projector maps raw events of one kind into fragments.
type Projector interface {
	Kind() model.EventKind
	// EventType is the fully qualified Move event type queried upstream.
	EventType() string
	// Classify reports which obligation views this kind invalidates.
	Classify() model.Effect
	Project(ev model.RawEvent) (model.Fragment, error)
}

type eventDef struct {
	kind    model.EventKind
	suffix  string
	effect  model.Effect
	project func(p *payload, ev model.RawEvent) model.Fragment
}

var eventDefs = []eventDef{
	{
		kind:   model.KindObligationCreated,
		suffix: "open_obligation::ObligationCreatedEvent",
		effect: model.EffectCollateral,
		project: func(p *payload, ev model.RawEvent) model.Fragment {
			id := p.id("obligation")
			return model.Fragment{
				ObligationID: id,
				Created: &model.Obligation{
					ID:          id,
					Key:         p.str("obligation_key"),
					Sender:      p.str("sender"),
					CreatedAtMs: ev.TimestampMs,
				},
			}
		},
	},
	{
		kind:   model.KindCollateralDeposit,
		suffix: "deposit_collateral::CollateralDepositEvent",
		effect: model.EffectCollateral,
		project: func(p *payload, ev model.RawEvent) model.Fragment {
			rec := model.CollateralDeposit{
				EventID:      ev.ID,
				ObligationID: p.id("obligation"),
				Sender:       ev.Sender,
				Provider:     p.str("provider"),
				CoinType:     p.str("deposit_asset.name"),
				Amount:       p.str("deposit_amount"),
				TimestampMs:  ev.TimestampMs,
			}
			return model.Fragment{ObligationID: rec.ObligationID, Record: rec}
		},
	},
	{
		kind:   model.KindCollateralWithdraw,
		suffix: "withdraw_collateral::CollateralWithdrawEvent",
		effect: model.EffectCollateral,
		project: func(p *payload, ev model.RawEvent) model.Fragment {
			rec := model.CollateralWithdraw{
				EventID:      ev.ID,
				ObligationID: p.id("obligation"),
				Sender:       ev.Sender,
				Taker:        p.str("taker"),
				CoinType:     p.str("withdraw_asset.name"),
				Amount:       p.str("withdraw_amount"),
				TimestampMs:  ev.TimestampMs,
			}
			return model.Fragment{ObligationID: rec.ObligationID, Record: rec}
		},
	},
	{
		kind:   model.KindBorrow,
		suffix: "borrow::BorrowEventV2",
		effect: model.EffectDebt,
		project: func(p *payload, ev model.RawEvent) model.Fragment {
			rec := model.Borrow{
				EventID:      ev.ID,
				ObligationID: p.id("obligation"),
				Sender:       ev.Sender,
				Borrower:     p.str("borrower"),
				CoinType:     p.str("asset.name"),
				Amount:       p.str("amount"),
				Fee:          p.str("borrow_fee"),
				TimestampMs:  ev.TimestampMs,
			}
			return model.Fragment{ObligationID: rec.ObligationID, Record: rec}
		},
	},
	{
		kind:   model.KindRepay,
		suffix: "repay::RepayEvent",
		effect: model.EffectDebt,
		project: func(p *payload, ev model.RawEvent) model.Fragment {
			rec := model.Repay{
				EventID:      ev.ID,
				ObligationID: p.id("obligation"),
				Sender:       ev.Sender,
				Repayer:      p.str("repayer"),
				CoinType:     p.str("asset.name"),
				Amount:       p.str("amount"),
				TimestampMs:  ev.TimestampMs,
			}
			return model.Fragment{ObligationID: rec.ObligationID, Record: rec}
		},
	},
	{
		kind:   model.KindLiquidation,
		suffix: "liquidate::LiquidateEventV2",
		effect: model.EffectCollateral | model.EffectDebt,
		project: func(p *payload, ev model.RawEvent) model.Fragment {
			rec := model.Liquidation{
				EventID:        ev.ID,
				ObligationID:   p.id("obligation"),
				Sender:         ev.Sender,
				Liquidator:     p.str("liquidator"),
				DebtType:       p.str("debt_type.name"),
				CollateralType: p.str("collateral_type.name"),
				RepayOnBehalf:  p.str("repay_on_behalf"),
				RepayRevenue:   p.str("repay_revenue"),
				LiqAmount:      p.str("liq_amount"),
				TimestampMs:    ev.TimestampMs,
			}
			return model.Fragment{ObligationID: rec.ObligationID, Record: rec}
		},
	},
	{
		kind:   model.KindFlashLoanBorrow,
		suffix: "flash_loan::BorrowFlashLoanV2Event",
		project: func(p *payload, ev model.RawEvent) model.Fragment {
			return model.Fragment{Record: model.FlashLoan{
				EventID:     ev.ID,
				Leg:         model.KindFlashLoanBorrow,
				Sender:      ev.Sender,
				Account:     p.str("borrower"),
				CoinType:    p.str("asset.name"),
				Amount:      p.str("amount"),
				Fee:         p.str("fee"),
				TimestampMs: ev.TimestampMs,
			}}
		},
	},
	{
		kind:   model.KindFlashLoanRepay,
		suffix: "flash_loan::RepayFlashLoanV2Event",
		project: func(p *payload, ev model.RawEvent) model.Fragment {
			return model.Fragment{Record: model.FlashLoan{
				EventID:     ev.ID,
				Leg:         model.KindFlashLoanRepay,
				Sender:      ev.Sender,
				Account:     p.str("repayer"),
				CoinType:    p.str("asset.name"),
				Amount:      p.str("amount"),
				Fee:         p.str("fee"),
				TimestampMs: ev.TimestampMs,
			}}
		},
	},
	{
		kind:   model.KindMint,
		suffix: "mint::MintEvent",
		project: func(p *payload, ev model.RawEvent) model.Fragment {
			return model.Fragment{Record: model.Mint{
				EventID:       ev.ID,
				Sender:        ev.Sender,
				Minter:        p.str("minter"),
				DepositAsset:  p.str("deposit_asset.name"),
				DepositAmount: p.str("deposit_amount"),
				MintAsset:     p.str("mint_asset.name"),
				MintAmount:    p.str("mint_amount"),
				TimestampMs:   ev.TimestampMs,
			}}
		},
	},
	{
		kind:   model.KindRedeem,
		suffix: "redeem::RedeemEvent",
		project: func(p *payload, ev model.RawEvent) model.Fragment {
			return model.Fragment{Record: model.Redeem{
				EventID:        ev.ID,
				Sender:         ev.Sender,
				Redeemer:       p.str("redeemer"),
				WithdrawAsset:  p.str("withdraw_asset.name"),
				WithdrawAmount: p.str("withdraw_amount"),
				BurnAsset:      p.str("burn_asset.name"),
				BurnAmount:     p.str("burn_amount"),
				TimestampMs:    ev.TimestampMs,
			}}
		},
	},
}

// payload reads fields from a parsed Move event and remembers the first one missing.
type payload struct {
	raw     []byte
	missing string
}

func (p *payload) str(path string) string {
	res := gjson.GetBytes(p.raw, path)
	if !res.Exists() || res.Type == gjson.Null {
		if p.missing == "" {
			p.missing = path
		}
		return ""
	}
	return res.String()
}

// id reads an object id field; an empty value counts as missing.
func (p *payload) id(path string) string {
	v := p.str(path)
	if v == "" && p.missing == "" {
		p.missing = path
	}
	return v
}

type projector struct {
	def       eventDef
	eventType string
}

func (p projector) Kind() model.EventKind  { return p.def.kind }
func (p projector) EventType() string      { return p.eventType }
func (p projector) Classify() model.Effect { return p.def.effect }

func (p projector) Project(ev model.RawEvent) (model.Fragment, error) {
	if !gjson.ValidBytes(ev.Payload) {
		return model.Fragment{}, p.projectionError(ev, "$")
	}
	pl := &payload{raw: ev.Payload}
	frag := p.def.project(pl, ev)
	if pl.missing != "" {
		return model.Fragment{}, p.projectionError(ev, pl.missing)
	}
	frag.Kind = p.def.kind
	frag.EventID = ev.ID
	return frag, nil
}

func (p projector) projectionError(ev model.RawEvent, field string) *model.ProjectionError {
	return &model.ProjectionError{
		Kind:      p.def.kind,
		EventType: p.eventType,
		TxDigest:  ev.ID.TxDigest,
		EventSeq:  ev.ID.EventSeq,
		Field:     field,
		Payload:   string(ev.Payload),
	}
}

// Events resolves every known event kind against a protocol package id.
type Events struct {
	byKind map[model.EventKind]Projector
}

// NewEvents builds the projector set for the package that emits the events.
func NewEvents(packageID string) (*Events, error) {
	packageID = strings.TrimSpace(packageID)
	if packageID == "" {
		return nil, fmt.Errorf("protocol package id is required")
	}
	byKind := make(map[model.EventKind]Projector, len(eventDefs))
	for _, def := range eventDefs {
		byKind[def.kind] = projector{def: def, eventType: packageID + "::" + def.suffix}
	}
	return &Events{byKind: byKind}, nil
}

// Projector returns the projector for kind.
func (e *Events) Projector(kind model.EventKind) (Projector, error) {
	p, ok := e.byKind[kind]
	if !ok {
		return nil, fmt.Errorf("unknown event kind: %s", kind)
	}
	return p, nil
}

// Projectors returns projectors for kinds in the given order.
func (e *Events) Projectors(kinds ...model.EventKind) ([]Projector, error) {
	out := make([]Projector, 0, len(kinds))
	for _, kind := range kinds {
		p, err := e.Projector(kind)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

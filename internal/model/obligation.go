package model

// Collateral is one collateral balance held by an obligation.
type Collateral struct {
	CoinType string `json:"coin_type"`
	Amount   string `json:"amount"`
}

// Debt is one outstanding debt of an obligation.
type Debt struct {
	CoinType    string `json:"coin_type"`
	Amount      string `json:"amount"`
	BorrowIndex string `json:"borrow_index"`
}

// Obligation is a user's collateral and debt position.
type Obligation struct {
	ID          string       `json:"obligation_id"`
	Key         string       `json:"obligation_key"`
	Sender      string       `json:"sender"`
	CreatedAtMs uint64       `json:"created_at_ms"`
	Deposits    []EventID    `json:"deposits"`
	Withdraws   []EventID    `json:"withdraws"`
	Borrows     []EventID    `json:"borrows"`
	Repays      []EventID    `json:"repays"`
	Liquidates  []EventID    `json:"liquidates"`
	Collaterals []Collateral `json:"collaterals"`
	Debts       []Debt       `json:"debts"`
}

// AddRef appends a child event reference under the list that matches kind.
// References already present are ignored so replays do not duplicate them.
func (o *Obligation) AddRef(kind EventKind, id EventID) {
	var refs *[]EventID
	switch kind {
	case KindCollateralDeposit:
		refs = &o.Deposits
	case KindCollateralWithdraw:
		refs = &o.Withdraws
	case KindBorrow:
		refs = &o.Borrows
	case KindRepay:
		refs = &o.Repays
	case KindLiquidation:
		refs = &o.Liquidates
	default:
		return
	}
	for _, existing := range *refs {
		if existing == id {
			return
		}
	}
	*refs = append(*refs, id)
}

// Clone returns a deep copy so working copies never alias stored state.
func (o Obligation) Clone() Obligation {
	out := o
	out.Deposits = append([]EventID(nil), o.Deposits...)
	out.Withdraws = append([]EventID(nil), o.Withdraws...)
	out.Borrows = append([]EventID(nil), o.Borrows...)
	out.Repays = append([]EventID(nil), o.Repays...)
	out.Liquidates = append([]EventID(nil), o.Liquidates...)
	out.Collaterals = append([]Collateral(nil), o.Collaterals...)
	out.Debts = append([]Debt(nil), o.Debts...)
	return out
}

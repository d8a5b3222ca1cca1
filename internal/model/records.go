package model

// Record is an immutable child record derived from a single event.
type Record interface {
	Kind() EventKind
	Key() EventID
	// Parent returns the referenced obligation id, or "" for parent-less records.
	Parent() string
}

// CollateralDeposit is a collateral deposit into an obligation.
type CollateralDeposit struct {
	EventID      EventID `json:"event_id"`
	ObligationID string  `json:"obligation_id"`
	Sender       string  `json:"sender"`
	Provider     string  `json:"provider"`
	CoinType     string  `json:"coin_type"`
	Amount       string  `json:"amount"`
	TimestampMs  uint64  `json:"timestamp_ms"`
}

func (r CollateralDeposit) Kind() EventKind { return KindCollateralDeposit }
func (r CollateralDeposit) Key() EventID    { return r.EventID }
func (r CollateralDeposit) Parent() string  { return r.ObligationID }

// CollateralWithdraw is a collateral withdrawal from an obligation.
type CollateralWithdraw struct {
	EventID      EventID `json:"event_id"`
	ObligationID string  `json:"obligation_id"`
	Sender       string  `json:"sender"`
	Taker        string  `json:"taker"`
	CoinType     string  `json:"coin_type"`
	Amount       string  `json:"amount"`
	TimestampMs  uint64  `json:"timestamp_ms"`
}

func (r CollateralWithdraw) Kind() EventKind { return KindCollateralWithdraw }
func (r CollateralWithdraw) Key() EventID    { return r.EventID }
func (r CollateralWithdraw) Parent() string  { return r.ObligationID }

// Borrow is a borrow against an obligation.
type Borrow struct {
	EventID      EventID `json:"event_id"`
	ObligationID string  `json:"obligation_id"`
	Sender       string  `json:"sender"`
	Borrower     string  `json:"borrower"`
	CoinType     string  `json:"coin_type"`
	Amount       string  `json:"amount"`
	Fee          string  `json:"fee"`
	TimestampMs  uint64  `json:"timestamp_ms"`
}

func (r Borrow) Kind() EventKind { return KindBorrow }
func (r Borrow) Key() EventID    { return r.EventID }
func (r Borrow) Parent() string  { return r.ObligationID }

// Repay is a debt repayment for an obligation.
type Repay struct {
	EventID      EventID `json:"event_id"`
	ObligationID string  `json:"obligation_id"`
	Sender       string  `json:"sender"`
	Repayer      string  `json:"repayer"`
	CoinType     string  `json:"coin_type"`
	Amount       string  `json:"amount"`
	TimestampMs  uint64  `json:"timestamp_ms"`
}

func (r Repay) Kind() EventKind { return KindRepay }
func (r Repay) Key() EventID    { return r.EventID }
func (r Repay) Parent() string  { return r.ObligationID }

// Liquidation is a liquidation of an obligation.
type Liquidation struct {
	EventID        EventID `json:"event_id"`
	ObligationID   string  `json:"obligation_id"`
	Sender         string  `json:"sender"`
	Liquidator     string  `json:"liquidator"`
	DebtType       string  `json:"debt_type"`
	CollateralType string  `json:"collateral_type"`
	RepayOnBehalf  string  `json:"repay_on_behalf"`
	RepayRevenue   string  `json:"repay_revenue"`
	LiqAmount      string  `json:"liq_amount"`
	TimestampMs    uint64  `json:"timestamp_ms"`
}

func (r Liquidation) Kind() EventKind { return KindLiquidation }
func (r Liquidation) Key() EventID    { return r.EventID }
func (r Liquidation) Parent() string  { return r.ObligationID }

// FlashLoan is a flash loan borrow or repay leg.
type FlashLoan struct {
	EventID     EventID   `json:"event_id"`
	Leg         EventKind `json:"leg"`
	Sender      string    `json:"sender"`
	Account     string    `json:"account"`
	CoinType    string    `json:"coin_type"`
	Amount      string    `json:"amount"`
	Fee         string    `json:"fee"`
	TimestampMs uint64    `json:"timestamp_ms"`
}

func (r FlashLoan) Kind() EventKind { return r.Leg }
func (r FlashLoan) Key() EventID    { return r.EventID }
func (r FlashLoan) Parent() string  { return "" }

// Mint is a supply deposit that mints market coins.
type Mint struct {
	EventID       EventID `json:"event_id"`
	Sender        string  `json:"sender"`
	Minter        string  `json:"minter"`
	DepositAsset  string  `json:"deposit_asset"`
	DepositAmount string  `json:"deposit_amount"`
	MintAsset     string  `json:"mint_asset"`
	MintAmount    string  `json:"mint_amount"`
	TimestampMs   uint64  `json:"timestamp_ms"`
}

func (r Mint) Kind() EventKind { return KindMint }
func (r Mint) Key() EventID    { return r.EventID }
func (r Mint) Parent() string  { return "" }

// Redeem burns market coins for the underlying asset.
type Redeem struct {
	EventID        EventID `json:"event_id"`
	Sender         string  `json:"sender"`
	Redeemer       string  `json:"redeemer"`
	WithdrawAsset  string  `json:"withdraw_asset"`
	WithdrawAmount string  `json:"withdraw_amount"`
	BurnAsset      string  `json:"burn_asset"`
	BurnAmount     string  `json:"burn_amount"`
	TimestampMs    uint64  `json:"timestamp_ms"`
}

func (r Redeem) Kind() EventKind { return KindRedeem }
func (r Redeem) Key() EventID    { return r.EventID }
func (r Redeem) Parent() string  { return "" }

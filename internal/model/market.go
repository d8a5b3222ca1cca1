package model

// BorrowDynamic is the market-wide interest accrual state of one asset.
type BorrowDynamic struct {
	CoinType          string `json:"coin_type"`
	BorrowIndex       string `json:"borrow_index"`
	InterestRate      string `json:"interest_rate"`
	InterestRateScale string `json:"interest_rate_scale"`
	LastUpdated       uint64 `json:"last_updated"`
}

// BalanceSheet is the raw market balance sheet of one asset.
type BalanceSheet struct {
	CoinType         string `json:"coin_type"`
	Cash             string `json:"cash"`
	Debt             string `json:"debt"`
	Revenue          string `json:"revenue"`
	MarketCoinSupply string `json:"market_coin_supply"`
}

// SupplyBalance is the derived lending supply of one asset.
type SupplyBalance struct {
	CoinType         string `json:"coin_type"`
	Supply           string `json:"supply"`
	MarketCoinSupply string `json:"market_coin_supply"`
	ExchangeRate     string `json:"exchange_rate"`
}

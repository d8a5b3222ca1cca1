package protocol

import (
	"fmt"

	"github.com/shopspring/decimal"

	"lendingScope/internal/model"
)

const exchangeRatePlaces = 18

// DeriveSupplyBalance computes the lender-owned supply of an asset from its
// balance sheet: cash plus outstanding debt minus protocol revenue.
func DeriveSupplyBalance(sheet model.BalanceSheet) (model.SupplyBalance, error) {
	cash, err := decimal.NewFromString(sheet.Cash)
	if err != nil {
		return model.SupplyBalance{}, fmt.Errorf("%s cash: %w", sheet.CoinType, err)
	}
	debt, err := decimal.NewFromString(sheet.Debt)
	if err != nil {
		return model.SupplyBalance{}, fmt.Errorf("%s debt: %w", sheet.CoinType, err)
	}
	revenue, err := decimal.NewFromString(sheet.Revenue)
	if err != nil {
		return model.SupplyBalance{}, fmt.Errorf("%s revenue: %w", sheet.CoinType, err)
	}
	marketCoins, err := decimal.NewFromString(sheet.MarketCoinSupply)
	if err != nil {
		return model.SupplyBalance{}, fmt.Errorf("%s market coin supply: %w", sheet.CoinType, err)
	}

	supply := cash.Add(debt).Sub(revenue)
	rate := decimal.Zero
	if !marketCoins.IsZero() {
		rate = supply.DivRound(marketCoins, exchangeRatePlaces)
	}

	return model.SupplyBalance{
		CoinType:         sheet.CoinType,
		Supply:           supply.String(),
		MarketCoinSupply: marketCoins.String(),
		ExchangeRate:     rate.StringFixed(exchangeRatePlaces),
	}, nil
}

package valuationService

import (
	"testing"
	"time"

	"github.com/KotFed0t/networth_tracker_bot/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func baseInputs() ValuationInputs {
	return ValuationInputs{
		Prices:       map[string]model.CachedPrice{},
		FxRates:      map[string]model.CachedFxRate{},
		HpiChanges:   map[string]model.PropertyPriceChange{},
		DebtBalances: map[string]model.RepaymentState{},
		BaseCurrency: "GBP",
		AsOf:         time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
	}
}

func singlePositionPortfolio(p model.Position) model.Portfolio {
	return model.Portfolio{Accounts: []model.Account{{ID: "acc-1", Name: "Main", Positions: []model.Position{p}}}}
}

func TestValuate_CashIsUnitsTimesOne(t *testing.T) {
	portfolio := singlePositionPortfolio(model.Position{
		ID:       "pos-1",
		Units:    dec("500"),
		Currency: "GBP",
		Category: model.CategoryCash,
	})

	v := Valuate(portfolio, baseInputs())

	require.Len(t, v.Accounts, 1)
	require.Len(t, v.Accounts[0].Positions, 1)
	pv := v.Accounts[0].Positions[0]
	assert.True(t, pv.CurrentPrice.Equal(dec("1")))
	assert.True(t, pv.TotalNativeValue.Equal(dec("500")))
	assert.True(t, pv.TotalBaseValue.Equal(dec("500")))
	assert.True(t, v.TotalBaseValue.Equal(dec("500")))
}

func TestValuate_ActiveDebtIsNegative(t *testing.T) {
	portfolio := singlePositionPortfolio(model.Position{
		ID:       "pos-1",
		Units:    dec("1"),
		Currency: "USD",
		Category: model.CategoryCreditCard,
		Debt:     &model.DebtData{Balance: dec("1850")},
	})

	in := baseInputs()
	in.FxRates["USD"] = model.CachedFxRate{From: "USD", To: "GBP", Rate: dec("0.8")}

	v := Valuate(portfolio, in)

	pv := v.Accounts[0].Positions[0]
	assert.True(t, pv.CurrentPrice.Equal(dec("1850")))
	assert.True(t, pv.TotalNativeValue.Equal(dec("-1850")))
	assert.True(t, pv.TotalBaseValue.Equal(dec("-1480")), "got %s", pv.TotalBaseValue)
	assert.True(t, v.TotalBaseValue.Equal(dec("-1480")))
}

func TestValuate_ActiveDebtUsesSyncedBalance(t *testing.T) {
	portfolio := singlePositionPortfolio(model.Position{
		ID:       "pos-1",
		Currency: "GBP",
		Category: model.CategoryLoan,
		Debt:     &model.DebtData{Balance: dec("2000")},
	})

	in := baseInputs()
	in.DebtBalances["pos-1"] = model.RepaymentState{CurrentBalance: dec("1839.2")}

	v := Valuate(portfolio, in)

	pv := v.Accounts[0].Positions[0]
	assert.True(t, pv.TotalNativeValue.Equal(dec("-1839.2")), "got %s", pv.TotalNativeValue)
}

func TestValuate_ArchivedDebtIsZero(t *testing.T) {
	portfolio := singlePositionPortfolio(model.Position{
		ID:       "pos-1",
		Currency: "GBP",
		Category: model.CategoryLoan,
		Debt:     &model.DebtData{Balance: dec("9999"), Archived: true},
	})

	v := Valuate(portfolio, baseInputs())

	pv := v.Accounts[0].Positions[0]
	assert.True(t, pv.CurrentPrice.IsZero())
	assert.True(t, pv.TotalNativeValue.IsZero())
	assert.True(t, pv.TotalBaseValue.IsZero())
	assert.True(t, v.TotalBaseValue.IsZero())
}

func TestValuate_PropertyAppreciation(t *testing.T) {
	portfolio := singlePositionPortfolio(model.Position{
		ID:       "pos-1",
		Currency: "GBP",
		Category: model.CategoryOwnedOutright,
		Mortgage: &model.MortgageData{
			PurchasePrice: dec("85000"),
			Deposit:       dec("85000"),
			Postcode:      "sw1a 1aa",
			ValuationDate: "2020-01-01",
		},
	})

	in := baseInputs()
	// 85000 -> 92000 is +8.235294...%
	change := dec("92000").Sub(dec("85000")).Div(dec("85000")).Mul(dec("100"))
	in.HpiChanges["SW1A1AA:2020-01-01"] = model.PropertyPriceChange{ChangePercent: change}

	v := Valuate(portfolio, in)

	pv := v.Accounts[0].Positions[0]
	assert.True(t, pv.TotalNativeValue.Round(2).Equal(dec("92000")), "got %s", pv.TotalNativeValue)
	assert.True(t, pv.Change.Round(2).Equal(dec("7000")), "got %s", pv.Change)
	assert.True(t, pv.ChangePercent.Round(3).Equal(dec("8.235")), "got %s", pv.ChangePercent)
	require.NotNil(t, pv.IndexChangePercent)
	assert.True(t, pv.IndexChangePercent.Equal(change))
}

func TestValuate_PropertyZeroOriginalEquityFallsBackToIndexChange(t *testing.T) {
	portfolio := singlePositionPortfolio(model.Position{
		ID:       "pos-1",
		Currency: "GBP",
		Category: model.CategoryMortgage,
		Mortgage: &model.MortgageData{
			PurchasePrice: dec("100000"),
			Deposit:       decimal.Zero,
			TermMonths:    300,
			StartDate:     time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
			Postcode:      "M1 1AA",
			ValuationDate: "2026-01-01",
		},
	})

	in := baseInputs()
	in.HpiChanges["M11AA:2026-01-01"] = model.PropertyPriceChange{ChangePercent: dec("5")}

	v := Valuate(portfolio, in)

	pv := v.Accounts[0].Positions[0]
	assert.True(t, pv.ChangePercent.Equal(dec("5")), "got %s", pv.ChangePercent)
}

func TestValuate_TradedManualPriceWins(t *testing.T) {
	manual := dec("3.5")
	portfolio := singlePositionPortfolio(model.Position{
		ID:          "pos-1",
		Symbol:      "AAPL",
		Units:       dec("10"),
		Currency:    "USD",
		Category:    model.CategoryStock,
		ManualPrice: &manual,
	})

	in := baseInputs()
	in.Prices["AAPL"] = model.CachedPrice{Symbol: "AAPL", Price: dec("200")}

	v := Valuate(portfolio, in)

	pv := v.Accounts[0].Positions[0]
	assert.True(t, pv.CurrentPrice.Equal(manual))
	assert.True(t, pv.TotalNativeValue.Equal(dec("35")))
}

func TestValuate_TradedMissingPriceDefaultsToZero(t *testing.T) {
	portfolio := singlePositionPortfolio(model.Position{
		ID:       "pos-1",
		Symbol:   "VOO",
		Units:    dec("10"),
		Currency: "USD",
		Category: model.CategoryETF,
	})

	v := Valuate(portfolio, baseInputs())

	pv := v.Accounts[0].Positions[0]
	assert.True(t, pv.CurrentPrice.IsZero())
	assert.True(t, pv.TotalBaseValue.IsZero())
}

func TestValuate_SignedSumAcrossCategories(t *testing.T) {
	portfolio := model.Portfolio{Accounts: []model.Account{{
		ID:   "acc-1",
		Name: "Main",
		Positions: []model.Position{
			{ID: "p1", Units: dec("500"), Currency: "GBP", Category: model.CategoryCash},
			{ID: "p2", Symbol: "AAPL", Units: dec("2"), Currency: "GBP", Category: model.CategoryStock},
			{ID: "p3", Currency: "GBP", Category: model.CategoryLoan, Debt: &model.DebtData{Balance: dec("200")}},
		},
	}}}

	in := baseInputs()
	in.Prices["AAPL"] = model.CachedPrice{Symbol: "AAPL", Price: dec("150")}

	v := Valuate(portfolio, in)

	// 500 + 300 - 200
	assert.True(t, v.TotalBaseValue.Equal(dec("600")), "got %s", v.TotalBaseValue)
	assert.True(t, v.Accounts[0].TotalBaseValue.Equal(dec("600")))
}

func TestValuate_MissingFxRateDefaultsToOne(t *testing.T) {
	portfolio := singlePositionPortfolio(model.Position{
		ID:       "pos-1",
		Units:    dec("100"),
		Currency: "JPY",
		Category: model.CategoryCash,
	})

	v := Valuate(portfolio, baseInputs())

	pv := v.Accounts[0].Positions[0]
	assert.True(t, pv.FxRate.Equal(dec("1")))
	assert.True(t, pv.TotalBaseValue.Equal(dec("100")))
}

func TestValuate_FreshestAtTracksNewestFetch(t *testing.T) {
	portfolio := singlePositionPortfolio(model.Position{
		ID:       "pos-1",
		Symbol:   "AAPL",
		Units:    dec("1"),
		Currency: "GBP",
		Category: model.CategoryStock,
	})

	in := baseInputs()
	older := in.AsOf.Add(-48 * time.Hour)
	newer := in.AsOf.Add(-2 * time.Hour)
	in.Prices["AAPL"] = model.CachedPrice{Symbol: "AAPL", Price: dec("10"), FetchedAt: older}
	in.HpiChanges["X:2020-01-01"] = model.PropertyPriceChange{FetchedAt: newer}

	v := Valuate(portfolio, in)

	assert.Equal(t, newer, v.FreshestAt)
}

func TestValuate_NoFetchesFreshestAtIsCycleTime(t *testing.T) {
	in := baseInputs()
	v := Valuate(model.Portfolio{}, in)
	assert.Equal(t, in.AsOf, v.FreshestAt)
}

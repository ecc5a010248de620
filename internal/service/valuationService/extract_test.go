package valuationService

import (
	"testing"
	"time"

	"github.com/KotFed0t/networth_tracker_bot/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractFetchTargets_DeduplicatesAcrossAccounts(t *testing.T) {
	portfolio := model.Portfolio{Accounts: []model.Account{
		{ID: "acc-1", Positions: []model.Position{
			{ID: "p1", Symbol: "AAPL", Currency: "USD", Category: model.CategoryStock},
			{ID: "p2", Symbol: "VOO", Currency: "USD", Category: model.CategoryETF},
		}},
		{ID: "acc-2", Positions: []model.Position{
			{ID: "p3", Symbol: "AAPL", Currency: "USD", Category: model.CategoryStock},
			{ID: "p4", Currency: "GBP", Category: model.CategoryCash},
		}},
	}}

	targets := extractFetchTargets(portfolio)

	assert.Equal(t, []string{"AAPL", "VOO"}, targets.Symbols)
	assert.Equal(t, []string{"USD", "GBP"}, targets.Currencies)
}

func TestExtractFetchTargets_SkipsManualPriceAndEmptySymbol(t *testing.T) {
	manual := decimal.NewFromInt(5)
	portfolio := model.Portfolio{Accounts: []model.Account{{ID: "acc-1", Positions: []model.Position{
		{ID: "p1", Symbol: "AAPL", Currency: "USD", Category: model.CategoryStock, ManualPrice: &manual},
		{ID: "p2", Symbol: "", Currency: "USD", Category: model.CategoryCrypto},
	}}}}

	targets := extractFetchTargets(portfolio)

	assert.Empty(t, targets.Symbols)
}

func TestExtractFetchTargets_PropertySharesOneLookup(t *testing.T) {
	mortgage := func(postcode string) *model.MortgageData {
		return &model.MortgageData{Postcode: postcode, ValuationDate: "2020-01-01"}
	}
	portfolio := model.Portfolio{Accounts: []model.Account{{ID: "acc-1", Positions: []model.Position{
		{ID: "p1", Currency: "GBP", Category: model.CategoryMortgage, Mortgage: mortgage("sw1a 1aa")},
		{ID: "p2", Currency: "GBP", Category: model.CategoryOwnedOutright, Mortgage: mortgage("SW1A1AA")},
	}}}}

	targets := extractFetchTargets(portfolio)

	require.Len(t, targets.Properties, 1)
	assert.Contains(t, targets.Properties, "SW1A1AA:2020-01-01")
}

func TestExtractFetchTargets_ArchivedDebtNotSynced(t *testing.T) {
	portfolio := model.Portfolio{Accounts: []model.Account{{ID: "acc-1", Positions: []model.Position{
		{ID: "p1", Currency: "GBP", Category: model.CategoryLoan, Debt: &model.DebtData{Balance: decimal.NewFromInt(100), EnteredAt: time.Now()}},
		{ID: "p2", Currency: "GBP", Category: model.CategoryLoan, Debt: &model.DebtData{Balance: decimal.NewFromInt(200), Archived: true}},
	}}}}

	targets := extractFetchTargets(portfolio)

	require.Len(t, targets.DebtItems, 1)
	assert.Equal(t, "p1", targets.DebtItems[0].PositionID)
}

func TestExtractFetchTargets_UnknownCategorySkipped(t *testing.T) {
	portfolio := model.Portfolio{Accounts: []model.Account{{ID: "acc-1", Positions: []model.Position{
		{ID: "p1", Symbol: "XXX", Currency: "USD", Category: model.Category("WINE")},
	}}}}

	targets := extractFetchTargets(portfolio)

	assert.Empty(t, targets.Symbols)
	assert.Equal(t, []string{"USD"}, targets.Currencies)
}

package valuationService

import (
	"time"

	"github.com/KotFed0t/networth_tracker_bot/internal/model"
	"github.com/KotFed0t/networth_tracker_bot/internal/mortgageCalc"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// ValuationInputs is the market data gathered by one refresh cycle. Any
// missing entry degrades to a documented default (price 0, rate 1.0, index
// change 0%, stored debt balance), so aggregation is total over its inputs.
type ValuationInputs struct {
	Prices       map[string]model.CachedPrice
	FxRates      map[string]model.CachedFxRate
	HpiChanges   map[string]model.PropertyPriceChange
	DebtBalances map[string]model.RepaymentState
	BaseCurrency string
	AsOf         time.Time
	Errors       []model.PortfolioError
}

// Valuate computes the full value tree for a portfolio snapshot. It never
// fails: every upstream gap was already absorbed into inputs defaults or the
// errors list.
func Valuate(portfolio model.Portfolio, in ValuationInputs) model.PortfolioValuation {
	valuation := model.PortfolioValuation{
		Accounts:     make([]model.AccountValuation, 0, len(portfolio.Accounts)),
		BaseCurrency: in.BaseCurrency,
		GeneratedAt:  in.AsOf,
		Errors:       in.Errors,
	}

	for _, account := range portfolio.Accounts {
		accountValuation := model.AccountValuation{
			AccountID:   account.ID,
			AccountName: account.Name,
			Positions:   make([]model.PositionValuation, 0, len(account.Positions)),
		}

		for _, position := range account.Positions {
			pv := valuatePosition(position, in)
			accountValuation.TotalBaseValue = accountValuation.TotalBaseValue.Add(pv.TotalBaseValue)
			accountValuation.Positions = append(accountValuation.Positions, pv)
		}

		valuation.TotalBaseValue = valuation.TotalBaseValue.Add(accountValuation.TotalBaseValue)
		valuation.Accounts = append(valuation.Accounts, accountValuation)
	}

	valuation.FreshestAt = freshestFetchedAt(in)

	return valuation
}

func valuatePosition(position model.Position, in ValuationInputs) model.PositionValuation {
	pv := model.PositionValuation{
		Position: position,
		FxRate:   fxRateFor(position.Currency, in),
	}

	class, err := position.Category.Class()
	if err != nil {
		// unknown category: zero-valued, keeps the aggregate total computable
		pv.FxRate = decimal.NewFromInt(1)
		return pv
	}

	switch class {
	case model.ClassCash:
		pv.CurrentPrice = decimal.NewFromInt(1)
		pv.TotalNativeValue = position.Units

	case model.ClassDebt:
		if position.Debt == nil || position.Debt.Archived {
			// archived (or malformed) debt contributes exactly zero
			return pv
		}
		balance := position.Debt.Balance
		if state, ok := in.DebtBalances[position.ID]; ok {
			balance = state.CurrentBalance
		}
		pv.CurrentPrice = balance.Abs()
		pv.TotalNativeValue = balance.Abs().Neg()

	case model.ClassProperty:
		if position.Mortgage == nil {
			return pv
		}
		indexChange := decimal.Zero
		key := propertyLookupKey(position.Mortgage.Postcode, position.Mortgage.ValuationDate)
		if change, ok := in.HpiChanges[key]; ok {
			indexChange = change.ChangePercent
		}
		equity := mortgageCalc.CalculateCurrentEquity(*position.Mortgage, indexChange, in.AsOf)

		pv.CurrentPrice = equity.AdjustedEquity
		pv.TotalNativeValue = equity.AdjustedEquity
		pv.Change = equity.AdjustedEquity.Sub(equity.AdjustedOriginalEquity)
		if !equity.AdjustedOriginalEquity.IsZero() {
			pv.ChangePercent = pv.Change.Div(equity.AdjustedOriginalEquity).Mul(hundred)
		} else {
			pv.ChangePercent = indexChange
		}
		pv.IndexChangePercent = &indexChange

	case model.ClassTraded:
		switch {
		case position.ManualPrice != nil:
			pv.CurrentPrice = *position.ManualPrice
		default:
			if price, ok := in.Prices[position.Symbol]; ok {
				pv.CurrentPrice = price.Price
				pv.Change = price.Change
				pv.ChangePercent = price.ChangePercent
			}
		}
		pv.TotalNativeValue = position.Units.Mul(pv.CurrentPrice)
	}

	pv.TotalBaseValue = pv.TotalNativeValue.Mul(pv.FxRate)

	return pv
}

// fxRateFor is 1.0 exactly for the base currency itself, the fetched rate
// otherwise, and defaults to 1.0 when the rate is missing.
func fxRateFor(currency string, in ValuationInputs) decimal.Decimal {
	if currency == in.BaseCurrency {
		return decimal.NewFromInt(1)
	}
	if rate, ok := in.FxRates[currency]; ok {
		return rate.Rate
	}
	return decimal.NewFromInt(1)
}

// freshestFetchedAt reports the newest fetch timestamp among the market data
// gathered this cycle, or the cycle time when nothing was fetched.
func freshestFetchedAt(in ValuationInputs) time.Time {
	freshest := time.Time{}
	for _, price := range in.Prices {
		if price.FetchedAt.After(freshest) {
			freshest = price.FetchedAt
		}
	}
	for _, change := range in.HpiChanges {
		if change.FetchedAt.After(freshest) {
			freshest = change.FetchedAt
		}
	}
	if freshest.IsZero() {
		return in.AsOf
	}
	return freshest
}

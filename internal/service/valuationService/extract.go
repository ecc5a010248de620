package valuationService

import (
	"strings"

	"github.com/KotFed0t/networth_tracker_bot/internal/debtSync"
	"github.com/KotFed0t/networth_tracker_bot/internal/model"
	"github.com/KotFed0t/networth_tracker_bot/utils"
)

type propertyLookup struct {
	Postcode      string
	ValuationDate string
}

// fetchTargets is everything the refresh cycle needs to gather from upstream,
// deduplicated across the whole portfolio.
type fetchTargets struct {
	Symbols    []string
	Currencies []string
	Properties map[string]propertyLookup
	DebtItems  []debtSync.RepaymentItem
}

// propertyLookupKey normalizes a postcode (upper-cased, whitespace stripped)
// and joins it with the valuation date, so two positions on the same property
// share one index fetch.
func propertyLookupKey(postcode, valuationDate string) string {
	normalized := strings.ToUpper(strings.Join(strings.Fields(postcode), ""))
	return normalized + ":" + valuationDate
}

func extractFetchTargets(portfolio model.Portfolio) fetchTargets {
	targets := fetchTargets{Properties: make(map[string]propertyLookup)}

	symbols := make([]string, 0)
	currencies := make([]string, 0)

	for _, account := range portfolio.Accounts {
		for _, position := range account.Positions {
			currencies = append(currencies, position.Currency)

			class, err := position.Category.Class()
			if err != nil {
				continue // unknown categories are skipped here and zero-valued by the aggregator
			}

			switch class {
			case model.ClassTraded:
				if position.ManualPrice == nil && position.Symbol != "" {
					symbols = append(symbols, position.Symbol)
				}
			case model.ClassProperty:
				if position.Mortgage != nil {
					key := propertyLookupKey(position.Mortgage.Postcode, position.Mortgage.ValuationDate)
					targets.Properties[key] = propertyLookup{
						Postcode:      position.Mortgage.Postcode,
						ValuationDate: position.Mortgage.ValuationDate,
					}
				}
			case model.ClassDebt:
				if position.Debt != nil && !position.Debt.Archived {
					targets.DebtItems = append(targets.DebtItems, debtSync.RepaymentItem{PositionID: position.ID, Debt: *position.Debt})
				}
			case model.ClassCash:
			}
		}
	}

	targets.Symbols = utils.Dedup(symbols)
	targets.Currencies = utils.Dedup(currencies)

	return targets
}

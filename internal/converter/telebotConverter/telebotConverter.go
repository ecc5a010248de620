package telebotConverter

import (
	"fmt"
	"strings"

	"github.com/KotFed0t/networth_tracker_bot/internal/model"
)

// FormatValuation renders the valuation tree into a telegram message.
func FormatValuation(valuation model.PortfolioValuation) string {
	b := strings.Builder{}

	b.WriteString(fmt.Sprintf("💰 Net worth: %s %s\n", valuation.TotalBaseValue.StringFixed(2), valuation.BaseCurrency))
	b.WriteString(fmt.Sprintf("🕒 data as of %s\n", valuation.FreshestAt.Format("2006-01-02 15:04")))

	for _, account := range valuation.Accounts {
		b.WriteString(fmt.Sprintf("\n📁 %s: %s %s\n", account.AccountName, account.TotalBaseValue.StringFixed(2), valuation.BaseCurrency))
		for _, pv := range account.Positions {
			b.WriteString(fmt.Sprintf("  • %s: %s %s", pv.Position.DisplayName(), pv.TotalBaseValue.StringFixed(2), valuation.BaseCurrency))
			if !pv.ChangePercent.IsZero() {
				b.WriteString(fmt.Sprintf(" (%s%%)", pv.ChangePercent.StringFixed(2)))
			}
			b.WriteString("\n")
		}
	}

	b.WriteString(formatErrors(valuation.Errors))

	return b.String()
}

// formatErrors collapses pure connectivity problems into a single offline
// banner, otherwise lists each failure.
func formatErrors(errors []model.PortfolioError) string {
	if len(errors) == 0 {
		return ""
	}

	allOffline := true
	for _, e := range errors {
		if e.Category != model.ErrCategoryOffline {
			allOffline = false
			break
		}
	}

	if allOffline {
		return "\n⚠️ offline — some values may be stale\n"
	}

	b := strings.Builder{}
	b.WriteString("\n⚠️ some data could not be fetched:\n")
	for _, e := range errors {
		if e.Symbol != "" {
			b.WriteString(fmt.Sprintf("  %s: %s\n", e.Symbol, e.Message))
			continue
		}
		b.WriteString(fmt.Sprintf("  %s\n", e.Message))
	}

	return b.String()
}

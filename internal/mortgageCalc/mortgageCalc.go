package mortgageCalc

import (
	"time"

	"github.com/KotFed0t/networth_tracker_bot/internal/model"
	"github.com/shopspring/decimal"
)

var (
	hundred = decimal.NewFromInt(100)
	twelve  = decimal.NewFromInt(12)
)

// CalculateCurrentEquity is a pure function of the mortgage data, the
// house-price-index change since the valuation date and the asOf timestamp.
// The outstanding balance follows a standard annuity schedule; a zero-rate
// loan amortizes linearly.
func CalculateCurrentEquity(m model.MortgageData, indexChangePercent decimal.Decimal, asOf time.Time) model.EquityResult {
	currentPropertyValue := m.PurchasePrice.Mul(decimal.NewFromInt(1).Add(indexChangePercent.Div(hundred)))

	loan := m.PurchasePrice.Sub(m.Deposit)
	if loan.IsNegative() {
		loan = decimal.Zero
	}

	outstanding := outstandingBalance(loan, m.AnnualRatePercent, m.TermMonths, monthsElapsed(m.StartDate, asOf, m.TermMonths))

	principalRepaid := loan.Sub(outstanding)
	appreciation := currentPropertyValue.Sub(m.PurchasePrice)
	originalEquity := m.Deposit
	currentEquity := currentPropertyValue.Sub(outstanding)

	share := m.SharedOwnershipPercent
	if share.IsZero() {
		share = hundred
	}

	adjustedEquity := currentEquity.Mul(share).Div(hundred).Sub(m.ReservedEquity)
	adjustedOriginalEquity := originalEquity.Mul(share).Div(hundred).Sub(m.ReservedEquity)

	return model.EquityResult{
		CurrentPropertyValue:   currentPropertyValue,
		OriginalEquity:         originalEquity,
		CurrentEquity:          currentEquity,
		PrincipalRepaid:        principalRepaid,
		Appreciation:           appreciation,
		OutstandingBalance:     outstanding,
		SharedOwnershipPercent: share,
		ReservedEquity:         m.ReservedEquity,
		AdjustedEquity:         adjustedEquity,
		AdjustedOriginalEquity: adjustedOriginalEquity,
	}
}

func monthsElapsed(start time.Time, asOf time.Time, termMonths int) int {
	if asOf.Before(start) {
		return 0
	}

	months := (asOf.Year()-start.Year())*12 + int(asOf.Month()) - int(start.Month())
	if asOf.Day() < start.Day() {
		months--
	}

	if months < 0 {
		months = 0
	}
	if termMonths > 0 && months > termMonths {
		months = termMonths
	}
	return months
}

func outstandingBalance(loan, annualRatePercent decimal.Decimal, termMonths, elapsed int) decimal.Decimal {
	if loan.IsZero() || termMonths <= 0 {
		return decimal.Zero
	}
	if elapsed >= termMonths {
		return decimal.Zero
	}

	if annualRatePercent.IsZero() {
		// linear amortization
		repaid := loan.Mul(decimal.NewFromInt(int64(elapsed))).Div(decimal.NewFromInt(int64(termMonths)))
		return loan.Sub(repaid)
	}

	monthlyRate := annualRatePercent.Div(hundred).Div(twelve)
	growth := decimal.NewFromInt(1).Add(monthlyRate)

	// annuity payment over the full term
	growthTerm := growth.Pow(decimal.NewFromInt(int64(termMonths)))
	payment := loan.Mul(monthlyRate).Mul(growthTerm).Div(growthTerm.Sub(decimal.NewFromInt(1)))

	// balance after elapsed payments
	growthElapsed := growth.Pow(decimal.NewFromInt(int64(elapsed)))
	balance := loan.Mul(growthElapsed).Sub(payment.Mul(growthElapsed.Sub(decimal.NewFromInt(1))).Div(monthlyRate))

	if balance.IsNegative() {
		return decimal.Zero
	}
	return balance
}

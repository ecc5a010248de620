package debtSync

import (
	"time"

	"github.com/KotFed0t/networth_tracker_bot/internal/model"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

type RepaymentItem struct {
	PositionID string
	Debt       model.DebtData
}

// SyncAllRepayments rolls every debt balance forward from the moment it was
// entered to asOf: each elapsed month accrues interest at the annual rate and
// subtracts the monthly payment. A balance driven to zero marks the debt as
// paid off; balances never go negative.
func SyncAllRepayments(items []RepaymentItem, asOf time.Time) map[string]model.RepaymentState {
	states := make(map[string]model.RepaymentState, len(items))
	for _, item := range items {
		states[item.PositionID] = syncRepayment(item.Debt, asOf)
	}
	return states
}

func syncRepayment(debt model.DebtData, asOf time.Time) model.RepaymentState {
	balance := debt.Balance
	monthlyRate := debt.AnnualRatePercent.Div(hundred).Div(decimal.NewFromInt(12))

	for i := 0; i < monthsElapsed(debt.EnteredAt, asOf); i++ {
		balance = balance.Add(balance.Mul(monthlyRate)).Sub(debt.MonthlyPayment)
		if !balance.IsPositive() {
			return model.RepaymentState{CurrentBalance: decimal.Zero, PaidOff: true}
		}
	}

	return model.RepaymentState{CurrentBalance: balance}
}

func monthsElapsed(start, asOf time.Time) int {
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
	return months
}

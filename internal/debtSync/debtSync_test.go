package debtSync

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

func TestSyncAllRepayments_MonthlyAccrualAndPayment(t *testing.T) {
	items := []RepaymentItem{{
		PositionID: "pos-1",
		Debt: model.DebtData{
			Balance:           dec("2000"),
			AnnualRatePercent: dec("12"), // 1% per month
			MonthlyPayment:    dec("100"),
			EnteredAt:         time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC),
		},
	}}

	states := SyncAllRepayments(items, time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC))

	require.Contains(t, states, "pos-1")
	// 2000*1.01-100=1920, 1920*1.01-100=1839.2
	assert.True(t, states["pos-1"].CurrentBalance.Equal(dec("1839.2")), "got %s", states["pos-1"].CurrentBalance)
	assert.False(t, states["pos-1"].PaidOff)
}

func TestSyncAllRepayments_PaidOffClampsToZero(t *testing.T) {
	items := []RepaymentItem{{
		PositionID: "pos-1",
		Debt: model.DebtData{
			Balance:           dec("150"),
			AnnualRatePercent: decimal.Zero,
			MonthlyPayment:    dec("100"),
			EnteredAt:         time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		},
	}}

	states := SyncAllRepayments(items, time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC))

	assert.True(t, states["pos-1"].CurrentBalance.IsZero())
	assert.True(t, states["pos-1"].PaidOff)
}

func TestSyncAllRepayments_FutureEntryDateLeavesBalanceUntouched(t *testing.T) {
	items := []RepaymentItem{{
		PositionID: "pos-1",
		Debt: model.DebtData{
			Balance:           dec("500"),
			AnnualRatePercent: dec("20"),
			MonthlyPayment:    dec("50"),
			EnteredAt:         time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC),
		},
	}}

	states := SyncAllRepayments(items, time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC))

	assert.True(t, states["pos-1"].CurrentBalance.Equal(dec("500")))
	assert.False(t, states["pos-1"].PaidOff)
}

package dbModel

import (
	"time"

	"github.com/shopspring/decimal"
)

type Account struct {
	AccountID   string    `db:"account_id"`
	Name        string    `db:"name"`
	AccountType string    `db:"account_type"`
	CreatedAt   time.Time `db:"dt_create"`
}

type Position struct {
	PositionID   string           `db:"position_id"`
	AccountID    string           `db:"account_id"`
	Symbol       string           `db:"symbol"`
	Name         string           `db:"name"`
	CustomName   *string          `db:"custom_name"`
	Units        decimal.Decimal  `db:"units"`
	Currency     string           `db:"currency"`
	Category     string           `db:"category"`
	ManualPrice  *decimal.Decimal `db:"manual_price"`
	MortgageData []byte           `db:"mortgage_data"`
	DebtData     []byte           `db:"debt_data"`
	CreatedAt    time.Time        `db:"dt_create"`
}

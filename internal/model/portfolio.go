package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Category is the asset category tag stored on every position. Categories
// group into four asset classes with structurally different valuation rules.
type Category string

const (
	CategoryCash Category = "CASH"

	CategoryStock  Category = "STOCK"
	CategoryETF    Category = "ETF"
	CategoryFund   Category = "FUND"
	CategoryCrypto Category = "CRYPTO"

	CategoryMortgage      Category = "MORTGAGE"
	CategoryOwnedOutright Category = "OWNED_OUTRIGHT"

	CategoryCreditCard Category = "CREDIT_CARD"
	CategoryLoan       Category = "LOAN"
	CategoryOtherDebt  Category = "OTHER_DEBT"
)

type AssetClass int

const (
	ClassCash AssetClass = iota
	ClassTraded
	ClassProperty
	ClassDebt
)

// Class maps a category onto its asset class. The switch is exhaustive over
// the declared categories so adding a new one forces a decision here.
func (c Category) Class() (AssetClass, error) {
	switch c {
	case CategoryCash:
		return ClassCash, nil
	case CategoryStock, CategoryETF, CategoryFund, CategoryCrypto:
		return ClassTraded, nil
	case CategoryMortgage, CategoryOwnedOutright:
		return ClassProperty, nil
	case CategoryCreditCard, CategoryLoan, CategoryOtherDebt:
		return ClassDebt, nil
	default:
		return 0, fmt.Errorf("unknown category %q", string(c))
	}
}

// MortgageData describes a property position. For OWNED_OUTRIGHT properties
// Deposit equals PurchasePrice and the amortization part is a no-op.
type MortgageData struct {
	PurchasePrice          decimal.Decimal `json:"purchasePrice"`
	Deposit                decimal.Decimal `json:"deposit"`
	AnnualRatePercent      decimal.Decimal `json:"annualRatePercent"`
	TermMonths             int             `json:"termMonths"`
	StartDate              time.Time       `json:"startDate"`
	SharedOwnershipPercent decimal.Decimal `json:"sharedOwnershipPercent"` // 0 means sole ownership
	ReservedEquity         decimal.Decimal `json:"reservedEquity"`
	Postcode               string          `json:"postcode"`
	ValuationDate          string          `json:"valuationDate"` // YYYY-MM-DD of the last formal valuation
}

type DebtData struct {
	Balance           decimal.Decimal `json:"balance"` // positive magnitude as entered
	AnnualRatePercent decimal.Decimal `json:"annualRatePercent"`
	MonthlyPayment    decimal.Decimal `json:"monthlyPayment"`
	EnteredAt         time.Time       `json:"enteredAt"`
	Archived          bool            `json:"archived"`
}

type Position struct {
	ID          string
	Symbol      string
	Name        string
	CustomName  string
	Units       decimal.Decimal
	Currency    string
	Category    Category
	ManualPrice *decimal.Decimal
	Mortgage    *MortgageData
	Debt        *DebtData
	CreatedAt   time.Time
}

// DisplayName prefers the user-assigned name over the instrument name.
func (p Position) DisplayName() string {
	if p.CustomName != "" {
		return p.CustomName
	}
	if p.Name != "" {
		return p.Name
	}
	return p.Symbol
}

type Account struct {
	ID          string
	Name        string
	AccountType string
	Positions   []Position
	CreatedAt   time.Time
}

type Portfolio struct {
	Accounts  []Account
	UpdatedAt time.Time
}

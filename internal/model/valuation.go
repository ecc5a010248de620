package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// CachedPrice is a dated quote snapshot. Entries are immutable once written,
// a new fetch on a later calendar date lands in a new slot.
type CachedPrice struct {
	Symbol        string          `json:"symbol"`
	Price         decimal.Decimal `json:"price"`
	Currency      string          `json:"currency"`
	Name          string          `json:"name"`
	Change        decimal.Decimal `json:"change"`
	ChangePercent decimal.Decimal `json:"changePercent"`
	FetchedAt     time.Time       `json:"fetchedAt"`
}

type CachedFxRate struct {
	From      string          `json:"from"`
	To        string          `json:"to"`
	Rate      decimal.Decimal `json:"rate"`
	FetchedAt time.Time       `json:"fetchedAt"`
}

// PropertyPriceChange is a house-price-index movement since a valuation date.
type PropertyPriceChange struct {
	ChangePercent decimal.Decimal `json:"changePercent"`
	FetchedAt     time.Time       `json:"fetchedAt"`
}

// RepaymentState is the output of the debt repayment sync for one position.
type RepaymentState struct {
	CurrentBalance decimal.Decimal
	PaidOff        bool
}

// EquityResult is the output of the mortgage equity calculator.
type EquityResult struct {
	CurrentPropertyValue   decimal.Decimal
	OriginalEquity         decimal.Decimal
	CurrentEquity          decimal.Decimal
	PrincipalRepaid        decimal.Decimal
	Appreciation           decimal.Decimal
	OutstandingBalance     decimal.Decimal
	SharedOwnershipPercent decimal.Decimal
	ReservedEquity         decimal.Decimal
	AdjustedEquity         decimal.Decimal
	AdjustedOriginalEquity decimal.Decimal
}

type PositionValuation struct {
	Position           Position
	CurrentPrice       decimal.Decimal
	TotalNativeValue   decimal.Decimal
	TotalBaseValue     decimal.Decimal
	Change             decimal.Decimal
	ChangePercent      decimal.Decimal
	FxRate             decimal.Decimal
	IndexChangePercent *decimal.Decimal // raw HPI change, property positions only
}

type AccountValuation struct {
	AccountID      string
	AccountName    string
	Positions      []PositionValuation
	TotalBaseValue decimal.Decimal
}

type PortfolioValuation struct {
	Accounts       []AccountValuation
	TotalBaseValue decimal.Decimal
	BaseCurrency   string
	FreshestAt     time.Time
	GeneratedAt    time.Time
	Errors         []PortfolioError
}

type ErrorCategory string

const (
	ErrCategoryOffline  ErrorCategory = "OFFLINE"
	ErrCategoryAPIError ErrorCategory = "API_ERROR"
	ErrCategoryUnknown  ErrorCategory = "UNKNOWN"
)

// PortfolioError is a user-displayable fetch failure.
type PortfolioError struct {
	Category  ErrorCategory
	Message   string
	Symbol    string
	Timestamp time.Time
}

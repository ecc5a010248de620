package quoteModel

import "github.com/shopspring/decimal"

type Quote struct {
	Symbol        string
	Name          string
	Price         decimal.Decimal
	Currency      string
	Change        decimal.Decimal
	ChangePercent decimal.Decimal
}

type RawQuoteResponse struct {
	Symbol        string          `json:"symbol"`
	ShortName     string          `json:"shortName"`
	Price         decimal.Decimal `json:"regularMarketPrice"`
	Currency      string          `json:"currency"`
	Change        decimal.Decimal `json:"regularMarketChange"`
	ChangePercent decimal.Decimal `json:"regularMarketChangePercent"`
}

type RawFxRateResponse struct {
	From string          `json:"from"`
	To   string          `json:"to"`
	Rate decimal.Decimal `json:"rate"`
}

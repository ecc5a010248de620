package hpiModel

import "github.com/shopspring/decimal"

type RawPriceChangeResponse struct {
	Postcode      string          `json:"postcode"`
	ChangePercent decimal.Decimal `json:"changePercent"`
}

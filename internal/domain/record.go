package domain

import "github.com/shopspring/decimal"

// ExtractedRecord is a single broker execution line, manually entered or extracted from an image.
// Every field is locale-formatted free text, not a typed number.
type ExtractedRecord struct {
	OrderNumber    string `json:"orderNumber"`
	Type           string `json:"type"`
	FilledQuantity string `json:"filledQuantity"`
	IcebergValue   string `json:"icebergValue"`
	AveragePrice   string `json:"averagePrice"`
	Conditions     string `json:"conditions"`
	Fee            string `json:"fee"`
	Total          string `json:"total"`
	CreationDate   string `json:"creationDate"`
	UpdateDate     string `json:"updateDate"`
}

// CurrencyTotals holds per-currency sums derived from a set of execution records
type CurrencyTotals struct {
	TotalQuantity decimal.Decimal            `json:"totalQuantity"`
	AveragePrice  decimal.Decimal            `json:"averagePrice"`
	TotalFees     map[string]decimal.Decimal `json:"totalFees"`
	TotalCost     map[string]decimal.Decimal `json:"totalCost"`
}

// NewCurrencyTotals returns zeroed totals with empty (non-nil) maps
func NewCurrencyTotals() CurrencyTotals {
	return CurrencyTotals{
		TotalQuantity: decimal.Zero,
		AveragePrice:  decimal.Zero,
		TotalFees:     make(map[string]decimal.Decimal),
		TotalCost:     make(map[string]decimal.Decimal),
	}
}

// Clone returns a copy that shares no maps with the receiver
func (t CurrencyTotals) Clone() CurrencyTotals {
	c := CurrencyTotals{
		TotalQuantity: t.TotalQuantity,
		AveragePrice:  t.AveragePrice,
		TotalFees:     make(map[string]decimal.Decimal, len(t.TotalFees)),
		TotalCost:     make(map[string]decimal.Decimal, len(t.TotalCost)),
	}
	for k, v := range t.TotalFees {
		c.TotalFees[k] = v
	}
	for k, v := range t.TotalCost {
		c.TotalCost[k] = v
	}
	return c
}

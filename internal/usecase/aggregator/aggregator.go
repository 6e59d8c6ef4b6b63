package aggregator

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/simaogato/splitpay-backend/internal/domain"
	"github.com/simaogato/splitpay-backend/internal/usecase/moneytext"
)

// DefaultSettlementCurrency is the currency average price is computed against
const DefaultSettlementCurrency = "BRL"

// Aggregator folds execution records into per-currency totals
type Aggregator struct {
	SettlementCurrency string
}

// New creates an Aggregator; an empty settlement currency uses DefaultSettlementCurrency
func New(settlementCurrency string) *Aggregator {
	settlementCurrency = strings.ToUpper(strings.TrimSpace(settlementCurrency))
	if settlementCurrency == "" {
		settlementCurrency = DefaultSettlementCurrency
	}
	return &Aggregator{SettlementCurrency: settlementCurrency}
}

// Aggregate computes totals over records read with locale
// Logic:
//   - Quantity: sum of FilledQuantity numbers, any unit suffix ignored
//   - Fees: Fee amounts bucketed by their currency; amounts without a currency are skipped
//   - Cost: Total amounts bucketed the same way
//   - Average price: Cost[settlement currency] / Quantity, or zero when Quantity is not positive
//
// Aggregate never fails; zero records yield zeroed totals with empty maps.
func (a *Aggregator) Aggregate(records []domain.ExtractedRecord, locale domain.Locale) domain.CurrencyTotals {
	totals := domain.NewCurrencyTotals()

	for _, record := range records {
		quantity := moneytext.Parse(record.FilledQuantity, locale)
		totals.TotalQuantity = totals.TotalQuantity.Add(quantity.Value)

		addToBucket(totals.TotalFees, moneytext.Parse(record.Fee, locale))
		addToBucket(totals.TotalCost, moneytext.Parse(record.Total, locale))
	}

	if totals.TotalQuantity.GreaterThan(decimal.Zero) {
		cost := totals.TotalCost[a.SettlementCurrency]
		totals.AveragePrice = cost.Div(totals.TotalQuantity)
	}

	return totals
}

// addToBucket adds amount to its currency bucket; unlabeled amounts cannot be attributed
func addToBucket(buckets map[string]decimal.Decimal, amount moneytext.Amount) {
	if !amount.HasCurrency() {
		return
	}
	buckets[amount.Currency] = buckets[amount.Currency].Add(amount.Value)
}

// Package moneytext reads locale-formatted amounts such as "1.234,56 BRL" out of free text.
//
// Parsing is lenient on purpose: execution reports are typed by hand or come out of OCR, so a
// field without a usable number reads as zero instead of failing the whole batch.
package moneytext

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/simaogato/splitpay-backend/internal/domain"
)

var (
	currencyPattern = regexp.MustCompile(`([A-Z]{3,})\s*$`)
	numberPattern   = regexp.MustCompile(`[+-]?[0-9][0-9.,]*`)
)

// Amount is a parsed numeric value with its optional currency code
type Amount struct {
	Value    decimal.Decimal
	Currency string // Empty when the text carries no currency code
}

// HasCurrency reports whether a currency code was found
func (a Amount) HasCurrency() bool {
	return a.Currency != ""
}

// Parse reads text using the fixed separators of locale.
// Logic:
//  1. Everything after the first "/" is ignored for the number
//  2. The first numeric run is normalized: thousands separators dropped, decimal separator -> "."
//  3. The currency is the trailing run of 3+ uppercase letters, looked up before the "/" first
//     and then on the whole field ("500,00/1000,00 BRL" is 500.00 BRL)
//
// Parse never fails: missing or malformed numbers read as zero.
func Parse(text string, locale domain.Locale) Amount {
	text = strings.TrimSpace(text)
	if text == "" {
		return Amount{Value: decimal.Zero}
	}

	head := text
	if i := strings.Index(text, "/"); i >= 0 {
		head = text[:i]
	}

	currency := trailingCurrency(head)
	if currency == "" {
		currency = trailingCurrency(text)
	}

	return Amount{
		Value:    parseNumber(head, locale),
		Currency: currency,
	}
}

func trailingCurrency(s string) string {
	m := currencyPattern.FindStringSubmatch(s)
	if m == nil {
		return ""
	}
	return m[1]
}

func parseNumber(s string, locale domain.Locale) decimal.Decimal {
	raw := numberPattern.FindString(s)
	raw = strings.TrimRight(raw, ".,")
	if raw == "" {
		return decimal.Zero
	}

	thousands, decimalSep := locale.Separators()
	normalized := strings.ReplaceAll(raw, thousands, "")
	normalized = strings.ReplaceAll(normalized, decimalSep, ".")

	value, err := decimal.NewFromString(normalized)
	if err != nil {
		return decimal.Zero
	}
	return value
}

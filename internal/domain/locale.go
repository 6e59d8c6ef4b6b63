package domain

import "strings"

// Locale selects the separator convention used to read numeric text
type Locale string

const (
	LocaleEN Locale = "en"
	LocaleES Locale = "es"
	LocalePT Locale = "pt"
)

// ParseLocale reduces a language tag such as "pt-BR" or "en_US" to a supported Locale.
// Unsupported tags fall back to English separators.
func ParseLocale(tag string) Locale {
	tag = strings.ToLower(strings.TrimSpace(tag))
	if i := strings.IndexAny(tag, "-_"); i >= 0 {
		tag = tag[:i]
	}

	switch Locale(tag) {
	case LocaleES:
		return LocaleES
	case LocalePT:
		return LocalePT
	default:
		return LocaleEN
	}
}

// Separators returns the thousands and decimal separators for the locale
func (l Locale) Separators() (thousands, decimal string) {
	switch l {
	case LocaleES, LocalePT:
		return ".", ","
	default:
		return ",", "."
	}
}

package enums

import (
	"fmt"
	"strings"
)

// Currency is an ISO-4217 code. An account holds exactly one.
type Currency string

const (
	CurrencyINR Currency = "INR"
	CurrencyUSD Currency = "USD"
	CurrencyEUR Currency = "EUR"
	CurrencyGBP Currency = "GBP"
)

var knownCurrencies = map[Currency]struct{}{
	CurrencyINR: {},
	CurrencyUSD: {},
	CurrencyEUR: {},
	CurrencyGBP: {},
}

func (c Currency) String() string { return string(c) }

func (c Currency) IsValid() bool {
	_, ok := knownCurrencies[c]
	return ok
}

// ParseCurrency accepts codes in any case and surrounding whitespace.
func ParseCurrency(value string) (Currency, error) {
	c := Currency(strings.ToUpper(strings.TrimSpace(value)))
	if !c.IsValid() {
		return "", fmt.Errorf("unsupported currency %q", value)
	}
	return c, nil
}

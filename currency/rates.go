// Package currency provides the exchange-rate table and its providers.
package currency

import (
	"context"

	"github.com/shopspring/decimal"
)

// PLN is the base currency; its rate is always exactly 1.
const PLN = "PLN"

// Table maps a currency code to its mid exchange rate against PLN.
type Table map[string]decimal.Decimal

// Clone returns an independent copy of the table.
func (t Table) Clone() Table {
	cp := make(Table, len(t))
	for code, rate := range t {
		cp[code] = rate
	}
	return cp
}

// RateProvider supplies a fresh rate table. Implementations block until the
// feed answers or ctx is done; a failed fetch must not return a partial
// table.
type RateProvider interface {
	Fetch(ctx context.Context) (Table, error)
}

// Fixed is a static RateProvider for tests and offline use.
type Fixed Table

// Fetch returns a copy of the fixed table.
func (f Fixed) Fetch(ctx context.Context) (Table, error) {
	return Table(f).Clone(), nil
}

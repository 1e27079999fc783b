// Package bank implements an in-memory, multi-currency banking core: user
// and account registries, a per-account append-only transaction ledger, a
// PIN-gated account state machine and a permission-checked user facade.
//
// The Bank is the arena that owns all users, accounts and ledger entries.
// Users and accounts refer to each other by key (user id, account number)
// and resolve the live object through the Bank, so the object graph has no
// ownership cycles.
package bank

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/wisentbank/wisent/currency"
	"github.com/wisentbank/wisent/errs"
)

// accountNumberDigits is the number of random digits appended to the bank
// code when generating account numbers.
const accountNumberDigits = 22

// Bank holds the registries, the ledger and the current rate table.
type Bank struct {
	name     string
	bankCode string
	provider currency.RateProvider

	mu       sync.RWMutex // guards users, accounts, ledger
	users    map[int]*User
	accounts map[string]*Account
	ledger   map[string][]Transaction

	ratesMu sync.RWMutex
	rates   currency.Table

	createdAt time.Time
}

// New creates a bank and fetches its initial rate table from provider.
// A failed fetch fails construction; there is no stale-rate fallback.
func New(ctx context.Context, name, bankCode string, provider currency.RateProvider) (*Bank, error) {
	b := &Bank{
		name:      name,
		bankCode:  bankCode,
		provider:  provider,
		users:     make(map[int]*User),
		accounts:  make(map[string]*Account),
		ledger:    make(map[string][]Transaction),
		createdAt: time.Now(),
	}
	rates, err := b.FetchCurrencies(ctx)
	if err != nil {
		return nil, err
	}
	b.rates = rates
	return b, nil
}

// Name returns the bank's display name.
func (b *Bank) Name() string { return b.name }

// Code returns the bank code used as the account-number prefix.
func (b *Bank) Code() string { return b.bankCode }

// AddUser registers a user. Re-adding the same id is a no-op.
func (b *Bank) AddUser(u *User) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.users[u.id] = u
}

// GetUser returns the user with the given id.
func (b *Bank) GetUser(id int) (*User, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	u, ok := b.users[id]
	if !ok {
		return nil, fmt.Errorf("%w: user %d", errs.ErrNotFound, id)
	}
	return u, nil
}

// GetUsers returns all registered users ordered by id.
func (b *Bank) GetUsers() []*User {
	b.mu.RLock()
	defer b.mu.RUnlock()
	users := make([]*User, 0, len(b.users))
	for _, u := range b.users {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].id < users[j].id })
	return users
}

// Account returns the account with the given number, or false.
func (b *Bank) Account(number string) (*Account, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	a, ok := b.accounts[number]
	return a, ok
}

// FetchCurrencies calls the rate provider and returns a fresh table with
// the base currency PLN forced to 1.0. The stored table is not modified.
func (b *Bank) FetchCurrencies(ctx context.Context) (currency.Table, error) {
	table, err := b.provider.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	table[currency.PLN] = decimal.NewFromInt(1)
	return table, nil
}

// UpdateCurrencies refreshes the stored rate table. The swap is
// all-or-nothing: a failed fetch leaves the previous table intact.
func (b *Bank) UpdateCurrencies(ctx context.Context) error {
	table, err := b.FetchCurrencies(ctx)
	if err != nil {
		return err
	}
	b.ratesMu.Lock()
	b.rates = table
	b.ratesMu.Unlock()
	return nil
}

// Rate returns the exchange rate for the given currency code.
func (b *Bank) Rate(code string) (decimal.Decimal, bool) {
	b.ratesMu.RLock()
	defer b.ratesMu.RUnlock()
	rate, ok := b.rates[code]
	return rate, ok
}

// Currencies returns a snapshot of the current rate table.
func (b *Bank) Currencies() currency.Table {
	b.ratesMu.RLock()
	defer b.ratesMu.RUnlock()
	return b.rates.Clone()
}

// AddTransaction appends a record to the account's ledger. Ledger entries
// are immutable once appended; there is no deletion.
func (b *Bank) AddTransaction(tx Transaction, accountNumber string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ledger[accountNumber] = append(b.ledger[accountNumber], tx)
}

// GetTransactions returns the account's ledger in append order. The result
// is a copy; an account without records yields an empty slice.
func (b *Bank) GetTransactions(accountNumber string) []Transaction {
	b.mu.RLock()
	defer b.mu.RUnlock()
	entries := b.ledger[accountNumber]
	out := make([]Transaction, len(entries))
	copy(out, entries)
	return out
}

// GetLatestTransaction returns the most recent ledger record for the
// account, or ErrNotFound when the ledger is empty.
func (b *Bank) GetLatestTransaction(accountNumber string) (Transaction, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	entries := b.ledger[accountNumber]
	if len(entries) == 0 {
		return Transaction{}, fmt.Errorf("%w: no transactions for account %s", errs.ErrNotFound, accountNumber)
	}
	return entries[len(entries)-1], nil
}

// GetTransactionsByDate returns the account's records with dates inside
// the inclusive [from, to] range.
func (b *Bank) GetTransactionsByDate(from, to time.Time, accountNumber string) ([]Transaction, error) {
	if from.IsZero() || to.IsZero() {
		return nil, fmt.Errorf("%w: date bounds must be valid timestamps", errs.ErrTypeMismatch)
	}
	if from.After(to) {
		return nil, fmt.Errorf("%w: start date must not be after end date", errs.ErrValidation)
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	var out []Transaction
	for _, tx := range b.ledger[accountNumber] {
		if !tx.Date.Before(from) && !tx.Date.After(to) {
			out = append(out, tx)
		}
	}
	return out, nil
}

// registerAccount assigns a fresh unique account number and stores the
// account in the registry.
func (b *Bank) registerAccount(a *Account) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for {
		number := b.bankCode + randomDigits(accountNumberDigits)
		if _, exists := b.accounts[number]; exists {
			continue
		}
		a.number = number
		b.accounts[number] = a
		return
	}
}

// randomDigits generates n decimal digits using crypto/rand.
func randomDigits(n int) string {
	digits := make([]byte, n)
	for i := range digits {
		num, _ := rand.Int(rand.Reader, big.NewInt(10))
		digits[i] = byte('0' + num.Int64())
	}
	return string(digits)
}

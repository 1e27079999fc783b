package bank

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/wisentbank/wisent/errs"
)

// maxFailedAttempts is the number of wrong PIN entries that locks an
// account.
const maxFailedAttempts = 3

// Account is the PIN-gated balance state machine. Every balance- or
// PIN-mutating operation passes the access gate first; the failed-attempt
// counter is the lockout mechanism and is deliberately incremented even on
// failing calls.
//
// The owner is referenced by user id and resolved through the bank; the
// bank handle is the indirection point for ledger writes and rate lookups.
type Account struct {
	mu sync.Mutex

	number   string
	ownerID  int
	bank     *Bank
	balance  decimal.Decimal
	currency string
	status   AccountStatus
	pin      string

	failedAttempts    int
	lastTransactionAt time.Time
	createdAt         time.Time
}

// NewAccount opens an account at b for the given owner. The balance must be
// non-negative, the currency known to the bank's rate table and the PIN
// exactly 6 digits. The account starts ACTIVE and is registered with the
// bank under a freshly generated unique number.
func NewAccount(b *Bank, ownerID int, pin, currencyCode string, balance decimal.Decimal) (*Account, error) {
	if err := validatePIN(pin); err != nil {
		return nil, err
	}
	if balance.IsNegative() {
		return nil, fmt.Errorf("%w: opening balance must not be negative", errs.ErrValidation)
	}
	currencyCode = strings.ToUpper(currencyCode)
	if _, ok := b.Rate(currencyCode); !ok {
		return nil, fmt.Errorf("%w: unknown currency %q", errs.ErrValidation, currencyCode)
	}

	a := &Account{
		ownerID:   ownerID,
		bank:      b,
		balance:   balance,
		currency:  currencyCode,
		status:    StatusActive,
		pin:       pin,
		createdAt: time.Now(),
	}
	b.registerAccount(a)
	return a, nil
}

// validateAccess is the PIN gate. Caller must hold a.mu.
//
// Order matters: an exhausted attempt counter locks the account before the
// PIN is even looked at, a non-ACTIVE account rejects the operation, and a
// wrong PIN counts towards the lockout. A correct PIN resets the counter.
func (a *Account) validateAccess(pin string) error {
	if a.failedAttempts >= maxFailedAttempts {
		if next, ok := a.status.next(eventLockout); ok {
			a.status = next
		}
		return fmt.Errorf("%w: account locked after too many failed PIN attempts", errs.ErrAuthorization)
	}
	if a.status != StatusActive {
		return fmt.Errorf("%w: account %s is %s", errs.ErrInvalidState, a.number, a.status)
	}
	if pin != a.pin {
		a.recordFailedAttempt()
		return fmt.Errorf("%w: incorrect PIN", errs.ErrAuthorization)
	}
	a.failedAttempts = 0
	return nil
}

// recordFailedAttempt bumps the counter and locks the account the moment
// the limit is reached. Caller must hold a.mu.
func (a *Account) recordFailedAttempt() {
	a.failedAttempts++
	if a.failedAttempts >= maxFailedAttempts {
		if next, ok := a.status.next(eventLockout); ok {
			a.status = next
		}
	}
}

// Deposit adds a positive amount to the balance and records a deposit
// transaction.
func (a *Account) Deposit(amount decimal.Decimal, pin string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.validateAccess(pin); err != nil {
		return err
	}
	if amount.Sign() <= 0 {
		return fmt.Errorf("%w: amount must be positive", errs.ErrValidation)
	}

	a.balance = a.balance.Add(amount)
	now := time.Now()
	a.lastTransactionAt = now
	a.bank.AddTransaction(Transaction{
		ID:       uuid.New(),
		Type:     TxDeposit,
		Amount:   amount,
		Currency: a.currency,
		Date:     now,
	}, a.number)
	return nil
}

// Withdraw removes a positive amount not exceeding the balance and records
// a withdraw transaction. The balance never goes negative.
func (a *Account) Withdraw(amount decimal.Decimal, pin string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.validateAccess(pin); err != nil {
		return err
	}
	if amount.Sign() <= 0 {
		return fmt.Errorf("%w: amount must be positive", errs.ErrValidation)
	}
	if amount.GreaterThan(a.balance) {
		return fmt.Errorf("%w: amount exceeds balance", errs.ErrValidation)
	}

	a.balance = a.balance.Sub(amount)
	now := time.Now()
	a.lastTransactionAt = now
	a.bank.AddTransaction(Transaction{
		ID:       uuid.New(),
		Type:     TxWithdraw,
		Amount:   amount,
		Currency: a.currency,
		Date:     now,
	}, a.number)
	return nil
}

// Transfer moves amount to the account toNumber at toBank. When currencies
// differ, the credited amount is round(amount * rateSrc / rateDst, 2) using
// the source bank's rate table. Both legs share one timestamp; the transfer
// record lands on the source ledger and the incoming_transfer record, in
// the recipient's currency, on the target's ledger.
func (a *Account) Transfer(amount decimal.Decimal, toNumber string, toBank *Bank, pin string) error {
	target, ok := toBank.Account(toNumber)
	if !ok {
		return fmt.Errorf("%w: target account %s not found", errs.ErrValidation, toNumber)
	}
	if target == a {
		return fmt.Errorf("%w: cannot transfer to the same account", errs.ErrValidation)
	}

	// Both account locks are taken in account-number order so that two
	// opposing transfers cannot deadlock.
	first, second := a, target
	if target.number < a.number {
		first, second = target, first
	}
	first.mu.Lock()
	defer first.mu.Unlock()
	second.mu.Lock()
	defer second.mu.Unlock()

	if err := a.validateAccess(pin); err != nil {
		return err
	}
	if amount.Sign() <= 0 {
		return fmt.Errorf("%w: amount must be positive", errs.ErrValidation)
	}
	if amount.GreaterThan(a.balance) {
		return fmt.Errorf("%w: amount exceeds balance", errs.ErrValidation)
	}
	if target.status != StatusActive {
		return fmt.Errorf("%w: target account is not active", errs.ErrValidation)
	}

	credited := amount
	if a.currency != target.currency {
		rateSrc, ok := a.bank.Rate(a.currency)
		if !ok {
			return fmt.Errorf("%w: no rate for currency %q", errs.ErrValidation, a.currency)
		}
		rateDst, ok := a.bank.Rate(target.currency)
		if !ok {
			return fmt.Errorf("%w: no rate for currency %q", errs.ErrValidation, target.currency)
		}
		credited = amount.Mul(rateSrc).Div(rateDst).Round(2)
	}

	// All validation passed; both legs happen inside the critical section
	// so no partial transfer is ever observable.
	now := time.Now()
	a.balance = a.balance.Sub(amount)
	target.balance = target.balance.Add(credited)
	a.lastTransactionAt = now
	target.lastTransactionAt = now

	a.bank.AddTransaction(Transaction{
		ID:       uuid.New(),
		Type:     TxTransfer,
		Amount:   amount,
		Currency: a.currency,
		To:       target.number,
		Date:     now,
	}, a.number)
	target.bank.AddTransaction(Transaction{
		ID:       uuid.New(),
		Type:     TxIncomingTransfer,
		Amount:   credited,
		Currency: target.currency,
		From:     a.number,
		Date:     now,
	}, target.number)
	return nil
}

// ChangeCurrency converts the balance to a new currency at the bank's
// current rates: balance = round(balance * rateOld / rateNew, 2).
func (a *Account) ChangeCurrency(newCurrency, pin string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.validateAccess(pin); err != nil {
		return err
	}
	newCurrency = strings.ToUpper(newCurrency)
	rateNew, ok := a.bank.Rate(newCurrency)
	if !ok {
		return fmt.Errorf("%w: unknown currency %q", errs.ErrValidation, newCurrency)
	}
	if newCurrency == a.currency {
		return fmt.Errorf("%w: account is already in %s", errs.ErrValidation, newCurrency)
	}
	rateOld, ok := a.bank.Rate(a.currency)
	if !ok {
		return fmt.Errorf("%w: no rate for currency %q", errs.ErrValidation, a.currency)
	}

	oldCurrency := a.currency
	a.balance = a.balance.Mul(rateOld).Div(rateNew).Round(2)
	a.currency = newCurrency

	a.bank.AddTransaction(Transaction{
		ID:           uuid.New(),
		Type:         TxCurrencyChange,
		Amount:       a.balance,
		Currency:     newCurrency,
		FromCurrency: oldCurrency,
		ToCurrency:   newCurrency,
		RateFrom:     rateOld,
		RateTo:       rateNew,
		Date:         time.Now(),
	}, a.number)
	return nil
}

// ChangePIN replaces the PIN after gating on the old one. The new PIN must
// be 6 digits and differ from the old.
func (a *Account) ChangePIN(oldPIN, newPIN string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.validateAccess(oldPIN); err != nil {
		return err
	}
	if err := validatePIN(newPIN); err != nil {
		return err
	}
	if newPIN == oldPIN {
		return fmt.Errorf("%w: new PIN must differ from the old one", errs.ErrValidation)
	}
	a.pin = newPIN
	return nil
}

// Close moves an ACTIVE account with a zero balance to CLOSED. CLOSED is
// terminal.
func (a *Account) Close(pin string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.validateAccess(pin); err != nil {
		return err
	}
	if !a.balance.IsZero() {
		return fmt.Errorf("%w: balance must be withdrawn before closing", errs.ErrInvalidState)
	}
	next, ok := a.status.next(eventClose)
	if !ok {
		return fmt.Errorf("%w: cannot close account in status %s", errs.ErrInvalidState, a.status)
	}
	a.status = next
	return nil
}

// Unlock returns a LOCKED or INACTIVE account to ACTIVE when the PIN
// matches, resetting the failed-attempt counter. Unlocking an ACTIVE
// account is a no-op success; a CLOSED account cannot be unlocked.
//
// Unlock bypasses the standard gate on purpose: the gate requires ACTIVE
// status, which a locked account can never satisfy.
func (a *Account) Unlock(pin string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	next, ok := a.status.next(eventUnlock)
	if !ok {
		return fmt.Errorf("%w: cannot unlock account in status %s", errs.ErrInvalidState, a.status)
	}
	if pin != a.pin {
		a.failedAttempts++
		return fmt.Errorf("%w: incorrect PIN", errs.ErrAuthorization)
	}
	a.status = next
	a.failedAttempts = 0
	return nil
}

// CalculateInterest returns the interest accrued over the given number of
// days at a tiered annual rate: 1% up to 1,000, 2% up to 10,000, 3% above.
// Read-only, not PIN-gated; a non-positive balance yields zero.
func (a *Account) CalculateInterest(days int) decimal.Decimal {
	a.mu.Lock()
	balance := a.balance
	a.mu.Unlock()

	if balance.Sign() <= 0 {
		return decimal.Zero
	}
	var annualRate decimal.Decimal
	switch {
	case balance.LessThanOrEqual(decimal.NewFromInt(1000)):
		annualRate = decimal.NewFromFloat(0.01)
	case balance.LessThanOrEqual(decimal.NewFromInt(10000)):
		annualRate = decimal.NewFromFloat(0.02)
	default:
		annualRate = decimal.NewFromFloat(0.03)
	}
	return balance.Mul(annualRate).
		Mul(decimal.NewFromInt(int64(days))).
		Div(decimal.NewFromInt(365)).
		Round(2)
}

// GetTransactions returns the account's ledger in append order.
func (a *Account) GetTransactions() []Transaction {
	return a.bank.GetTransactions(a.Number())
}

// GetLatestTransaction returns the most recent ledger record.
func (a *Account) GetLatestTransaction() (Transaction, error) {
	return a.bank.GetLatestTransaction(a.Number())
}

// GetTransactionsByDate returns ledger records within the inclusive range.
func (a *Account) GetTransactionsByDate(from, to time.Time) ([]Transaction, error) {
	return a.bank.GetTransactionsByDate(from, to, a.Number())
}

// Number returns the account number.
func (a *Account) Number() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.number
}

// OwnerID returns the id of the owning user.
func (a *Account) OwnerID() int { return a.ownerID }

// Balance returns the current balance.
func (a *Account) Balance() decimal.Decimal {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.balance
}

// Currency returns the account's currency code.
func (a *Account) Currency() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.currency
}

// Status returns the lifecycle state.
func (a *Account) Status() AccountStatus {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.status
}

// LastTransactionAt returns the time of the latest balance movement; the
// zero time means the account has none.
func (a *Account) LastTransactionAt() time.Time {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastTransactionAt
}

// CreatedAt returns the account creation time.
func (a *Account) CreatedAt() time.Time { return a.createdAt }

// String renders the account as "number: balance currency".
func (a *Account) String() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return fmt.Sprintf("%s: %s %s", a.number, a.balance.StringFixed(2), a.currency)
}

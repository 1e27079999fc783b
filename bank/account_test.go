package bank

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/wisentbank/wisent/errs"
)

const testPIN = "123456"

func openTestAccount(t *testing.T, b *Bank, balance int64, currencyCode string) *Account {
	t.Helper()
	a, err := NewAccount(b, 1, testPIN, currencyCode, decimal.NewFromInt(balance))
	if err != nil {
		t.Fatalf("NewAccount: %v", err)
	}
	return a
}

func TestNewAccountValidation(t *testing.T) {
	b := newTestBank(t)

	if _, err := NewAccount(b, 1, "12345", "PLN", decimal.Zero); !errors.Is(err, errs.ErrValidation) {
		t.Errorf("short PIN: expected ErrValidation, got %v", err)
	}
	if _, err := NewAccount(b, 1, "12345a", "PLN", decimal.Zero); !errors.Is(err, errs.ErrValidation) {
		t.Errorf("non-digit PIN: expected ErrValidation, got %v", err)
	}
	if _, err := NewAccount(b, 1, testPIN, "XXX", decimal.Zero); !errors.Is(err, errs.ErrValidation) {
		t.Errorf("unknown currency: expected ErrValidation, got %v", err)
	}
	if _, err := NewAccount(b, 1, testPIN, "PLN", decimal.NewFromInt(-1)); !errors.Is(err, errs.ErrValidation) {
		t.Errorf("negative balance: expected ErrValidation, got %v", err)
	}

	a, err := NewAccount(b, 1, testPIN, "usd", decimal.Zero)
	if err != nil {
		t.Fatalf("lowercase currency code rejected: %v", err)
	}
	if a.Currency() != "USD" {
		t.Errorf("currency = %q, want USD", a.Currency())
	}
	if a.Status() != StatusActive {
		t.Errorf("new account status = %s, want active", a.Status())
	}
}

func TestWithdrawScenario(t *testing.T) {
	b := newTestBank(t)
	a := openTestAccount(t, b, 1000, "PLN")

	if err := a.Withdraw(decimal.NewFromInt(100), testPIN); err != nil {
		t.Fatalf("Withdraw: %v", err)
	}
	if !a.Balance().Equal(decimal.NewFromInt(900)) {
		t.Fatalf("balance = %s, want 900", a.Balance())
	}

	txs := a.GetTransactions()
	if len(txs) != 1 {
		t.Fatalf("expected 1 transaction, got %d", len(txs))
	}
	if txs[0].Type != TxWithdraw || !txs[0].Amount.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("unexpected transaction: %+v", txs[0])
	}
	if a.LastTransactionAt().IsZero() {
		t.Error("lastTransactionAt not updated")
	}
}

func TestDepositScenario(t *testing.T) {
	b := newTestBank(t)
	a := openTestAccount(t, b, 0, "PLN")

	if err := a.Deposit(decimal.NewFromInt(250), testPIN); err != nil {
		t.Fatalf("Deposit: %v", err)
	}
	if !a.Balance().Equal(decimal.NewFromInt(250)) {
		t.Fatalf("balance = %s, want 250", a.Balance())
	}
	latest, err := a.GetLatestTransaction()
	if err != nil {
		t.Fatalf("GetLatestTransaction: %v", err)
	}
	if latest.Type != TxDeposit {
		t.Fatalf("latest transaction type = %s, want deposit", latest.Type)
	}
}

func TestAmountValidation(t *testing.T) {
	b := newTestBank(t)
	a := openTestAccount(t, b, 100, "PLN")

	for _, amount := range []decimal.Decimal{decimal.Zero, decimal.NewFromInt(-5)} {
		if err := a.Deposit(amount, testPIN); !errors.Is(err, errs.ErrValidation) {
			t.Errorf("Deposit(%s): expected ErrValidation, got %v", amount, err)
		}
		if err := a.Withdraw(amount, testPIN); !errors.Is(err, errs.ErrValidation) {
			t.Errorf("Withdraw(%s): expected ErrValidation, got %v", amount, err)
		}
	}
	if err := a.Withdraw(decimal.NewFromInt(101), testPIN); !errors.Is(err, errs.ErrValidation) {
		t.Errorf("overdraw: expected ErrValidation, got %v", err)
	}
	if !a.Balance().Equal(decimal.NewFromInt(100)) {
		t.Fatalf("failed operations changed the balance: %s", a.Balance())
	}
	if a.Balance().IsNegative() {
		t.Fatal("balance went negative")
	}
}

func TestPINLockout(t *testing.T) {
	b := newTestBank(t)
	a := openTestAccount(t, b, 1000, "PLN")

	// Three wrong PINs lock the account.
	for i := 0; i < 3; i++ {
		if err := a.Deposit(decimal.NewFromInt(10), "000000"); !errors.Is(err, errs.ErrAuthorization) {
			t.Fatalf("attempt %d: expected ErrAuthorization, got %v", i+1, err)
		}
	}
	if a.Status() != StatusLocked {
		t.Fatalf("status = %s, want locked after 3 failed attempts", a.Status())
	}

	// A fourth call fails even with the correct PIN.
	if err := a.Deposit(decimal.NewFromInt(10), testPIN); !errors.Is(err, errs.ErrAuthorization) {
		t.Fatalf("locked account: expected ErrAuthorization, got %v", err)
	}
	if !a.Balance().Equal(decimal.NewFromInt(1000)) {
		t.Fatalf("lockout changed the balance: %s", a.Balance())
	}
}

func TestCorrectPINResetsCounter(t *testing.T) {
	b := newTestBank(t)
	a := openTestAccount(t, b, 1000, "PLN")

	for i := 0; i < 2; i++ {
		a.Deposit(decimal.NewFromInt(10), "000000")
	}
	if err := a.Deposit(decimal.NewFromInt(10), testPIN); err != nil {
		t.Fatalf("Deposit with correct PIN: %v", err)
	}
	// Counter was reset, so two more misses must not lock.
	for i := 0; i < 2; i++ {
		a.Deposit(decimal.NewFromInt(10), "000000")
	}
	if a.Status() != StatusActive {
		t.Fatalf("status = %s, want active", a.Status())
	}
}

func TestUnlock(t *testing.T) {
	b := newTestBank(t)
	a := openTestAccount(t, b, 1000, "PLN")

	for i := 0; i < 3; i++ {
		a.Deposit(decimal.NewFromInt(10), "000000")
	}
	if a.Status() != StatusLocked {
		t.Fatalf("status = %s, want locked", a.Status())
	}

	if err := a.Unlock("000000"); !errors.Is(err, errs.ErrAuthorization) {
		t.Fatalf("Unlock with wrong PIN: expected ErrAuthorization, got %v", err)
	}
	if a.Status() != StatusLocked {
		t.Fatalf("wrong-PIN unlock changed status to %s", a.Status())
	}

	if err := a.Unlock(testPIN); err != nil {
		t.Fatalf("Unlock: %v", err)
	}
	if a.Status() != StatusActive {
		t.Fatalf("status = %s, want active after unlock", a.Status())
	}
	// The counter must be reset, otherwise the next gated call re-locks.
	if err := a.Deposit(decimal.NewFromInt(10), testPIN); err != nil {
		t.Fatalf("Deposit after unlock: %v", err)
	}
}

func TestUnlockInactiveAccount(t *testing.T) {
	b := newTestBank(t)
	a := openTestAccount(t, b, 0, "PLN")
	a.status = StatusInactive

	if err := a.Unlock(testPIN); err != nil {
		t.Fatalf("Unlock: %v", err)
	}
	if a.Status() != StatusActive {
		t.Fatalf("status = %s, want active", a.Status())
	}
}

func TestUnlockActiveIsNoOp(t *testing.T) {
	b := newTestBank(t)
	a := openTestAccount(t, b, 0, "PLN")

	if err := a.Unlock(testPIN); err != nil {
		t.Fatalf("Unlock on active account: %v", err)
	}
	if a.Status() != StatusActive {
		t.Fatalf("status = %s, want active", a.Status())
	}
}

func TestClose(t *testing.T) {
	b := newTestBank(t)
	a := openTestAccount(t, b, 100, "PLN")

	if err := a.Close(testPIN); !errors.Is(err, errs.ErrInvalidState) {
		t.Fatalf("Close with non-zero balance: expected ErrInvalidState, got %v", err)
	}

	if err := a.Withdraw(decimal.NewFromInt(100), testPIN); err != nil {
		t.Fatalf("Withdraw: %v", err)
	}
	if err := a.Close(testPIN); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if a.Status() != StatusClosed {
		t.Fatalf("status = %s, want closed", a.Status())
	}

	// CLOSED is terminal: no operation leaves it.
	if err := a.Deposit(decimal.NewFromInt(10), testPIN); !errors.Is(err, errs.ErrInvalidState) {
		t.Errorf("Deposit on closed account: expected ErrInvalidState, got %v", err)
	}
	if err := a.Unlock(testPIN); !errors.Is(err, errs.ErrInvalidState) {
		t.Errorf("Unlock on closed account: expected ErrInvalidState, got %v", err)
	}
	if err := a.Close(testPIN); !errors.Is(err, errs.ErrInvalidState) {
		t.Errorf("Close on closed account: expected ErrInvalidState, got %v", err)
	}
}

func TestChangePIN(t *testing.T) {
	b := newTestBank(t)
	a := openTestAccount(t, b, 100, "PLN")

	if err := a.ChangePIN("000000", "654321"); !errors.Is(err, errs.ErrAuthorization) {
		t.Errorf("wrong old PIN: expected ErrAuthorization, got %v", err)
	}
	if err := a.ChangePIN(testPIN, "1234"); !errors.Is(err, errs.ErrValidation) {
		t.Errorf("short new PIN: expected ErrValidation, got %v", err)
	}
	if err := a.ChangePIN(testPIN, testPIN); !errors.Is(err, errs.ErrValidation) {
		t.Errorf("same new PIN: expected ErrValidation, got %v", err)
	}

	if err := a.ChangePIN(testPIN, "654321"); err != nil {
		t.Fatalf("ChangePIN: %v", err)
	}
	if err := a.Deposit(decimal.NewFromInt(10), testPIN); !errors.Is(err, errs.ErrAuthorization) {
		t.Error("old PIN still accepted after change")
	}
	if err := a.Deposit(decimal.NewFromInt(10), "654321"); err != nil {
		t.Fatalf("Deposit with new PIN: %v", err)
	}
}

func TestTransferCrossCurrency(t *testing.T) {
	b := newTestBank(t)
	src := openTestAccount(t, b, 1000, "PLN")
	dst, err := NewAccount(b, 2, "654321", "USD", decimal.NewFromInt(200))
	if err != nil {
		t.Fatalf("NewAccount: %v", err)
	}

	if err := src.Transfer(decimal.NewFromInt(500), dst.Number(), b, testPIN); err != nil {
		t.Fatalf("Transfer: %v", err)
	}

	if !src.Balance().Equal(decimal.NewFromInt(500)) {
		t.Fatalf("source balance = %s, want 500", src.Balance())
	}
	// round(500 * 1.0 / 3.7642, 2) = 132.83
	want := decimal.NewFromFloat(332.83)
	if !dst.Balance().Equal(want) {
		t.Fatalf("target balance = %s, want %s", dst.Balance(), want)
	}

	srcTxs := src.GetTransactions()
	dstTxs := dst.GetTransactions()
	if len(srcTxs) != 1 || len(dstTxs) != 1 {
		t.Fatalf("expected one leg per ledger, got %d and %d", len(srcTxs), len(dstTxs))
	}
	out, in := srcTxs[0], dstTxs[0]
	if out.Type != TxTransfer || in.Type != TxIncomingTransfer {
		t.Fatalf("leg types = %s / %s", out.Type, in.Type)
	}
	if !out.Amount.Equal(decimal.NewFromInt(500)) || out.Currency != "PLN" {
		t.Errorf("outgoing leg: %s %s", out.Amount, out.Currency)
	}
	if !in.Amount.Equal(decimal.NewFromFloat(132.83)) || in.Currency != "USD" {
		t.Errorf("incoming leg: %s %s", in.Amount, in.Currency)
	}
	if !out.Date.Equal(in.Date) {
		t.Error("transfer legs do not share one timestamp")
	}
	if out.To != dst.Number() || in.From != src.Number() {
		t.Error("transfer legs do not reference the counterparty")
	}
}

func TestTransferSameCurrency(t *testing.T) {
	b := newTestBank(t)
	src := openTestAccount(t, b, 1000, "PLN")
	dst, err := NewAccount(b, 2, "654321", "PLN", decimal.Zero)
	if err != nil {
		t.Fatalf("NewAccount: %v", err)
	}

	if err := src.Transfer(decimal.NewFromInt(300), dst.Number(), b, testPIN); err != nil {
		t.Fatalf("Transfer: %v", err)
	}
	if !dst.Balance().Equal(decimal.NewFromInt(300)) {
		t.Fatalf("target balance = %s, want 300", dst.Balance())
	}
}

func TestTransferValidation(t *testing.T) {
	b := newTestBank(t)
	src := openTestAccount(t, b, 100, "PLN")
	dst, err := NewAccount(b, 2, "654321", "PLN", decimal.Zero)
	if err != nil {
		t.Fatalf("NewAccount: %v", err)
	}

	if err := src.Transfer(decimal.NewFromInt(10), "missing", b, testPIN); !errors.Is(err, errs.ErrValidation) {
		t.Errorf("unknown target: expected ErrValidation, got %v", err)
	}
	if err := src.Transfer(decimal.NewFromInt(10), src.Number(), b, testPIN); !errors.Is(err, errs.ErrValidation) {
		t.Errorf("self transfer: expected ErrValidation, got %v", err)
	}
	if err := src.Transfer(decimal.NewFromInt(101), dst.Number(), b, testPIN); !errors.Is(err, errs.ErrValidation) {
		t.Errorf("overdraw: expected ErrValidation, got %v", err)
	}

	dst.status = StatusInactive
	if err := src.Transfer(decimal.NewFromInt(10), dst.Number(), b, testPIN); !errors.Is(err, errs.ErrValidation) {
		t.Errorf("inactive target: expected ErrValidation, got %v", err)
	}

	if !src.Balance().Equal(decimal.NewFromInt(100)) {
		t.Fatalf("failed transfers changed the source balance: %s", src.Balance())
	}
}

func TestChangeCurrency(t *testing.T) {
	b := newTestBank(t)
	a := openTestAccount(t, b, 1000, "PLN")

	if err := a.ChangeCurrency("XXX", testPIN); !errors.Is(err, errs.ErrValidation) {
		t.Errorf("unknown currency: expected ErrValidation, got %v", err)
	}
	if err := a.ChangeCurrency("PLN", testPIN); !errors.Is(err, errs.ErrValidation) {
		t.Errorf("same currency: expected ErrValidation, got %v", err)
	}

	if err := a.ChangeCurrency("USD", testPIN); err != nil {
		t.Fatalf("ChangeCurrency: %v", err)
	}
	if a.Currency() != "USD" {
		t.Fatalf("currency = %s, want USD", a.Currency())
	}
	// round(1000 * 1.0 / 3.7642, 2) = 265.66
	if !a.Balance().Equal(decimal.NewFromFloat(265.66)) {
		t.Fatalf("balance = %s, want 265.66", a.Balance())
	}

	latest, err := a.GetLatestTransaction()
	if err != nil {
		t.Fatalf("GetLatestTransaction: %v", err)
	}
	if latest.Type != TxCurrencyChange || latest.FromCurrency != "PLN" || latest.ToCurrency != "USD" {
		t.Fatalf("unexpected currency_change record: %+v", latest)
	}
	if !latest.RateFrom.Equal(decimal.NewFromInt(1)) || !latest.RateTo.Equal(decimal.NewFromFloat(3.7642)) {
		t.Fatalf("rate pair = %s/%s", latest.RateFrom, latest.RateTo)
	}

	// Converting back at the same rates round-trips within rounding error.
	if err := a.ChangeCurrency("PLN", testPIN); err != nil {
		t.Fatalf("ChangeCurrency back: %v", err)
	}
	diff := a.Balance().Sub(decimal.NewFromInt(1000)).Abs()
	if diff.GreaterThan(decimal.NewFromFloat(0.02)) {
		t.Fatalf("round-trip balance = %s, want ~1000", a.Balance())
	}
}

func TestCalculateInterest(t *testing.T) {
	b := newTestBank(t)

	tests := []struct {
		name    string
		balance int64
		days    int
		want    string
	}{
		{"low tier 1%", 1000, 365, "10.00"},
		{"mid tier 2%", 5000, 365, "100.00"},
		{"top tier 3%", 15000, 365, "450.00"},
		{"partial year", 1000, 73, "2.00"},
		{"zero balance", 0, 365, "0.00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := openTestAccount(t, b, tt.balance, "PLN")
			got := a.CalculateInterest(tt.days)
			if got.StringFixed(2) != tt.want {
				t.Fatalf("CalculateInterest(%d) on %d = %s, want %s", tt.days, tt.balance, got.StringFixed(2), tt.want)
			}
		})
	}
}

func TestInterestIsNotGated(t *testing.T) {
	b := newTestBank(t)
	a := openTestAccount(t, b, 500, "PLN")
	for i := 0; i < 3; i++ {
		a.Deposit(decimal.NewFromInt(10), "000000")
	}
	// Locked account still answers the read-only query.
	if got := a.CalculateInterest(365); got.StringFixed(2) != "5.00" {
		t.Fatalf("CalculateInterest = %s, want 5.00", got.StringFixed(2))
	}
}

func TestConcurrentDeposits(t *testing.T) {
	b := newTestBank(t)
	a := openTestAccount(t, b, 0, "PLN")

	done := make(chan struct{})
	for i := 0; i < 10; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			for j := 0; j < 20; j++ {
				if err := a.Deposit(decimal.NewFromInt(1), testPIN); err != nil {
					t.Errorf("Deposit: %v", err)
					return
				}
			}
		}()
	}
	for i := 0; i < 10; i++ {
		<-done
	}

	if !a.Balance().Equal(decimal.NewFromInt(200)) {
		t.Fatalf("balance = %s, want 200", a.Balance())
	}
	if len(a.GetTransactions()) != 200 {
		t.Fatalf("expected 200 ledger entries, got %d", len(a.GetTransactions()))
	}
}

// openTestAccount gives every account the same owner; make sure the last
// transaction timestamp survives a quick sequence of operations in order.
func TestLedgerOrderIsAppendOrder(t *testing.T) {
	b := newTestBank(t)
	a := openTestAccount(t, b, 1000, "PLN")

	a.Deposit(decimal.NewFromInt(1), testPIN)
	a.Withdraw(decimal.NewFromInt(2), testPIN)
	a.Deposit(decimal.NewFromInt(3), testPIN)

	txs := a.GetTransactions()
	wantTypes := []TransactionType{TxDeposit, TxWithdraw, TxDeposit}
	for i, want := range wantTypes {
		if txs[i].Type != want {
			t.Fatalf("txs[%d].Type = %s, want %s", i, txs[i].Type, want)
		}
	}
	for i := 1; i < len(txs); i++ {
		if txs[i].Date.Before(txs[i-1].Date) {
			t.Fatal("ledger dates are not monotonic")
		}
	}
}

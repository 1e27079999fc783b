package bank

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/wisentbank/wisent/auth"
	"github.com/wisentbank/wisent/errs"
)

// UserParams is the signup input. Validation is fail-fast: the returned
// error names the first violating field.
type UserParams struct {
	ID       int       `validate:"gte=0"`
	Name     string    `validate:"required,person_name"`
	LastName string    `validate:"required,person_name"`
	Email    string    `validate:"required,email"`
	Password string    `validate:"required,password_strength"`
	Phone    string    `validate:"required,phone_pl"`
	Role     auth.Role `validate:"omitempty,oneof=user admin"`

	// BcryptCost overrides the password hashing cost; 0 selects the
	// bcrypt default.
	BcryptCost int `validate:"omitempty,gte=4,lte=31"`
}

// User is a validated identity plus a permission-checked facade over its
// accounts. The profile is immutable after signup; only the account set
// changes. Accounts are referenced by number and resolved through the
// owning bank.
type User struct {
	id           int
	name         string
	lastName     string
	email        string
	passwordHash string
	phone        string
	role         auth.Role

	mu       sync.Mutex
	accounts map[string]*Bank // account number -> bank holding the account
}

// NewUser validates the signup parameters and builds the user. Names are
// trimmed and title-cased; the phone number is stored as +48 XXX-XXX-XXX;
// the password is stored as a bcrypt hash only.
func NewUser(p UserParams) (*User, error) {
	if err := firstViolation(validate.Struct(p)); err != nil {
		return nil, err
	}
	hash, err := auth.HashPassword(p.Password, p.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	role := p.Role
	if role == "" {
		role = auth.RoleUser
	}
	// Casers are stateful and must not be shared between goroutines.
	caser := cases.Title(language.Polish)
	return &User{
		id:           p.ID,
		name:         caser.String(strings.TrimSpace(p.Name)),
		lastName:     caser.String(strings.TrimSpace(p.LastName)),
		email:        p.Email,
		passwordHash: hash,
		phone:        formatPhone(p.Phone),
		role:         role,
		accounts:     make(map[string]*Bank),
	}, nil
}

// formatPhone renders a validated 9-digit number as +48 XXX-XXX-XXX.
func formatPhone(phone string) string {
	return fmt.Sprintf("+48 %s-%s-%s", phone[:3], phone[3:6], phone[6:])
}

// ID returns the user's unique id.
func (u *User) ID() int { return u.id }

// Name returns the stored first name.
func (u *User) Name() string { return u.name }

// LastName returns the stored last name.
func (u *User) LastName() string { return u.lastName }

// Email returns the user's email address.
func (u *User) Email() string { return u.email }

// Phone returns the formatted phone number.
func (u *User) Phone() string { return u.phone }

// Role returns the user's role.
func (u *User) Role() auth.Role { return u.role }

// AccountNumbers returns the numbers of all accounts the user owns.
func (u *User) AccountNumbers() []string {
	u.mu.Lock()
	defer u.mu.Unlock()
	numbers := make([]string, 0, len(u.accounts))
	for number := range u.accounts {
		numbers = append(numbers, number)
	}
	return numbers
}

// auth.Subject implementation.

func (u *User) SubjectID() int              { return u.id }
func (u *User) SubjectEmail() string        { return u.email }
func (u *User) SubjectPasswordHash() string { return u.passwordHash }
func (u *User) SubjectRole() auth.Role      { return u.role }

func (u *User) requireLogin(a *auth.Auth) error {
	if !a.IsLoggedIn(u) {
		return fmt.Errorf("%w: user not logged in", errs.ErrAuthentication)
	}
	return nil
}

func (u *User) requireAdmin(a *auth.Auth) error {
	if err := u.requireLogin(a); err != nil {
		return err
	}
	if !a.IsAdmin(u) {
		return fmt.Errorf("%w: admin role required", errs.ErrAuthorization)
	}
	return nil
}

// account resolves one of the user's accounts by number.
func (u *User) account(number string) (*Account, error) {
	u.mu.Lock()
	b, ok := u.accounts[number]
	u.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: account %s", errs.ErrNotFound, number)
	}
	acct, ok := b.Account(number)
	if !ok {
		return nil, fmt.Errorf("%w: account %s", errs.ErrNotFound, number)
	}
	return acct, nil
}

// OpenBankAccount opens a new account at b. A user may hold at most one
// usable account per bank: an existing ACTIVE or INACTIVE account blocks
// the request, and a LOCKED one must be unlocked first. A CLOSED account
// does not count. The user is registered with the bank when new.
func (u *User) OpenBankAccount(a *auth.Auth, b *Bank, pin, currencyCode string, balance decimal.Decimal) (*Account, error) {
	if err := u.requireLogin(a); err != nil {
		return nil, err
	}

	u.mu.Lock()
	for number, ownerBank := range u.accounts {
		if ownerBank != b {
			continue
		}
		acct, ok := b.Account(number)
		if !ok {
			continue
		}
		switch acct.Status() {
		case StatusActive, StatusInactive:
			u.mu.Unlock()
			return nil, fmt.Errorf("%w: you already have an account at this bank", errs.ErrValidation)
		case StatusLocked:
			u.mu.Unlock()
			return nil, fmt.Errorf("%w: you have a locked account at this bank, unlock it first", errs.ErrValidation)
		}
	}
	u.mu.Unlock()

	b.AddUser(u)
	acct, err := NewAccount(b, u.id, pin, currencyCode, balance)
	if err != nil {
		return nil, err
	}

	u.mu.Lock()
	u.accounts[acct.Number()] = b
	u.mu.Unlock()
	return acct, nil
}

// CloseBankAccount closes one of the user's accounts.
func (u *User) CloseBankAccount(a *auth.Auth, number, pin string) error {
	if err := u.requireLogin(a); err != nil {
		return err
	}
	acct, err := u.account(number)
	if err != nil {
		return err
	}
	return acct.Close(pin)
}

// GetBalance returns the balance and currency of one account.
func (u *User) GetBalance(a *auth.Auth, number string) (decimal.Decimal, string, error) {
	if err := u.requireLogin(a); err != nil {
		return decimal.Zero, "", err
	}
	acct, err := u.account(number)
	if err != nil {
		return decimal.Zero, "", err
	}
	return acct.Balance(), acct.Currency(), nil
}

// GetTotalBalance aggregates the user's balances per currency, rounded to
// 2 decimals.
func (u *User) GetTotalBalance(a *auth.Auth) (map[string]decimal.Decimal, error) {
	if err := u.requireLogin(a); err != nil {
		return nil, err
	}

	u.mu.Lock()
	numbers := make(map[string]*Bank, len(u.accounts))
	for number, b := range u.accounts {
		numbers[number] = b
	}
	u.mu.Unlock()

	totals := make(map[string]decimal.Decimal)
	for number, b := range numbers {
		acct, ok := b.Account(number)
		if !ok {
			continue
		}
		code := acct.Currency()
		totals[code] = totals[code].Add(acct.Balance())
	}
	for code, total := range totals {
		totals[code] = total.Round(2)
	}
	return totals, nil
}

// Deposit adds funds to one of the user's accounts.
func (u *User) Deposit(a *auth.Auth, number string, amount decimal.Decimal, pin string) error {
	if err := u.requireLogin(a); err != nil {
		return err
	}
	acct, err := u.account(number)
	if err != nil {
		return err
	}
	return acct.Deposit(amount, pin)
}

// Withdraw removes funds from one of the user's accounts.
func (u *User) Withdraw(a *auth.Auth, number string, amount decimal.Decimal, pin string) error {
	if err := u.requireLogin(a); err != nil {
		return err
	}
	acct, err := u.account(number)
	if err != nil {
		return err
	}
	return acct.Withdraw(amount, pin)
}

// Transfer moves funds from one of the user's accounts to any account at
// toBank.
func (u *User) Transfer(a *auth.Auth, amount decimal.Decimal, fromNumber, toNumber, pin string, toBank *Bank) error {
	if err := u.requireLogin(a); err != nil {
		return err
	}
	acct, err := u.account(fromNumber)
	if err != nil {
		return err
	}
	return acct.Transfer(amount, toNumber, toBank, pin)
}

// ChangePIN replaces the PIN on one of the user's accounts.
func (u *User) ChangePIN(a *auth.Auth, number, oldPIN, newPIN string) error {
	if err := u.requireLogin(a); err != nil {
		return err
	}
	acct, err := u.account(number)
	if err != nil {
		return err
	}
	return acct.ChangePIN(oldPIN, newPIN)
}

// ChangeCurrency converts one of the user's accounts to a new currency.
func (u *User) ChangeCurrency(a *auth.Auth, number, newCurrency, pin string) error {
	if err := u.requireLogin(a); err != nil {
		return err
	}
	acct, err := u.account(number)
	if err != nil {
		return err
	}
	return acct.ChangeCurrency(newCurrency, pin)
}

// UnlockAccount unlocks one of the user's accounts.
func (u *User) UnlockAccount(a *auth.Auth, number, pin string) error {
	if err := u.requireLogin(a); err != nil {
		return err
	}
	acct, err := u.account(number)
	if err != nil {
		return err
	}
	return acct.Unlock(pin)
}

// CalculateInterest computes the interest one account would accrue over
// the given number of days.
func (u *User) CalculateInterest(a *auth.Auth, number string, days int) (decimal.Decimal, error) {
	if err := u.requireLogin(a); err != nil {
		return decimal.Zero, err
	}
	acct, err := u.account(number)
	if err != nil {
		return decimal.Zero, err
	}
	return acct.CalculateInterest(days), nil
}

// GetTransactions returns the ledger of one of the user's accounts.
func (u *User) GetTransactions(a *auth.Auth, number string) ([]Transaction, error) {
	if err := u.requireLogin(a); err != nil {
		return nil, err
	}
	acct, err := u.account(number)
	if err != nil {
		return nil, err
	}
	return acct.GetTransactions(), nil
}

// GetLatestTransaction returns the most recent ledger record of one of the
// user's accounts.
func (u *User) GetLatestTransaction(a *auth.Auth, number string) (Transaction, error) {
	if err := u.requireLogin(a); err != nil {
		return Transaction{}, err
	}
	acct, err := u.account(number)
	if err != nil {
		return Transaction{}, err
	}
	return acct.GetLatestTransaction()
}

// GetTransactionsByDate returns ledger records of one of the user's
// accounts within the inclusive date range.
func (u *User) GetTransactionsByDate(a *auth.Auth, number string, from, to time.Time) ([]Transaction, error) {
	if err := u.requireLogin(a); err != nil {
		return nil, err
	}
	acct, err := u.account(number)
	if err != nil {
		return nil, err
	}
	return acct.GetTransactionsByDate(from, to)
}

// GetUser looks up a user by id. Admin only.
func (u *User) GetUser(a *auth.Auth, b *Bank, id int) (*User, error) {
	if err := u.requireAdmin(a); err != nil {
		return nil, err
	}
	return b.GetUser(id)
}

// GetUsers lists all users registered with the bank. Admin only.
func (u *User) GetUsers(a *auth.Auth, b *Bank) ([]*User, error) {
	if err := u.requireAdmin(a); err != nil {
		return nil, err
	}
	return b.GetUsers(), nil
}

// UpdateCurrencies refreshes the bank's rate table. Admin only.
func (u *User) UpdateCurrencies(ctx context.Context, a *auth.Auth, b *Bank) error {
	if err := u.requireAdmin(a); err != nil {
		return err
	}
	return b.UpdateCurrencies(ctx)
}

// AccountsByStatus returns the user's own accounts in the given status.
// Admin only.
func (u *User) AccountsByStatus(a *auth.Auth, status AccountStatus) ([]*Account, error) {
	if err := u.requireAdmin(a); err != nil {
		return nil, err
	}

	u.mu.Lock()
	defer u.mu.Unlock()
	var out []*Account
	for number, b := range u.accounts {
		acct, ok := b.Account(number)
		if !ok {
			continue
		}
		if acct.Status() == status {
			out = append(out, acct)
		}
	}
	return out, nil
}

package main

import (
	"context"
	"log"

	"github.com/shopspring/decimal"

	"github.com/wisentbank/wisent/auth"
	"github.com/wisentbank/wisent/bank"
	"github.com/wisentbank/wisent/config"
	"github.com/wisentbank/wisent/currency"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	provider := currency.NewNBPClient(cfg.RatesURL, cfg.RatesTimeout)

	ctx := context.Background()
	b, err := bank.New(ctx, "Wisent Bank", "1120", provider)
	if err != nil {
		log.Fatalf("Failed to create bank: %v", err)
	}
	log.Printf("Bank %s ready, %d currencies loaded", b.Name(), len(b.Currencies()))

	sessions := auth.New([]byte(cfg.JWTSecret), cfg.SessionTTL)

	alice, err := bank.NewUser(bank.UserParams{
		ID:         1,
		Name:       "alicja",
		LastName:   "kowalska",
		Email:      "alicja.kowalska@example.com",
		Password:   "Str0ng!Passw0rd",
		Phone:      "501234567",
		BcryptCost: cfg.BcryptCost,
	})
	if err != nil {
		log.Fatalf("Failed to create user: %v", err)
	}

	bob, err := bank.NewUser(bank.UserParams{
		ID:         2,
		Name:       "bartosz",
		LastName:   "nowak",
		Email:      "bartosz.nowak@example.com",
		Password:   "An0ther!Secret",
		Phone:      "601987654",
		BcryptCost: cfg.BcryptCost,
	})
	if err != nil {
		log.Fatalf("Failed to create user: %v", err)
	}

	if _, err := sessions.Login(alice, alice.Email(), "Str0ng!Passw0rd"); err != nil {
		log.Fatalf("Login failed: %v", err)
	}
	if _, err := sessions.Login(bob, bob.Email(), "An0ther!Secret"); err != nil {
		log.Fatalf("Login failed: %v", err)
	}

	src, err := alice.OpenBankAccount(sessions, b, "123456", "PLN", decimal.NewFromInt(1000))
	if err != nil {
		log.Fatalf("Failed to open account: %v", err)
	}
	dst, err := bob.OpenBankAccount(sessions, b, "654321", "USD", decimal.NewFromInt(200))
	if err != nil {
		log.Fatalf("Failed to open account: %v", err)
	}
	log.Printf("Opened %s and %s", src, dst)

	if err := alice.Deposit(sessions, src.Number(), decimal.NewFromInt(500), "123456"); err != nil {
		log.Fatalf("Deposit failed: %v", err)
	}
	if err := alice.Transfer(sessions, decimal.NewFromInt(500), src.Number(), dst.Number(), "123456", b); err != nil {
		log.Fatalf("Transfer failed: %v", err)
	}
	log.Printf("After transfer: %s | %s", src, dst)

	txs, err := alice.GetTransactions(sessions, src.Number())
	if err != nil {
		log.Fatalf("Failed to read ledger: %v", err)
	}
	for _, tx := range txs {
		log.Printf("%s %s %s %s", tx.Date.Format("2006-01-02 15:04:05"), tx.Type, tx.Amount.StringFixed(2), tx.Currency)
	}

	totals, err := alice.GetTotalBalance(sessions)
	if err != nil {
		log.Fatalf("Failed to aggregate balances: %v", err)
	}
	for code, total := range totals {
		log.Printf("Total %s: %s", code, total.StringFixed(2))
	}
}

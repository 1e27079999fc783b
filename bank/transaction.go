package bank

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionType classifies a ledger record.
type TransactionType string

const (
	TxDeposit          TransactionType = "deposit"
	TxWithdraw         TransactionType = "withdraw"
	TxTransfer         TransactionType = "transfer"
	TxIncomingTransfer TransactionType = "incoming_transfer"
	TxCurrencyChange   TransactionType = "currency_change"
)

// Transaction is an immutable ledger record. Amount is expressed in the
// account's currency at the time of the operation; From/To and the
// rate pair are only set for the transaction types that need them.
type Transaction struct {
	ID       uuid.UUID       `json:"id"`
	Type     TransactionType `json:"type"`
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
	From     string          `json:"from,omitempty"`
	To       string          `json:"to,omitempty"`

	// Currency-change records carry the rate pair used for conversion.
	FromCurrency string          `json:"fromCurrency,omitempty"`
	ToCurrency   string          `json:"toCurrency,omitempty"`
	RateFrom     decimal.Decimal `json:"rateFrom,omitempty"`
	RateTo       decimal.Decimal `json:"rateTo,omitempty"`

	Date time.Time `json:"date"`
}

package wallet

import "time"

const (
	TxTypeDeposit    = "deposit"
	TxTypeWithdrawal = "withdrawal"
	TxTypeBet        = "bet"
	TxTypePayout     = "payout"
	TxTypeBonus      = "bonus"
)

const (
	TxStatusPending   = "pending"
	TxStatusCompleted = "completed"
	TxStatusFailed    = "failed"
)

type Wallet struct {
	ID           int       `db:"id" json:"id"`
	UserID       int       `db:"user_id" json:"user_id"`
	BalanceCents int64     `db:"balance_cents" json:"balance_cents"`
	Currency     string    `db:"currency" json:"currency"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// Transaction is the ledger entry paired with every balance mutation.
// AmountCents is signed: negative for debits, positive for credits.
type Transaction struct {
	ID           int       `db:"id" json:"id"`
	WalletID     int       `db:"wallet_id" json:"wallet_id"`
	AmountCents  int64     `db:"amount_cents" json:"amount_cents"`
	Type         string    `db:"type" json:"type"`
	Status       string    `db:"status" json:"status"`
	BalanceAfter int64     `db:"balance_after" json:"balance_after"`
	Reference    *string   `db:"reference" json:"reference,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

package wallet

import (
	"context"

	"github.com/jmoiron/sqlx"
)

type Ledger interface {
	GetOrCreateWallet(ctx context.Context, userID int) (*Wallet, error)
	// Debit removes amountCents from the user's balance, failing with
	// ErrInsufficientFunds when the balance does not cover it.
	Debit(ctx context.Context, userID int, amountCents int64, txType, reference string) error
	Credit(ctx context.Context, userID int, amountCents int64, txType, reference string) error
	// DebitTx and CreditTx run inside a caller-owned transaction so a
	// balance mutation can commit atomically with a bet state change.
	DebitTx(ctx context.Context, tx *sqlx.Tx, userID int, amountCents int64, txType, reference string) error
	CreditTx(ctx context.Context, tx *sqlx.Tx, userID int, amountCents int64, txType, reference string) error
	GetTransactions(ctx context.Context, userID int, limit, offset int) ([]Transaction, error)
}

package wallet

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
)

var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInvalidAmount     = errors.New("amount must be positive")
)

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) GetOrCreateWallet(ctx context.Context, userID int) (*Wallet, error) {
	w := &Wallet{}
	err := r.db.GetContext(ctx, w, `SELECT * FROM wallets WHERE user_id = $1`, userID)
	if err == nil {
		return w, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	err = r.db.QueryRowxContext(ctx,
		`INSERT INTO wallets (user_id)
		 VALUES ($1)
		 RETURNING id, user_id, balance_cents, currency, created_at, updated_at`,
		userID,
	).StructScan(w)
	if err != nil {
		return nil, err
	}

	return w, nil
}

func (r *Repository) Debit(ctx context.Context, userID int, amountCents int64, txType, reference string) error {
	if amountCents <= 0 {
		return ErrInvalidAmount
	}
	return r.apply(ctx, userID, -amountCents, txType, reference)
}

func (r *Repository) Credit(ctx context.Context, userID int, amountCents int64, txType, reference string) error {
	if amountCents <= 0 {
		return ErrInvalidAmount
	}
	return r.apply(ctx, userID, amountCents, txType, reference)
}

func (r *Repository) apply(ctx context.Context, userID int, delta int64, txType, reference string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := applyInTx(ctx, tx, userID, delta, txType, reference); err != nil {
		return err
	}

	return tx.Commit()
}

func (r *Repository) DebitTx(ctx context.Context, tx *sqlx.Tx, userID int, amountCents int64, txType, reference string) error {
	if amountCents <= 0 {
		return ErrInvalidAmount
	}
	return applyInTx(ctx, tx, userID, -amountCents, txType, reference)
}

func (r *Repository) CreditTx(ctx context.Context, tx *sqlx.Tx, userID int, amountCents int64, txType, reference string) error {
	if amountCents <= 0 {
		return ErrInvalidAmount
	}
	return applyInTx(ctx, tx, userID, amountCents, txType, reference)
}

// applyInTx locks the wallet row, adjusts the balance and appends the
// ledger entry. The row lock serializes concurrent mutations per wallet.
func applyInTx(ctx context.Context, tx *sqlx.Tx, userID int, delta int64, txType, reference string) error {
	var w Wallet
	err := tx.QueryRowxContext(ctx,
		`SELECT id, user_id, balance_cents, currency, created_at, updated_at
		 FROM wallets
		 WHERE user_id = $1
		 FOR UPDATE`,
		userID,
	).StructScan(&w)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = tx.QueryRowxContext(ctx,
				`INSERT INTO wallets (user_id)
				 VALUES ($1)
				 RETURNING id, user_id, balance_cents, currency, created_at, updated_at`,
				userID,
			).StructScan(&w)
			if err != nil {
				return err
			}
		} else {
			return err
		}
	}

	newBalance := w.BalanceCents + delta
	if newBalance < 0 {
		return ErrInsufficientFunds
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE wallets
		 SET balance_cents = $1, updated_at = NOW()
		 WHERE id = $2`,
		newBalance, w.ID,
	)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO wallet_transactions (wallet_id, amount_cents, type, status, balance_after, reference)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		w.ID, delta, txType, TxStatusCompleted, newBalance, nullable(reference),
	)
	if err != nil {
		return err
	}

	return nil
}

func (r *Repository) GetTransactions(ctx context.Context, userID int, limit, offset int) ([]Transaction, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	var walletID int
	err := r.db.GetContext(ctx, &walletID, `SELECT id FROM wallets WHERE user_id = $1`, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return []Transaction{}, nil
		}
		return nil, err
	}

	var txs []Transaction
	err = r.db.SelectContext(ctx, &txs, `
		SELECT id, wallet_id, amount_cents, type, status, balance_after, reference, created_at
		FROM wallet_transactions
		WHERE wallet_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, walletID, limit, offset)
	if err != nil {
		return nil, err
	}

	return txs, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

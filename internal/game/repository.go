package game

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
)

var ErrRoundNotFound = errors.New("round not found")

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) CreateRound(ctx context.Context, round *Round) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO rounds (id, status, crash_point, multiplier, server_seed, seed_hash)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		round.ID, round.Status, round.CrashPoint, round.Multiplier, round.ServerSeed, round.SeedHash,
	)
	return err
}

func (r *Repository) StartRound(ctx context.Context, roundID string, startedAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE rounds SET status = $1, started_at = $2 WHERE id = $3`,
		RoundFlying, startedAt, roundID,
	)
	return err
}

func (r *Repository) FinishRound(ctx context.Context, round *Round) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE rounds
		 SET status = $1, multiplier = $2, total_bets = $3, total_pool_cents = $4, crashed_at = $5
		 WHERE id = $6`,
		round.Status, round.Multiplier, round.TotalBets, round.TotalPoolCents, round.CrashedAt, round.ID,
	)
	return err
}

func (r *Repository) GetRound(ctx context.Context, id string) (*Round, error) {
	var round Round
	err := r.db.GetContext(ctx, &round, `SELECT * FROM rounds WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRoundNotFound
		}
		return nil, err
	}
	return &round, nil
}

func (r *Repository) InsertBetTx(ctx context.Context, tx *sqlx.Tx, b *Bet) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO bets (id, round_id, user_id, amount_cents, auto_cashout, status)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		b.ID, b.RoundID, b.UserID, b.AmountCents, b.AutoCashout, b.Status,
	)
	return err
}

func (r *Repository) ResolveBetTx(ctx context.Context, tx *sqlx.Tx, b *Bet) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE bets
		 SET status = $1, cashout_multiplier = $2, payout_cents = $3, resolved_at = $4
		 WHERE id = $5 AND status = $6`,
		b.Status, b.CashoutMultiplier, b.PayoutCents, b.ResolvedAt, b.ID, BetActive,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrBetAlreadyResolved
	}
	return nil
}

func (r *Repository) ResolveActiveBets(ctx context.Context, roundID string, resolvedAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE bets SET status = $1, resolved_at = $2 WHERE round_id = $3 AND status = $4`,
		BetCrashed, resolvedAt, roundID, BetActive,
	)
	return err
}

func (r *Repository) FailOpenRounds(ctx context.Context) (int64, error) {
	now := time.Now().UTC()

	_, err := r.db.ExecContext(ctx,
		`UPDATE bets SET status = $1, resolved_at = $2
		 WHERE status = $3
		   AND round_id IN (SELECT id FROM rounds WHERE status IN ($4, $5))`,
		BetCrashed, now, BetActive, RoundWaiting, RoundFlying,
	)
	if err != nil {
		return 0, err
	}

	res, err := r.db.ExecContext(ctx,
		`UPDATE rounds SET status = $1, crashed_at = $2 WHERE status IN ($3, $4)`,
		RoundCrashed, now, RoundWaiting, RoundFlying,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *Repository) UserBets(ctx context.Context, userID, page, limit int) ([]Bet, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if page <= 0 {
		page = 1
	}

	var total int64
	err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM bets WHERE user_id = $1`, userID)
	if err != nil {
		return nil, 0, err
	}

	var bets []Bet
	err = r.db.SelectContext(ctx, &bets, `
		SELECT * FROM bets
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, (page-1)*limit)
	if err != nil {
		return nil, 0, err
	}

	return bets, total, nil
}

func (r *Repository) Leaderboard(ctx context.Context, since time.Time, limit int) ([]LeaderboardEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}

	var entries []LeaderboardEntry
	err := r.db.SelectContext(ctx, &entries, `
		SELECT u.id AS user_id,
		       u.name,
		       COALESCE(SUM(b.payout_cents), 0) AS total_winnings_cents,
		       COUNT(b.id) AS total_bets,
		       COALESCE(MAX(b.payout_cents), 0) AS biggest_win_cents
		FROM bets b
		JOIN users u ON u.id = b.user_id
		WHERE b.resolved_at >= $1
		GROUP BY u.id, u.name
		ORDER BY total_winnings_cents DESC
		LIMIT $2
	`, since, limit)
	if err != nil {
		return nil, err
	}

	return entries, nil
}

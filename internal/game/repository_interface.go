package game

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
)

// Store persists rounds and bets. Bet inserts and resolutions run inside
// caller-owned transactions so they commit atomically with the matching
// wallet mutation.
type Store interface {
	CreateRound(ctx context.Context, r *Round) error
	StartRound(ctx context.Context, roundID string, startedAt time.Time) error
	FinishRound(ctx context.Context, r *Round) error
	GetRound(ctx context.Context, id string) (*Round, error)

	InsertBetTx(ctx context.Context, tx *sqlx.Tx, b *Bet) error
	ResolveBetTx(ctx context.Context, tx *sqlx.Tx, b *Bet) error
	// ResolveActiveBets marks every still-active bet of the round as
	// crashed; used at crash and during recovery.
	ResolveActiveBets(ctx context.Context, roundID string, resolvedAt time.Time) error

	// FailOpenRounds force-crashes rounds left waiting or flying by a
	// previous process, at their last persisted multiplier.
	FailOpenRounds(ctx context.Context) (int64, error)

	UserBets(ctx context.Context, userID, page, limit int) ([]Bet, int64, error)
	Leaderboard(ctx context.Context, since time.Time, limit int) ([]LeaderboardEntry, error)
}

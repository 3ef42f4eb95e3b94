package game

import (
	"time"

	"github.com/shopspring/decimal"
)

type RoundStatus string

const (
	RoundWaiting RoundStatus = "waiting"
	RoundFlying  RoundStatus = "flying"
	RoundCrashed RoundStatus = "crashed"
)

type BetStatus string

const (
	BetActive    BetStatus = "active"
	BetCashedOut BetStatus = "cashed_out"
	BetCrashed   BetStatus = "crashed"
)

// Round is one play of the crash game. CrashPoint is committed when the
// round is created and never recomputed; ServerSeed stays hidden until
// the crash reveals it.
type Round struct {
	ID             string          `db:"id" json:"roundId"`
	Status         RoundStatus     `db:"status" json:"status"`
	CrashPoint     decimal.Decimal `db:"crash_point" json:"crashPoint"`
	Multiplier     decimal.Decimal `db:"multiplier" json:"multiplier"`
	ServerSeed     string          `db:"server_seed" json:"serverSeed"`
	SeedHash       string          `db:"seed_hash" json:"seedHash"`
	TotalBets      int             `db:"total_bets" json:"totalBets"`
	TotalPoolCents int64           `db:"total_pool_cents" json:"totalPool"`
	StartedAt      *time.Time      `db:"started_at" json:"startedAt,omitempty"`
	CrashedAt      *time.Time      `db:"crashed_at" json:"crashedAt,omitempty"`
	CreatedAt      time.Time       `db:"created_at" json:"createdAt"`
}

type Bet struct {
	ID                string           `db:"id"`
	RoundID           string           `db:"round_id"`
	UserID            int              `db:"user_id"`
	AmountCents       int64            `db:"amount_cents"`
	AutoCashout       *decimal.Decimal `db:"auto_cashout"`
	Status            BetStatus        `db:"status"`
	CashoutMultiplier *decimal.Decimal `db:"cashout_multiplier"`
	PayoutCents       *int64           `db:"payout_cents"`
	CreatedAt         time.Time        `db:"created_at"`
	ResolvedAt        *time.Time       `db:"resolved_at"`
}

type LeaderboardEntry struct {
	UserID             int    `db:"user_id" json:"userId"`
	Name               string `db:"name" json:"name"`
	TotalWinningsCents int64  `db:"total_winnings_cents" json:"totalWinnings"`
	TotalBets          int    `db:"total_bets" json:"totalBets"`
	BiggestWinCents    int64  `db:"biggest_win_cents" json:"biggestWin"`
}

// Event is a push-channel message. Payload keys are camelCase, matching
// what the web client parses.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

const (
	EventGameStart  = "game:start"
	EventMultiplier = "multiplier:update"
	EventGameCrash  = "game:crash"
	EventBetPlaced  = "bet:placed"
	EventBetCashout = "bet:cashout"
)

// Snapshot is the synchronous view of the current round for late joiners.
type Snapshot struct {
	RoundID       string      `json:"roundId"`
	Status        RoundStatus `json:"status"`
	Multiplier    float64     `json:"multiplier"`
	TotalBets     int         `json:"totalBets"`
	TotalPool     int64       `json:"totalPool"`
	SeedHash      string      `json:"seedHash"`
	BettingEndsAt *time.Time  `json:"bettingEndsAt,omitempty"`
}

// BetView is the API shape of a bet on the /betting endpoints.
type BetView struct {
	ID                string     `json:"betId"`
	RoundID           string     `json:"roundId"`
	Amount            int64      `json:"amount"`
	AutoCashout       *float64   `json:"autoCashout,omitempty"`
	Status            BetStatus  `json:"status"`
	CashoutMultiplier *float64   `json:"cashoutMultiplier,omitempty"`
	Payout            *int64     `json:"payout,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
	ResolvedAt        *time.Time `json:"resolvedAt,omitempty"`
}

func (b *Bet) View() BetView {
	v := BetView{
		ID:         b.ID,
		RoundID:    b.RoundID,
		Amount:     b.AmountCents,
		Status:     b.Status,
		Payout:     b.PayoutCents,
		CreatedAt:  b.CreatedAt,
		ResolvedAt: b.ResolvedAt,
	}
	if b.AutoCashout != nil {
		f := b.AutoCashout.InexactFloat64()
		v.AutoCashout = &f
	}
	if b.CashoutMultiplier != nil {
		f := b.CashoutMultiplier.InexactFloat64()
		v.CashoutMultiplier = &f
	}
	return v
}

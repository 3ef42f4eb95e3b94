package game

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"aviator/internal/config"
	"aviator/internal/logger"
	"aviator/internal/metrics"
	"aviator/internal/wallet"
)

// TxBeginner is what the engine needs from *sqlx.DB to pair wallet
// mutations with bet rows in one transaction.
type TxBeginner interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

// Engine owns the single live round. All reads and writes of round phase,
// multiplier and the bet registry go through its mutex; HTTP handlers and
// the tick loop never touch that state directly.
type Engine struct {
	cfg    *config.Config
	db     TxBeginner
	store  Store
	ledger wallet.Ledger
	hub    *Hub
	recent *RecentCrashes

	// crashFn derives the committed crash point; replaced in tests.
	crashFn func(serverSeed, roundID string) decimal.Decimal

	mu            sync.Mutex
	round         *Round
	bets          map[string]*Bet
	betByUser     map[int]string
	bettingEndsAt time.Time
}

func NewEngine(cfg *config.Config, db TxBeginner, store Store, ledger wallet.Ledger, hub *Hub, recent *RecentCrashes) *Engine {
	e := &Engine{
		cfg:       cfg,
		db:        db,
		store:     store,
		ledger:    ledger,
		hub:       hub,
		recent:    recent,
		bets:      make(map[string]*Bet),
		betByUser: make(map[int]string),
	}
	e.crashFn = func(serverSeed, roundID string) decimal.Decimal {
		return CrashPoint(serverSeed, roundID, cfg.HouseEdge, cfg.MaxMultiplier)
	}
	return e
}

// Run drives rounds until the context is cancelled. Any round left open
// by a previous process is force-crashed first: after a fault the engine
// recovers forward, it never resumes a flight.
func (e *Engine) Run(ctx context.Context) {
	if n, err := e.store.FailOpenRounds(ctx); err != nil {
		logger.Errorf("failed to sweep unfinished rounds: %v", err)
	} else if n > 0 {
		logger.Infof("force-crashed %d unfinished rounds from previous run", n)
	}

	for ctx.Err() == nil {
		e.runRound(ctx)
	}
}

func (e *Engine) runRound(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("round loop panic: %v", r)
			e.forceCrash()
			e.sleep(ctx, e.cfg.CrashCooldown)
		}
	}()

	if err := e.openRound(ctx); err != nil {
		logger.Errorf("failed to open round: %v", err)
		e.sleep(ctx, e.cfg.CrashCooldown)
		return
	}

	if !e.sleep(ctx, e.cfg.BettingWindow) {
		e.forceCrash()
		return
	}

	if err := e.startFlight(ctx); err != nil {
		logger.Errorf("failed to start flight: %v", err)
		e.forceCrash()
		return
	}

	ticker := time.NewTicker(e.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			e.forceCrash()
			return
		case now := <-ticker.C:
			if e.tick(now) {
				e.sleep(ctx, e.cfg.CrashCooldown)
				return
			}
		}
	}
}

// sleep waits for d, returning false if the context ended first.
func (e *Engine) sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

type gameStartPayload struct {
	RoundID       string    `json:"roundId"`
	SeedHash      string    `json:"seedHash"`
	BettingEndsAt time.Time `json:"bettingEndsAt"`
}

func (e *Engine) openRound(ctx context.Context) error {
	seed := NewServerSeed()
	round := &Round{
		ID:         uuid.NewString(),
		Status:     RoundWaiting,
		Multiplier: decimal.NewFromInt(1),
		ServerSeed: seed,
		SeedHash:   SeedHash(seed),
		CreatedAt:  time.Now().UTC(),
	}
	// Committed before any bet is taken and never recomputed.
	round.CrashPoint = e.crashFn(seed, round.ID)

	if err := e.store.CreateRound(ctx, round); err != nil {
		return err
	}

	e.mu.Lock()
	e.round = round
	e.bets = make(map[string]*Bet)
	e.betByUser = make(map[int]string)
	e.bettingEndsAt = time.Now().Add(e.cfg.BettingWindow)
	endsAt := e.bettingEndsAt
	e.mu.Unlock()

	e.hub.Broadcast(EventGameStart, gameStartPayload{
		RoundID:       round.ID,
		SeedHash:      round.SeedHash,
		BettingEndsAt: endsAt,
	})
	return nil
}

func (e *Engine) startFlight(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.round == nil || e.round.Status != RoundWaiting {
		return ErrNoActiveRound
	}

	now := time.Now().UTC()
	e.round.Status = RoundFlying
	e.round.StartedAt = &now

	return e.store.StartRound(ctx, e.round.ID, now)
}

type multiplierPayload struct {
	Multiplier float64 `json:"multiplier"`
}

// tick advances the multiplier, settles due auto-cashouts and crashes the
// round once the committed crash point is reached. Returns true on crash.
func (e *Engine) tick(now time.Time) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.round == nil || e.round.Status != RoundFlying {
		return e.round == nil || e.round.Status == RoundCrashed
	}

	mult := MultiplierAt(now.Sub(*e.round.StartedAt), e.cfg.GrowthRate)
	crashed := mult.GreaterThanOrEqual(e.round.CrashPoint)
	if crashed {
		mult = e.round.CrashPoint
	}
	e.round.Multiplier = mult

	// Auto-cashouts settle at their target value, not the tick value, so
	// a coarse tick cannot shortchange a 2.00x target that was crossed
	// between ticks.
	for _, b := range e.bets {
		if b.Status != BetActive || b.AutoCashout == nil {
			continue
		}
		if b.AutoCashout.LessThanOrEqual(mult) {
			if err := e.settleCashout(*b.AutoCashout, b); err != nil {
				logger.Errorf("auto cashout failed for bet %s: %v", b.ID, err)
			}
		}
	}

	if crashed {
		e.crashLocked()
		return true
	}

	e.hub.Broadcast(EventMultiplier, multiplierPayload{Multiplier: mult.InexactFloat64()})
	return false
}

type crashPayload struct {
	RoundID    string  `json:"roundId"`
	CrashPoint float64 `json:"crashPoint"`
	ServerSeed string  `json:"serverSeed"`
}

// crashLocked freezes the round at its crash point and resolves every
// still-active bet as crashed. Callers hold e.mu.
func (e *Engine) crashLocked() {
	now := time.Now().UTC()
	e.round.Status = RoundCrashed
	e.round.CrashedAt = &now
	e.round.Multiplier = e.round.CrashPoint

	for _, b := range e.bets {
		if b.Status == BetActive {
			b.Status = BetCrashed
			b.ResolvedAt = &now
			metrics.RecordBetResolved(string(BetCrashed), 0)
		}
	}

	// Stakes were debited at placement; losses need no wallet work.
	// Persistence failures here cost history, not money.
	ctx := context.Background()
	if err := e.store.ResolveActiveBets(ctx, e.round.ID, now); err != nil {
		logger.Errorf("failed to persist crashed bets for round %s: %v", e.round.ID, err)
	}
	if err := e.store.FinishRound(ctx, e.round); err != nil {
		logger.Errorf("failed to persist round %s: %v", e.round.ID, err)
	}

	metrics.RecordRound(e.round.CrashPoint.InexactFloat64())
	if e.recent != nil {
		if err := e.recent.Push(ctx, e.round.CrashPoint); err != nil {
			logger.Errorf("failed to record crash point: %v", err)
		}
	}

	e.hub.Broadcast(EventGameCrash, crashPayload{
		RoundID:    e.round.ID,
		CrashPoint: e.round.CrashPoint.InexactFloat64(),
		ServerSeed: e.round.ServerSeed,
	})
}

// forceCrash ends the current round at its last known multiplier. Used on
// shutdown and after a tick-loop fault; the flight is never resumed.
func (e *Engine) forceCrash() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.round == nil || e.round.Status == RoundCrashed {
		return
	}
	e.round.CrashPoint = e.round.Multiplier
	e.crashLocked()
}

type betPlacedPayload struct {
	Amount    int64 `json:"amount"`
	TotalBets int   `json:"totalBets"`
	TotalPool int64 `json:"totalPool"`
}

// PlaceBet debits the stake and registers the bet on the waiting round.
// The wallet debit and the bet row commit in one transaction.
func (e *Engine) PlaceBet(ctx context.Context, userID int, amountCents int64, autoCashout *decimal.Decimal) (*Bet, error) {
	if amountCents < e.cfg.MinBetCents || amountCents > e.cfg.MaxBetCents {
		return nil, ErrBetAmountOutOfRange
	}
	if autoCashout != nil && autoCashout.LessThan(decimal.New(101, -2)) {
		return nil, ErrInvalidAutoCashout
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.round == nil || e.round.Status != RoundWaiting {
		return nil, ErrRoundNotAcceptingBets
	}
	if _, dup := e.betByUser[userID]; dup {
		return nil, ErrDuplicateActiveBet
	}

	b := &Bet{
		ID:          uuid.NewString(),
		RoundID:     e.round.ID,
		UserID:      userID,
		AmountCents: amountCents,
		AutoCashout: autoCashout,
		Status:      BetActive,
		CreatedAt:   time.Now().UTC(),
	}

	tx, err := e.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if err := e.ledger.DebitTx(ctx, tx, userID, amountCents, wallet.TxTypeBet, b.ID); err != nil {
		return nil, err
	}
	if err := e.store.InsertBetTx(ctx, tx, b); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	e.bets[b.ID] = b
	e.betByUser[userID] = b.ID
	e.round.TotalBets++
	e.round.TotalPoolCents += amountCents

	metrics.RecordBetPlaced(amountCents)
	metrics.RecordWalletTransaction(wallet.TxTypeBet)

	e.hub.Broadcast(EventBetPlaced, betPlacedPayload{
		Amount:    amountCents,
		TotalBets: e.round.TotalBets,
		TotalPool: e.round.TotalPoolCents,
	})
	e.hub.SendToUser(userID, EventBetPlaced, b.View())

	placed := *b
	return &placed, nil
}

// Cashout resolves the user's bet at the multiplier read under the engine
// lock. If the committed crash point has already been passed the cashout
// lost the race, even when the crash tick has not landed yet.
func (e *Engine) Cashout(ctx context.Context, userID int, betID string) (*Bet, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	b, ok := e.bets[betID]
	if !ok || b.UserID != userID {
		return nil, ErrBetNotFound
	}
	if b.Status != BetActive {
		return nil, ErrBetAlreadyResolved
	}
	if e.round == nil || e.round.Status == RoundCrashed {
		return nil, ErrRoundAlreadyCrashed
	}
	if e.round.Status != RoundFlying {
		return nil, ErrRoundNotFlying
	}

	mult := MultiplierAt(time.Since(*e.round.StartedAt), e.cfg.GrowthRate)
	if mult.GreaterThanOrEqual(e.round.CrashPoint) {
		return nil, ErrRoundAlreadyCrashed
	}

	if err := e.settleCashout(mult, b); err != nil {
		return nil, err
	}

	resolved := *b
	return &resolved, nil
}

type cashoutPayload struct {
	BetID      string  `json:"betId"`
	UserID     int     `json:"userId"`
	Multiplier float64 `json:"multiplier"`
	Payout     int64   `json:"payout"`
}

// settleCashout credits the payout and finalizes the bet row in one
// transaction, then updates the in-memory bet. Callers hold e.mu, which
// is what makes manual cashout, auto-cashout and crash mutually
// exclusive per bet. On persistence failure the bet stays active.
func (e *Engine) settleCashout(at decimal.Decimal, b *Bet) error {
	payout := Payout(b.AmountCents, at)
	now := time.Now().UTC()

	resolved := *b
	resolved.Status = BetCashedOut
	resolved.CashoutMultiplier = &at
	resolved.PayoutCents = &payout
	resolved.ResolvedAt = &now

	ctx := context.Background()
	tx, err := e.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := e.ledger.CreditTx(ctx, tx, b.UserID, payout, wallet.TxTypePayout, b.ID); err != nil {
		return err
	}
	if err := e.store.ResolveBetTx(ctx, tx, &resolved); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	b.Status = BetCashedOut
	b.CashoutMultiplier = resolved.CashoutMultiplier
	b.PayoutCents = resolved.PayoutCents
	b.ResolvedAt = resolved.ResolvedAt

	metrics.RecordBetResolved(string(BetCashedOut), payout)
	metrics.RecordWalletTransaction(wallet.TxTypePayout)

	e.hub.Broadcast(EventBetCashout, cashoutPayload{
		BetID:      b.ID,
		UserID:     b.UserID,
		Multiplier: at.InexactFloat64(),
		Payout:     payout,
	})
	e.hub.SendToUser(b.UserID, EventBetCashout, b.View())
	return nil
}

// Snapshot is the synchronous round view for clients joining mid-round.
func (e *Engine) Snapshot() (*Snapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.round == nil {
		return nil, ErrNoActiveRound
	}

	s := &Snapshot{
		RoundID:    e.round.ID,
		Status:     e.round.Status,
		Multiplier: e.round.Multiplier.InexactFloat64(),
		TotalBets:  e.round.TotalBets,
		TotalPool:  e.round.TotalPoolCents,
		SeedHash:   e.round.SeedHash,
	}
	if e.round.Status == RoundWaiting {
		endsAt := e.bettingEndsAt
		s.BettingEndsAt = &endsAt
	}
	return s, nil
}

// ActiveBets returns the caller's unresolved bets on the current round.
func (e *Engine) ActiveBets(userID int) []BetView {
	e.mu.Lock()
	defer e.mu.Unlock()

	views := []BetView{}
	if betID, ok := e.betByUser[userID]; ok {
		if b := e.bets[betID]; b != nil && b.Status == BetActive {
			views = append(views, b.View())
		}
	}
	return views
}

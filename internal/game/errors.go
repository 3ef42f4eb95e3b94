package game

import "errors"

var (
	ErrRoundNotAcceptingBets = errors.New("round is not accepting bets")
	ErrRoundAlreadyCrashed   = errors.New("round already crashed")
	ErrRoundNotFlying        = errors.New("round has not taken off yet")
	ErrBetAlreadyResolved    = errors.New("bet already resolved")
	ErrBetNotFound           = errors.New("bet not found")
	ErrDuplicateActiveBet    = errors.New("user already has a bet on this round")
	ErrBetAmountOutOfRange   = errors.New("bet amount out of range")
	ErrInvalidAutoCashout    = errors.New("auto cashout must be at least 1.01")
	ErrNoActiveRound         = errors.New("no active round")
)

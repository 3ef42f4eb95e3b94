package game

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"aviator/internal/api"
	"aviator/internal/auth"
	"aviator/internal/logger"
	"aviator/internal/wallet"
)

type Handler struct {
	engine *Engine
	store  Store
	recent *RecentCrashes
}

func NewHandler(engine *Engine, store Store, recent *RecentCrashes) *Handler {
	return &Handler{engine: engine, store: store, recent: recent}
}

type PlaceBetRequest struct {
	Amount      int64    `json:"amount" binding:"required,gt=0"`
	AutoCashout *float64 `json:"autoCashout" binding:"omitempty,gt=1"`
}

// writeBettingError maps engine errors onto HTTP statuses. Anything not
// in the taxonomy is a server fault and is logged, not echoed.
func writeBettingError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrBetAmountOutOfRange),
		errors.Is(err, ErrInvalidAutoCashout):
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
	case errors.Is(err, ErrRoundNotAcceptingBets),
		errors.Is(err, ErrRoundAlreadyCrashed),
		errors.Is(err, ErrRoundNotFlying),
		errors.Is(err, ErrBetAlreadyResolved),
		errors.Is(err, ErrDuplicateActiveBet):
		c.JSON(http.StatusConflict, api.ErrorResponse{Error: err.Error()})
	case errors.Is(err, ErrBetNotFound), errors.Is(err, ErrRoundNotFound):
		c.JSON(http.StatusNotFound, api.ErrorResponse{Error: err.Error()})
	case errors.Is(err, wallet.ErrInsufficientFunds):
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
	default:
		logger.Errorf("betting request failed: %v", err)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "internal server error"})
	}
}

// CurrentRound godoc
// @Summary      Current round snapshot
// @Tags         betting
// @Produce      json
// @Success      200 {object} Snapshot
// @Failure      503 {object} api.ErrorResponse
// @Router       /betting/current-round [get]
func (h *Handler) CurrentRound(c *gin.Context) {
	snap, err := h.engine.Snapshot()
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, api.ErrorResponse{Error: "no round in progress"})
		return
	}
	c.JSON(http.StatusOK, snap)
}

// PlaceBet godoc
// @Summary      Place a bet on the waiting round
// @Tags         betting
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request body PlaceBetRequest true "Stake in cents, optional auto-cashout multiplier"
// @Success      201 {object} BetView
// @Failure      400 {object} api.ErrorResponse
// @Failure      409 {object} api.ErrorResponse
// @Router       /betting/place-bet [post]
func (h *Handler) PlaceBet(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "user not authenticated"})
		return
	}

	var req PlaceBetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "amount must be a positive number of cents"})
		return
	}

	var auto *decimal.Decimal
	if req.AutoCashout != nil {
		d := decimal.NewFromFloat(*req.AutoCashout).Truncate(2)
		auto = &d
	}

	b, err := h.engine.PlaceBet(c.Request.Context(), userID, req.Amount, auto)
	if err != nil {
		writeBettingError(c, err)
		return
	}

	c.JSON(http.StatusCreated, b.View())
}

// Cashout godoc
// @Summary      Cash out an active bet at the live multiplier
// @Tags         betting
// @Security     BearerAuth
// @Produce      json
// @Param        betId path string true "Bet ID"
// @Success      200 {object} BetView
// @Failure      404 {object} api.ErrorResponse
// @Failure      409 {object} api.ErrorResponse
// @Router       /betting/cashout/{betId} [post]
func (h *Handler) Cashout(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "user not authenticated"})
		return
	}

	b, err := h.engine.Cashout(c.Request.Context(), userID, c.Param("betId"))
	if err != nil {
		writeBettingError(c, err)
		return
	}

	c.JSON(http.StatusOK, b.View())
}

// ActiveBets godoc
// @Summary      Caller's unresolved bets on the current round
// @Tags         betting
// @Security     BearerAuth
// @Produce      json
// @Success      200 {object} gin.H
// @Router       /betting/active-bets [get]
func (h *Handler) ActiveBets(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "user not authenticated"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"bets": h.engine.ActiveBets(userID)})
}

// History godoc
// @Summary      Caller's bet history, newest first
// @Tags         betting
// @Security     BearerAuth
// @Produce      json
// @Param        page  query int false "Page number"
// @Param        limit query int false "Entries per page"
// @Success      200 {object} gin.H
// @Router       /betting/history [get]
func (h *Handler) History(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "user not authenticated"})
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	bets, total, err := h.store.UserBets(c.Request.Context(), userID, page, limit)
	if err != nil {
		logger.Errorf("failed to load bet history for user %d: %v", userID, err)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "failed to load history"})
		return
	}

	views := make([]BetView, 0, len(bets))
	for i := range bets {
		views = append(views, bets[i].View())
	}

	pages := int((total + int64(limit) - 1) / int64(limit))
	c.JSON(http.StatusOK, gin.H{
		"bets": views,
		"pagination": api.Pagination{
			Page:  page,
			Limit: limit,
			Total: total,
			Pages: pages,
		},
	})
}

// Leaderboard godoc
// @Summary      Top winners for a period
// @Tags         betting
// @Produce      json
// @Param        period query string false "daily or weekly" default(daily)
// @Success      200 {object} gin.H
// @Failure      400 {object} api.ErrorResponse
// @Router       /betting/leaderboard [get]
func (h *Handler) Leaderboard(c *gin.Context) {
	period := c.DefaultQuery("period", "daily")

	var since time.Time
	switch period {
	case "daily":
		since = time.Now().UTC().Add(-24 * time.Hour)
	case "weekly":
		since = time.Now().UTC().Add(-7 * 24 * time.Hour)
	default:
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "period must be daily or weekly"})
		return
	}

	entries, err := h.store.Leaderboard(c.Request.Context(), since, 10)
	if err != nil {
		logger.Errorf("failed to load %s leaderboard: %v", period, err)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "failed to load leaderboard"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"period":      period,
		"leaderboard": entries,
	})
}

// RecentCrashes godoc
// @Summary      Most recent crash points, newest first
// @Tags         betting
// @Produce      json
// @Success      200 {object} gin.H
// @Router       /betting/recent-crashes [get]
func (h *Handler) RecentCrashes(c *gin.Context) {
	crashes, err := h.recent.List(c.Request.Context())
	if err != nil {
		logger.Errorf("failed to load recent crashes: %v", err)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "failed to load recent crashes"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"crashes": crashes})
}

type VerifyResponse struct {
	RoundID    string  `json:"roundId"`
	ServerSeed string  `json:"serverSeed"`
	SeedHash   string  `json:"seedHash"`
	CrashPoint float64 `json:"crashPoint"`
	Valid      bool    `json:"valid"`
}

// Verify godoc
// @Summary      Verify a finished round's fairness
// @Tags         betting
// @Produce      json
// @Param        roundId path string true "Round ID"
// @Success      200 {object} VerifyResponse
// @Failure      404 {object} api.ErrorResponse
// @Failure      409 {object} api.ErrorResponse
// @Router       /betting/verify/{roundId} [get]
func (h *Handler) Verify(c *gin.Context) {
	round, err := h.store.GetRound(c.Request.Context(), c.Param("roundId"))
	if err != nil {
		writeBettingError(c, err)
		return
	}
	if round.Status != RoundCrashed {
		c.JSON(http.StatusConflict, api.ErrorResponse{Error: "round is still in progress"})
		return
	}

	valid := SeedHash(round.ServerSeed) == round.SeedHash

	c.JSON(http.StatusOK, VerifyResponse{
		RoundID:    round.ID,
		ServerSeed: round.ServerSeed,
		SeedHash:   round.SeedHash,
		CrashPoint: round.CrashPoint.InexactFloat64(),
		Valid:      valid,
	})
}

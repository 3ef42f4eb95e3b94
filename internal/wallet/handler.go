package wallet

import (
	"errors"
	"net/http"
	"strconv"

	"aviator/internal/auth"
	"aviator/internal/metrics"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
)

type Handler struct {
	ledger Ledger
}

func NewHandler(db *sqlx.DB) *Handler {
	return &Handler{ledger: NewRepository(db)}
}

func NewHandlerWithLedger(ledger Ledger) *Handler {
	return &Handler{ledger: ledger}
}

type AmountRequest struct {
	AmountCents int64 `json:"amount_cents" binding:"required"`
}

// GetBalance godoc
// @Summary      Wallet balance
// @Tags         wallet
// @Security     BearerAuth
// @Produce      json
// @Success      200 {object} Wallet
// @Router       /wallet/balance [get]
func (h *Handler) GetBalance(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	w, err := h.ledger.GetOrCreateWallet(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load wallet"})
		return
	}

	c.JSON(http.StatusOK, w)
}

// Deposit godoc
// @Summary      Deposit funds
// @Tags         wallet
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request body AmountRequest true "Deposit amount in cents"
// @Success      200 {object} Wallet
// @Failure      400 {object} gin.H
// @Router       /wallet/deposit [post]
func (h *Handler) Deposit(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	var req AmountRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.AmountCents <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "amount_cents must be positive"})
		return
	}

	if err := h.ledger.Credit(c.Request.Context(), userID, req.AmountCents, TxTypeDeposit, ""); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to deposit"})
		return
	}
	metrics.RecordWalletTransaction(TxTypeDeposit)

	w, err := h.ledger.GetOrCreateWallet(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load wallet"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "deposit completed",
		"wallet":  w,
	})
}

// Withdraw godoc
// @Summary      Withdraw funds
// @Tags         wallet
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request body AmountRequest true "Withdrawal amount in cents"
// @Success      200 {object} Wallet
// @Failure      400 {object} gin.H
// @Router       /wallet/withdraw [post]
func (h *Handler) Withdraw(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	var req AmountRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.AmountCents <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "amount_cents must be positive"})
		return
	}

	err := h.ledger.Debit(c.Request.Context(), userID, req.AmountCents, TxTypeWithdrawal, "")
	if err != nil {
		if errors.Is(err, ErrInsufficientFunds) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "insufficient funds"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to withdraw"})
		return
	}
	metrics.RecordWalletTransaction(TxTypeWithdrawal)

	w, err := h.ledger.GetOrCreateWallet(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load wallet"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "withdrawal completed",
		"wallet":  w,
	})
}

// ListTransactions godoc
// @Summary      Transaction history
// @Tags         wallet
// @Security     BearerAuth
// @Produce      json
// @Param        limit  query int false "Max entries to return"
// @Param        offset query int false "Entries to skip"
// @Success      200 {array} Transaction
// @Router       /wallet/transactions [get]
func (h *Handler) ListTransactions(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	txs, err := h.ledger.GetTransactions(c.Request.Context(), userID, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load transactions"})
		return
	}

	c.JSON(http.StatusOK, txs)
}

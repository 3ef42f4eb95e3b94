package user

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"aviator/internal/auth"
	"aviator/internal/wallet"
)

type mockLedger struct {
	mock.Mock
}

func (m *mockLedger) GetOrCreateWallet(ctx context.Context, userID int) (*wallet.Wallet, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*wallet.Wallet), args.Error(1)
}

func (m *mockLedger) Debit(ctx context.Context, userID int, amountCents int64, txType, reference string) error {
	return m.Called(ctx, userID, amountCents, txType, reference).Error(0)
}

func (m *mockLedger) Credit(ctx context.Context, userID int, amountCents int64, txType, reference string) error {
	return m.Called(ctx, userID, amountCents, txType, reference).Error(0)
}

func (m *mockLedger) DebitTx(ctx context.Context, tx *sqlx.Tx, userID int, amountCents int64, txType, reference string) error {
	return m.Called(ctx, tx, userID, amountCents, txType, reference).Error(0)
}

func (m *mockLedger) CreditTx(ctx context.Context, tx *sqlx.Tx, userID int, amountCents int64, txType, reference string) error {
	return m.Called(ctx, tx, userID, amountCents, txType, reference).Error(0)
}

func (m *mockLedger) GetTransactions(ctx context.Context, userID int, limit, offset int) ([]wallet.Transaction, error) {
	args := m.Called(ctx, userID, limit, offset)
	return args.Get(0).([]wallet.Transaction), args.Error(1)
}

func setupUserHandler(t *testing.T) (*Handler, sqlmock.Sqlmock, *mockLedger) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, smock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ledger := new(mockLedger)
	h := NewHandler(sqlx.NewDb(db, "sqlmock"), ledger, "test-secret", 100000)
	return h, smock, ledger
}

func userColumns() []string {
	return []string{"id", "name", "email", "password_hash", "role", "created_at"}
}

func TestRegister(t *testing.T) {
	h, smock, ledger := setupUserHandler(t)

	r := gin.New()
	r.POST("/auth/register", h.Register)

	smock.ExpectQuery("SELECT EXISTS").
		WithArgs("new@test.com").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	smock.ExpectQuery("INSERT INTO users").
		WithArgs("New Player", "new@test.com", sqlmock.AnyArg(), "player").
		WillReturnRows(sqlmock.NewRows(userColumns()).
			AddRow(5, "New Player", "new@test.com", "hash", "player", time.Now()))

	ledger.On("Credit", mock.Anything, 5, int64(100000), wallet.TxTypeBonus, "welcome").Return(nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/auth/register",
		strings.NewReader(`{"name":"New Player","email":"new@test.com","password":"password123"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)

	var resp LoginResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, "new@test.com", resp.User.Email)

	ledger.AssertExpectations(t)
	assert.NoError(t, smock.ExpectationsWereMet())
}

func TestRegister_DuplicateEmail(t *testing.T) {
	h, smock, _ := setupUserHandler(t)

	r := gin.New()
	r.POST("/auth/register", h.Register)

	smock.ExpectQuery("SELECT EXISTS").
		WithArgs("taken@test.com").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/auth/register",
		strings.NewReader(`{"name":"Taken","email":"taken@test.com","password":"password123"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestRegister_ValidationDetails(t *testing.T) {
	h, _, _ := setupUserHandler(t)

	r := gin.New()
	r.POST("/auth/register", h.Register)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/auth/register",
		strings.NewReader(`{"name":"X","email":"not-an-email","password":"short"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "validation failed")
	assert.Contains(t, w.Body.String(), "Email must be a valid email address")
	assert.Contains(t, w.Body.String(), "Password must be at least 8 characters")
}

func TestRegister_BonusFailureStillRegisters(t *testing.T) {
	h, smock, ledger := setupUserHandler(t)

	r := gin.New()
	r.POST("/auth/register", h.Register)

	smock.ExpectQuery("SELECT EXISTS").
		WithArgs("new@test.com").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	smock.ExpectQuery("INSERT INTO users").
		WillReturnRows(sqlmock.NewRows(userColumns()).
			AddRow(6, "New Player", "new@test.com", "hash", "player", time.Now()))

	ledger.On("Credit", mock.Anything, 6, int64(100000), wallet.TxTypeBonus, "welcome").
		Return(assert.AnError)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/auth/register",
		strings.NewReader(`{"name":"New Player","email":"new@test.com","password":"password123"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestLogin(t *testing.T) {
	h, smock, _ := setupUserHandler(t)

	r := gin.New()
	r.POST("/auth/login", h.Login)

	hash, err := auth.HashPassword("password123")
	require.NoError(t, err)

	smock.ExpectQuery("SELECT id, name, email").
		WithArgs("player@test.com").
		WillReturnRows(sqlmock.NewRows(userColumns()).
			AddRow(5, "Player", "player@test.com", hash, "player", time.Now()))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/auth/login",
		strings.NewReader(`{"email":"player@test.com","password":"password123"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp LoginResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.AccessToken)
}

func TestLogin_WrongPassword(t *testing.T) {
	h, smock, _ := setupUserHandler(t)

	r := gin.New()
	r.POST("/auth/login", h.Login)

	hash, err := auth.HashPassword("password123")
	require.NoError(t, err)

	smock.ExpectQuery("SELECT id, name, email").
		WithArgs("player@test.com").
		WillReturnRows(sqlmock.NewRows(userColumns()).
			AddRow(5, "Player", "player@test.com", hash, "player", time.Now()))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/auth/login",
		strings.NewReader(`{"email":"player@test.com","password":"nope"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRefresh(t *testing.T) {
	h, _, _ := setupUserHandler(t)

	r := gin.New()
	r.POST("/auth/refresh", h.Refresh)

	_, refreshToken, err := auth.GenerateTokens(5, "player@test.com", "player", "test-secret", "test-secret")
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/auth/refresh",
		strings.NewReader(`{"refresh_token":"`+refreshToken+`"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "access_token")
}

func TestGetMe(t *testing.T) {
	h, smock, _ := setupUserHandler(t)

	r := gin.New()
	r.GET("/me", func(c *gin.Context) {
		c.Set("user_id", 5)
		h.GetMe(c)
	})

	smock.ExpectQuery("SELECT id, name, email").
		WithArgs(5).
		WillReturnRows(sqlmock.NewRows(userColumns()).
			AddRow(5, "Player", "player@test.com", "hash", "player", time.Now()))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"email":"player@test.com"`)
	assert.NotContains(t, w.Body.String(), "hash")
}
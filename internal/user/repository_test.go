package user

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

func setupUserMock(t *testing.T) (*Repository, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	sqlxDB := sqlx.NewDb(db, "sqlmock")
	repo := NewRepository(sqlxDB)

	return repo, mock, func() { sqlxDB.Close() }
}

func userRow(id int, name, email string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "name", "email", "password_hash", "role", "created_at"}).
		AddRow(id, name, email, "hash", "player", time.Now())
}

func TestCreate(t *testing.T) {
	repo, mock, close := setupUserMock(t)
	defer close()

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO users (name, email, password_hash, role)")).
		WithArgs("Ann", "ann@example.com", "hash", "player").
		WillReturnRows(userRow(1, "Ann", "ann@example.com"))

	u, err := repo.Create(context.Background(), "Ann", "ann@example.com", "hash", "player")
	require.NoError(t, err)
	require.Equal(t, 1, u.ID)
	require.Equal(t, "player", u.Role)
}

func TestFindByEmail(t *testing.T) {
	repo, mock, close := setupUserMock(t)
	defer close()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, email, password_hash, role, created_at FROM users WHERE email = $1")).
		WithArgs("ann@example.com").
		WillReturnRows(userRow(1, "Ann", "ann@example.com"))

	u, err := repo.FindByEmail(context.Background(), "ann@example.com")
	require.NoError(t, err)
	require.Equal(t, "Ann", u.Name)
}

func TestEmailExists(t *testing.T) {
	repo, mock, close := setupUserMock(t)
	defer close()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)")).
		WithArgs("ann@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := repo.EmailExists(context.Background(), "ann@example.com")
	require.NoError(t, err)
	require.True(t, exists)
}

package userstore

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var columnNames = []string{
	"id", "email", "username", "password_hash", "first_name", "last_name", "role",
	"is_active", "is_email_verified", "created_at", "updated_at", "last_login_at",
}

func newPostgresWithMock(t *testing.T) (*Postgres, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgres(db), mock
}

func TestPostgresFindByIDScansRow(t *testing.T) {
	p, mock := newPostgresWithMock(t)
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	lastLogin := created.Add(time.Hour)

	rows := sqlmock.NewRows(columnNames).
		AddRow("u1", "a@example.com", "alice", "hash", "Alice", "Liddell", "user", true, false, created, created, lastLogin)
	mock.ExpectQuery(`(?s)^SELECT .+ FROM users WHERE id = \$1$`).
		WithArgs("u1").
		WillReturnRows(rows)

	u, err := p.FindByID(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Username)
	assert.Equal(t, "Liddell", u.LastName)
	require.NotNil(t, u.LastLoginAt)
	assert.True(t, u.LastLoginAt.Equal(lastLogin))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresFindMapsNoRows(t *testing.T) {
	p, mock := newPostgresWithMock(t)
	mock.ExpectQuery(`(?s)^SELECT .+ FROM users WHERE email = \$1$`).
		WithArgs("a@example.com").
		WillReturnError(sql.ErrNoRows)

	_, err := p.FindByEmail(context.Background(), "A@Example.com")
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresFindByEmailOrUsername(t *testing.T) {
	p, mock := newPostgresWithMock(t)
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows(columnNames).
		AddRow("u1", "a@example.com", "alice", "hash", "", "", "user", true, false, created, created, nil)
	mock.ExpectQuery(`(?s)WHERE email = \$1 OR lower\(username\) = lower\(\$2\)`).
		WithArgs("a@example.com", "Alice").
		WillReturnRows(rows)

	u, err := p.FindByEmailOrUsername(context.Background(), "a@example.com", "Alice")
	require.NoError(t, err)
	assert.Equal(t, "u1", u.ID)
	assert.Nil(t, u.LastLoginAt)
}

func TestPostgresInsertUniqueViolationIsConflict(t *testing.T) {
	p, mock := newPostgresWithMock(t)
	u := sampleUser("u1", "a@example.com", "alice")

	mock.ExpectExec(`(?s)^INSERT INTO users`).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "uq_users_email"})

	err := p.Insert(context.Background(), u)
	assert.ErrorIs(t, err, ErrConflict)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresInsertOtherErrorIsNotConflict(t *testing.T) {
	p, mock := newPostgresWithMock(t)
	mock.ExpectExec(`(?s)^INSERT INTO users`).WillReturnError(errors.New("db down"))

	err := p.Insert(context.Background(), sampleUser("u1", "a@example.com", "alice"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrConflict)
	assert.Regexp(t, regexp.MustCompile(`db error: .*db down`), err.Error())
}

func TestPostgresUpdateLastLogin(t *testing.T) {
	p, mock := newPostgresWithMock(t)
	at := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectExec(`^UPDATE users SET last_login_at`).
		WithArgs("u1", at).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, p.UpdateLastLogin(context.Background(), "u1", at))

	mock.ExpectExec(`^UPDATE users SET last_login_at`).
		WithArgs("gone", at).
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, p.UpdateLastLogin(context.Background(), "gone", at), ErrNotFound)
}

func TestMigrateUsesEmbeddedFS(t *testing.T) {
	orig := gooseUpContext
	t.Cleanup(func() { gooseUpContext = orig })

	var dir string
	gooseUpContext = func(_ context.Context, _ *sql.DB, d string, _ ...goose.OptionsFunc) error {
		dir = d
		return nil
	}
	require.NoError(t, Migrate(context.Background(), nil))
	assert.Equal(t, ".", dir)

	gooseUpContext = func(context.Context, *sql.DB, string, ...goose.OptionsFunc) error {
		return errors.New("boom")
	}
	assert.ErrorContains(t, Migrate(context.Background(), nil), "migration error")
}

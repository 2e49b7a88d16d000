//go:build integration

package userstore

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Run with: TOKENKEEPER_TEST_DATABASE_URL=postgres://... go test -tags integration ./userstore
func TestPostgresIntegration(t *testing.T) {
	dsn := os.Getenv("TOKENKEEPER_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TOKENKEEPER_TEST_DATABASE_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := Open(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, Migrate(ctx, db))

	_, err = db.ExecContext(ctx, `DELETE FROM users WHERE username LIKE 'it-%'`)
	require.NoError(t, err)

	p := NewPostgres(db)
	u := sampleUser("01JTESTINTEGRATION0000000A", "IT-A@Example.com", "it-alice")
	require.NoError(t, p.Insert(ctx, u))

	got, err := p.FindByEmail(ctx, "it-a@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.Nil(t, got.LastLoginAt)

	dup := sampleUser("01JTESTINTEGRATION0000000B", "it-b@example.com", "IT-ALICE")
	assert.ErrorIs(t, p.Insert(ctx, dup), ErrConflict)

	at := time.Now().UTC().Truncate(time.Millisecond)
	require.NoError(t, p.UpdateLastLogin(ctx, u.ID, at))
	got, err = p.FindByID(ctx, u.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastLoginAt)
	assert.True(t, got.LastLoginAt.Equal(at))
}

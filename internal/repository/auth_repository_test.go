package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/table-reservation/internal/database/dbtest"
	"github.com/iliyamo/table-reservation/internal/utils"
)

func TestOperatorAndTokens(t *testing.T) {
	db := dbtest.Open(t)
	ops := NewOperatorRepo(db)
	tokens := NewTokenRepo(db)
	ctx := context.Background()

	id, err := ops.Create(ctx, " Host ", "secret-pass", bcrypt.MinCost)
	require.NoError(t, err)
	_, err = ops.Create(ctx, "host", "other-pass", bcrypt.MinCost)
	assert.ErrorIs(t, err, ErrDuplicate)

	op, err := ops.GetByUsername(ctx, "HOST")
	require.NoError(t, err)
	assert.Equal(t, id, op.ID)
	assert.True(t, utils.VerifyPassword(op.PasswordHash, "secret-pass"))
	_, err = ops.GetByID(ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)

	hash := utils.HashRefreshRaw("raw-token")
	require.NoError(t, tokens.StoreRefresh(ctx, id, hash, time.Now().Add(time.Hour)))
	got, err := tokens.ValidateRefresh(ctx, hash)
	require.NoError(t, err)
	assert.Equal(t, id, got)

	require.NoError(t, tokens.RevokeByHash(ctx, hash))
	_, err = tokens.ValidateRefresh(ctx, hash)
	assert.ErrorIs(t, err, ErrNotFound)

	expired := utils.HashRefreshRaw("old")
	require.NoError(t, tokens.StoreRefresh(ctx, id, expired, time.Now().Add(-time.Hour)))
	_, err = tokens.ValidateRefresh(ctx, expired)
	assert.ErrorIs(t, err, ErrNotFound)

	live := utils.HashRefreshRaw("live")
	require.NoError(t, tokens.StoreRefresh(ctx, id, live, time.Now().Add(time.Hour)))
	require.NoError(t, tokens.RevokeAllForOperator(ctx, id))
	_, err = tokens.ValidateRefresh(ctx, live)
	assert.ErrorIs(t, err, ErrNotFound)
}

package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/ledgerbook/internal/usecase"
)

func TestIdempotencyStore_FirstClaimMarksPending(t *testing.T) {
	client, mr := newTestRedisClient(t)
	store := NewIdempotencyStore(client)
	ctx := context.Background()

	exists, resp, err := store.CheckAndSet(ctx, "create-1", nil, time.Minute)
	require.NoError(t, err)
	assert.False(t, exists)
	assert.Nil(t, resp)

	got, err := mr.Get("ledgerbook:idempotency:create-1")
	require.NoError(t, err)
	assert.Equal(t, usecase.IdempotencyPending, got)
	assert.Equal(t, time.Minute, mr.TTL("ledgerbook:idempotency:create-1"))
}

func TestIdempotencyStore_DuplicateWhileRunning(t *testing.T) {
	client, _ := newTestRedisClient(t)
	store := NewIdempotencyStore(client)
	ctx := context.Background()

	_, _, err := store.CheckAndSet(ctx, "create-2", nil, time.Minute)
	require.NoError(t, err)

	exists, resp, err := store.CheckAndSet(ctx, "create-2", nil, time.Minute)
	require.NoError(t, err)
	assert.True(t, exists)
	assert.Equal(t, usecase.IdempotencyPending, string(resp))
}

func TestIdempotencyStore_UpdateThenReplay(t *testing.T) {
	client, _ := newTestRedisClient(t)
	store := NewIdempotencyStore(client)
	ctx := context.Background()

	_, _, err := store.CheckAndSet(ctx, "create-3", nil, time.Minute)
	require.NoError(t, err)
	require.NoError(t, store.Update(ctx, "create-3", []byte(`{"id":"x"}`), time.Minute))

	exists, resp, err := store.CheckAndSet(ctx, "create-3", nil, time.Minute)
	require.NoError(t, err)
	assert.True(t, exists)
	assert.JSONEq(t, `{"id":"x"}`, string(resp))
}

func TestIdempotencyStore_ReleaseAllowsRetry(t *testing.T) {
	client, mr := newTestRedisClient(t)
	store := NewIdempotencyStore(client)
	ctx := context.Background()

	_, _, err := store.CheckAndSet(ctx, "failed", nil, time.Minute)
	require.NoError(t, err)
	require.NoError(t, store.Release(ctx, "failed"))
	assert.False(t, mr.Exists("ledgerbook:idempotency:failed"))

	exists, _, err := store.CheckAndSet(ctx, "failed", nil, time.Minute)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestIdempotencyStore_ExpiredKeyCanBeReclaimed(t *testing.T) {
	client, mr := newTestRedisClient(t)
	store := NewIdempotencyStore(client)
	ctx := context.Background()

	_, _, err := store.CheckAndSet(ctx, "slow", nil, time.Second)
	require.NoError(t, err)
	mr.FastForward(2 * time.Second)

	exists, _, err := store.CheckAndSet(ctx, "slow", nil, time.Second)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestIdempotencyStore_Ping(t *testing.T) {
	client, mr := newTestRedisClient(t)
	store := NewIdempotencyStore(client)

	require.NoError(t, store.Ping(context.Background()))

	mr.Close()
	assert.Error(t, store.Ping(context.Background()))
}

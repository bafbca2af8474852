package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/spec-kit/sla-escalation-service/internal/config"
)

func newTestRedis(t *testing.T) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	server := miniredis.RunT(t)
	r := NewRedis(config.RedisConfig{Addr: server.Addr()}, zaptest.NewLogger(t))
	t.Cleanup(r.Close)
	return r, server
}

func TestRedisPing(t *testing.T) {
	r, _ := newTestRedis(t)
	require.NoError(t, r.Ping(context.Background()))

	var missing *Redis
	require.Error(t, missing.Ping(context.Background()))
}

func TestLeaseIsExclusive(t *testing.T) {
	r, server := newTestRedis(t)
	ctx := context.Background()

	first := r.NewLease("sla:escalation", time.Minute)
	second := r.NewLease("sla:escalation", time.Minute)

	ok, err := first.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = second.Acquire(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	// Releasing with a foreign token leaves the holder in place.
	require.NoError(t, second.Release(ctx))
	assert.True(t, server.Exists("sla:escalation"))

	require.NoError(t, first.Release(ctx))
	assert.False(t, server.Exists("sla:escalation"))

	ok, err = second.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLeaseExpires(t *testing.T) {
	r, server := newTestRedis(t)
	ctx := context.Background()

	holder := r.NewLease("sla:escalation", time.Second)
	ok, err := holder.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	server.FastForward(2 * time.Second)

	ok, err = r.NewLease("sla:escalation", time.Second).Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}

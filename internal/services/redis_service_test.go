package services

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisService_GenerationLock(t *testing.T) {
	mr, client := setupTestRedis(t)
	svc := NewRedisService(client, 2*time.Minute)
	ctx := context.Background()

	token, ok, err := svc.AcquireGenerationLock(ctx, "face_analysis", "rec-1", "wealth")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NotEmpty(t, token)
	assert.Equal(t, 2*time.Minute, mr.TTL("report_lock:face_analysis:rec-1:wealth"))

	_, ok, err = svc.AcquireGenerationLock(ctx, "face_analysis", "rec-1", "wealth")
	require.NoError(t, err)
	assert.False(t, ok)

	// other slots are independent
	_, ok, err = svc.AcquireGenerationLock(ctx, "face_analysis", "rec-1", "love")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, svc.ReleaseGenerationLock(ctx, "face_analysis", "rec-1", "wealth", token))
	_, ok, err = svc.AcquireGenerationLock(ctx, "face_analysis", "rec-1", "wealth")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisService_LockExpires(t *testing.T) {
	mr, client := setupTestRedis(t)
	svc := NewRedisService(client, time.Minute)
	ctx := context.Background()

	_, ok, err := svc.AcquireGenerationLock(ctx, "new_year", "rec-1", "fortune")
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(2 * time.Minute)

	_, ok, err = svc.AcquireGenerationLock(ctx, "new_year", "rec-1", "fortune")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisService_ReleaseKeepsNewerHoldersLock(t *testing.T) {
	mr, client := setupTestRedis(t)
	svc := NewRedisService(client, time.Minute)
	ctx := context.Background()
	key := "report_lock:new_year:rec-1:fortune"

	stale, ok, err := svc.AcquireGenerationLock(ctx, "new_year", "rec-1", "fortune")
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(2 * time.Minute)

	current, ok, err := svc.AcquireGenerationLock(ctx, "new_year", "rec-1", "fortune")
	require.NoError(t, err)
	require.True(t, ok)
	require.NotEqual(t, stale, current)

	// the first holder finishes late
	require.NoError(t, svc.ReleaseGenerationLock(ctx, "new_year", "rec-1", "fortune", stale))
	got, err := mr.Get(key)
	require.NoError(t, err)
	assert.Equal(t, current, got)

	require.NoError(t, svc.ReleaseGenerationLock(ctx, "new_year", "rec-1", "fortune", current))
	assert.False(t, mr.Exists(key))
}

func TestNewRedisService_NilClient(t *testing.T) {
	assert.Nil(t, NewRedisService(nil, time.Minute))
}

func TestNewRedisService_DefaultTTL(t *testing.T) {
	_, client := setupTestRedis(t)
	assert.Equal(t, 5*time.Minute, NewRedisService(client, 0).lockTTL)
}

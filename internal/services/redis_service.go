package services

import (
	"context"
	"fmt"
	"time"

	"fortune-report-api/pkg/logging"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseLockScript deletes the lock only while it still holds the caller's token
var releaseLockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisService provides Redis operations
type RedisService struct {
	client  *redis.Client
	lockTTL time.Duration
}

// NewRedisService creates a new Redis service instance; a nil client yields nil
func NewRedisService(client *redis.Client, lockTTL time.Duration) *RedisService {
	if client == nil {
		return nil
	}
	if lockTTL <= 0 {
		lockTTL = 5 * time.Minute
	}
	return &RedisService{client: client, lockTTL: lockTTL}
}

func generationLockKey(store, id, reportType string) string {
	return fmt.Sprintf("report_lock:%s:%s:%s", store, id, reportType)
}

// AcquireGenerationLock takes the per-slot generation lock under a fresh
// token. The TTL releases it if the holder dies mid-generation.
func (r *RedisService) AcquireGenerationLock(ctx context.Context, store, id, reportType string) (string, bool, error) {
	token := uuid.NewString()
	ok, err := r.client.SetNX(ctx, generationLockKey(store, id, reportType), token, r.lockTTL).Result()
	if err != nil || !ok {
		return "", false, err
	}
	return token, true, nil
}

// ReleaseGenerationLock deletes the lock if it is still held under token.
// A lock that expired and was taken by another request is left alone.
func (r *RedisService) ReleaseGenerationLock(ctx context.Context, store, id, reportType, token string) error {
	deleted, err := releaseLockScript.Run(ctx, r.client, []string{generationLockKey(store, id, reportType)}, token).Int()
	if err != nil {
		return err
	}
	if deleted == 0 {
		logging.Warnf("Generation lock expired before release - store: %s, id: %s, type: %s", store, id, reportType)
	}
	return nil
}

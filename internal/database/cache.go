package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"fortune-report-api/internal/models"

	"github.com/redis/go-redis/v9"
)

// RecordCache sits in front of the record table. Writers replace the entry
// with SetRecord; readers only fill a missing entry with AddRecord, so a slow
// reader never puts back a copy older than the last write.
type RecordCache interface {
	GetRecord(ctx context.Context, store, id string) (*models.AnalysisRecord, error)
	SetRecord(ctx context.Context, rec *models.AnalysisRecord) error
	AddRecord(ctx context.Context, rec *models.AnalysisRecord) error
	DeleteRecord(ctx context.Context, store, id string) error
}

// RedisRecordCache caches records as JSON strings with a TTL
type RedisRecordCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisRecordCache creates a cache; a nil client yields a nil cache
func NewRedisRecordCache(client *redis.Client, ttl time.Duration) *RedisRecordCache {
	if client == nil {
		return nil
	}
	return &RedisRecordCache{client: client, ttl: ttl}
}

func recordCacheKey(store, id string) string {
	return fmt.Sprintf("record:%s:%s", store, id)
}

// GetRecord returns nil without error on a cache miss
func (c *RedisRecordCache) GetRecord(ctx context.Context, store, id string) (*models.AnalysisRecord, error) {
	raw, err := c.client.Get(ctx, recordCacheKey(store, id)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var rec models.AnalysisRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return nil, fmt.Errorf("failed to decode cached record: %w", err)
	}
	return &rec, nil
}

// SetRecord sets cache with expiration
func (c *RedisRecordCache) SetRecord(ctx context.Context, rec *models.AnalysisRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, recordCacheKey(rec.Store, rec.ID), data, c.ttl).Err()
}

// AddRecord sets the entry only when none exists
func (c *RedisRecordCache) AddRecord(ctx context.Context, rec *models.AnalysisRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return c.client.SetNX(ctx, recordCacheKey(rec.Store, rec.ID), data, c.ttl).Err()
}

// DeleteRecord deletes cache
func (c *RedisRecordCache) DeleteRecord(ctx context.Context, store, id string) error {
	return c.client.Del(ctx, recordCacheKey(store, id)).Err()
}

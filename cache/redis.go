package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"shopbot-svc/models"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func InitRedis(addr, password string, logger *zap.Logger) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Redis connection established", zap.String("addr", addr))
	return rdb, nil
}

func fulfillmentKey(token string) string {
	return fmt.Sprintf("fulfillment:%s", token)
}

// FulfillmentStore keeps delivered payload tokens in Redis. Keys never
// expire; SETNX gives the atomic check-and-set.
type FulfillmentStore struct {
	rdb *redis.Client
}

func NewFulfillmentStore(rdb *redis.Client) *FulfillmentStore {
	return &FulfillmentStore{rdb: rdb}
}

func (s *FulfillmentStore) Exists(ctx context.Context, token string) (bool, error) {
	n, err := s.rdb.Exists(ctx, fulfillmentKey(token)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to look up fulfillment: %w", err)
	}
	return n > 0, nil
}

func (s *FulfillmentStore) Insert(ctx context.Context, record models.FulfillmentRecord) (bool, error) {
	data, err := json.Marshal(record)
	if err != nil {
		return false, err
	}
	inserted, err := s.rdb.SetNX(ctx, fulfillmentKey(record.PayloadToken), data, 0).Result()
	if err != nil {
		return false, fmt.Errorf("failed to record fulfillment: %w", err)
	}
	return inserted, nil
}

// Get returns the stored record for token, or redis.Nil.
func (s *FulfillmentStore) Get(ctx context.Context, token string) (models.FulfillmentRecord, error) {
	var record models.FulfillmentRecord
	data, err := s.rdb.Get(ctx, fulfillmentKey(token)).Bytes()
	if err != nil {
		return record, err
	}
	if err := json.Unmarshal(data, &record); err != nil {
		return record, fmt.Errorf("failed to decode fulfillment: %w", err)
	}
	return record, nil
}

// internal/store/options.go
package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	apperrors "signup-notifier/internal/common/errors"
	"signup-notifier/internal/common/logger"
)

const (
	optionPrefix = "notifier:option:"
	lockPrefix   = "notifier:lock:"

	// casRetries bounds optimistic retries when a concurrent writer touches
	// the same option between read and write.
	casRetries = 8
)

// OptionStore is the generic persisted key/value store used for the
// RateLimitWindow, RetryQueue, RunStatistics and SystemDefaultMap. Values
// are JSON documents; updates go through WATCH/MULTI so concurrent batch
// invocations never double-count, and WithLock provides the advisory lock
// guarding a whole batch run.
type OptionStore struct {
	client *redis.Client
	logger logger.Logger
}

func NewOptionStore(client *redis.Client, log logger.Logger) *OptionStore {
	return &OptionStore{
		client: client,
		logger: log.WithFields(map[string]interface{}{"component": "option-store"}),
	}
}

// GetJSON loads the option into out. The second return is false when the
// option has never been written.
func (s *OptionStore) GetJSON(ctx context.Context, key string, out interface{}) (bool, error) {
	raw, err := s.client.Get(ctx, optionPrefix+key).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, apperrors.NewOptionStoreError(key, err)
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return false, apperrors.NewOptionStoreError(key, err)
	}
	return true, nil
}

// SetJSON stores v as the option value, replacing any previous value.
func (s *OptionStore) SetJSON(ctx context.Context, key string, v interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return apperrors.NewOptionStoreError(key, err)
	}
	if err := s.client.Set(ctx, optionPrefix+key, raw, 0).Err(); err != nil {
		return apperrors.NewOptionStoreError(key, err)
	}
	return nil
}

// Update applies fn to the current raw value (nil when absent) and writes
// the result back atomically. When another writer changes the key
// mid-update the transaction is retried with the fresh value.
func (s *OptionStore) Update(ctx context.Context, key string, fn func(raw []byte) ([]byte, error)) error {
	fullKey := optionPrefix + key

	txf := func(tx *redis.Tx) error {
		var current []byte
		raw, err := tx.Get(ctx, fullKey).Result()
		if err != nil && err != redis.Nil {
			return err
		}
		if err == nil {
			current = []byte(raw)
		}

		next, err := fn(current)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, fullKey, next, 0)
			return nil
		})
		return err
	}

	var err error
	for i := 0; i < casRetries; i++ {
		err = s.client.Watch(ctx, txf, fullKey)
		if err != redis.TxFailedErr {
			break
		}
		s.logger.Debug("option update raced, retrying", map[string]interface{}{
			"key":     key,
			"attempt": i + 1,
		})
	}
	if err != nil {
		if stdErr, ok := err.(*apperrors.StandardError); ok {
			return stdErr
		}
		return apperrors.NewOptionStoreError(key, err)
	}
	return nil
}

// WithLock runs fn while holding the named advisory lock. A second caller
// arriving while the lock is held gets a LOCK_HELD error and must skip its
// run; the scheduled invocation will pick the work up later.
func (s *OptionStore) WithLock(ctx context.Context, name string, ttl time.Duration, fn func() error) error {
	lockKey := lockPrefix + name
	token := uuid.NewString()

	ok, err := s.client.SetNX(ctx, lockKey, token, ttl).Result()
	if err != nil {
		return apperrors.NewOptionStoreError(name, err)
	}
	if !ok {
		return apperrors.NewLockHeldError(name)
	}

	defer func() {
		// Release only our own token so an expired-and-reacquired lock is
		// never deleted out from under the new holder.
		current, err := s.client.Get(ctx, lockKey).Result()
		if err == nil && current == token {
			if err := s.client.Del(ctx, lockKey).Err(); err != nil {
				s.logger.Warn("lock release failed", map[string]interface{}{
					"lock": name, "error": err.Error(),
				})
			}
		}
	}()

	return fn()
}

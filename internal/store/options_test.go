// internal/store/options_test.go
package store

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "signup-notifier/internal/common/errors"
	"signup-notifier/internal/common/logger"
)

func newOptionStoreTest(t *testing.T) (*OptionStore, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewOptionStore(client, logger.NewTestLogger(t)), mr
}

func TestOptionStore_GetSetJSON(t *testing.T) {
	ctx := context.Background()
	store, _ := newOptionStoreTest(t)

	type payload struct {
		Count int    `json:"count"`
		Label string `json:"label"`
	}

	var out payload
	found, err := store.GetJSON(ctx, "missing", &out)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, store.SetJSON(ctx, "window", payload{Count: 3, Label: "x"}))

	found, err = store.GetJSON(ctx, "window", &out)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, payload{Count: 3, Label: "x"}, out)
}

func TestOptionStore_GetJSONCorruptValue(t *testing.T) {
	ctx := context.Background()
	store, mr := newOptionStoreTest(t)

	require.NoError(t, mr.Set("notifier:option:bad", "{nope"))

	var out map[string]int
	_, err := store.GetJSON(ctx, "bad", &out)
	assert.Error(t, err)
}

func TestOptionStore_UpdateReadModifyWrite(t *testing.T) {
	ctx := context.Background()
	store, _ := newOptionStoreTest(t)

	// First update sees nil and initializes.
	err := store.Update(ctx, "counter", func(raw []byte) ([]byte, error) {
		assert.Nil(t, raw)
		return json.Marshal(1)
	})
	require.NoError(t, err)

	// Second update sees the previous value.
	err = store.Update(ctx, "counter", func(raw []byte) ([]byte, error) {
		var n int
		require.NoError(t, json.Unmarshal(raw, &n))
		return json.Marshal(n + 41)
	})
	require.NoError(t, err)

	var n int
	found, err := store.GetJSON(ctx, "counter", &n)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 42, n)
}

func TestOptionStore_UpdateCallbackErrorAborts(t *testing.T) {
	ctx := context.Background()
	store, _ := newOptionStoreTest(t)

	require.NoError(t, store.SetJSON(ctx, "k", 1))

	boom := errors.New("boom")
	err := store.Update(ctx, "k", func(raw []byte) ([]byte, error) {
		return nil, boom
	})
	require.Error(t, err)

	// Value untouched.
	var n int
	found, err := store.GetJSON(ctx, "k", &n)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 1, n)
}

func TestOptionStore_WithLock(t *testing.T) {
	ctx := context.Background()
	store, mr := newOptionStoreTest(t)

	ran := false
	err := store.WithLock(ctx, "batch:reminder", time.Minute, func() error {
		ran = true
		// Lock visible while held.
		assert.True(t, mr.Exists("notifier:lock:batch:reminder"))
		return nil
	})
	require.NoError(t, err)
	assert.True(t, ran)

	// Released after the callback.
	assert.False(t, mr.Exists("notifier:lock:batch:reminder"))
}

func TestOptionStore_WithLockHeld(t *testing.T) {
	ctx := context.Background()
	store, mr := newOptionStoreTest(t)

	require.NoError(t, mr.Set("notifier:lock:batch:reminder", "someone-else"))

	err := store.WithLock(ctx, "batch:reminder", time.Minute, func() error {
		t.Fatal("must not run while the lock is held")
		return nil
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsLockHeld(err))

	// The other holder's token stays.
	got, err := mr.Get("notifier:lock:batch:reminder")
	require.NoError(t, err)
	assert.Equal(t, "someone-else", got)
}

func TestOptionStore_WithLockCallbackErrorStillReleases(t *testing.T) {
	ctx := context.Background()
	store, mr := newOptionStoreTest(t)

	boom := errors.New("boom")
	err := store.WithLock(ctx, "batch:reschedule", time.Minute, func() error {
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.False(t, mr.Exists("notifier:lock:batch:reschedule"))
}

func TestOptionStore_GetJSONConnectionError(t *testing.T) {
	ctx := context.Background()
	client, mock := redismock.NewClientMock()
	store := NewOptionStore(client, logger.NewNoOpLogger())

	mock.ExpectGet("notifier:option:window").SetErr(errors.New("connection refused"))

	var out map[string]int
	_, err := store.GetJSON(ctx, "window", &out)
	require.Error(t, err)

	var stdErr *apperrors.StandardError
	require.ErrorAs(t, err, &stdErr)
	assert.Equal(t, apperrors.ErrCodeOptionStoreFailed, stdErr.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

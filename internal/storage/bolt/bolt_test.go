package bolt_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/goog1e-app/line-notify/internal/model"
	"github.com/goog1e-app/line-notify/internal/storage"
	"github.com/goog1e-app/line-notify/internal/storage/bolt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T) *bolt.Store {
	t.Helper()
	store, err := bolt.New(filepath.Join(t.TempDir(), "nested", "notify.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func putToken(t *testing.T, store *bolt.Store, token model.Token) {
	t.Helper()
	require.NoError(t, store.UpdateToken(context.Background(), token.Name, true, func(stored *model.Token) error {
		stored.Ciphertext = token.Ciphertext
		stored.IV = token.IV
		stored.Status = token.Status
		return nil
	}))
}

func TestTokenLifecycle(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)

	putToken(t, store, model.Token{Name: " ops ", Ciphertext: "c1", IV: "iv", Status: model.TokenStatusActive})
	putToken(t, store, model.Token{Name: "family", Ciphertext: "c2", IV: "iv", Status: model.TokenStatusRevoked})

	got, err := store.GetToken(ctx, "ops")
	require.NoError(t, err)
	assert.Equal(t, "ops", got.Name)
	assert.Equal(t, "c1", got.Ciphertext)
	assert.False(t, got.CreatedAt.IsZero())

	all, err := store.ListTokens(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	active, err := store.ListActiveTokens(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "ops", active[0].Name)

	require.NoError(t, store.DeleteToken(ctx, "ops"))
	_, err = store.GetToken(ctx, "ops")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.ErrorIs(t, store.DeleteToken(ctx, "ops"), storage.ErrNotFound)
}

func TestUpdateTokenRequiresName(t *testing.T) {
	store := openStore(t)
	err := store.UpdateToken(context.Background(), "  ", true, func(*model.Token) error { return nil })
	assert.ErrorIs(t, err, storage.ErrEmptyKey)
}

func TestUpdateTokenMissingWithoutCreate(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)

	called := false
	err := store.UpdateToken(ctx, "ghost", false, func(*model.Token) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.False(t, called)
	_, err = store.GetToken(ctx, "ghost")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestUpdateTokenAbortsOnError(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	putToken(t, store, model.Token{Name: "ops", Ciphertext: "c1", Status: model.TokenStatusActive})

	boom := errors.New("boom")
	err := store.UpdateToken(ctx, "ops", false, func(token *model.Token) error {
		token.Ciphertext = "changed"
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := store.GetToken(ctx, "ops")
	require.NoError(t, err)
	assert.Equal(t, "c1", got.Ciphertext)
}

func TestUpdateTokenConcurrentWritesAreNotLost(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	putToken(t, store, model.Token{Name: "ops", Status: model.TokenStatusActive})

	const writers = 32
	var wg sync.WaitGroup
	for range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, store.UpdateToken(ctx, "ops", false, func(token *model.Token) error {
				token.Description += "x"
				return nil
			}))
		}()
	}
	wg.Wait()

	got, err := store.GetToken(ctx, "ops")
	require.NoError(t, err)
	assert.Len(t, got.Description, writers)
}

func TestDeliveryLogsAreSequenced(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)

	for _, msg := range []string{"first", "second", "third"} {
		entry := &model.DeliveryLog{TokenName: "ops", Message: msg, Status: model.DeliveryStatusSuccess}
		require.NoError(t, store.AppendDeliveryLog(ctx, entry))
		assert.NotZero(t, entry.ID)
	}

	logs, err := store.ListDeliveryLogs(ctx)
	require.NoError(t, err)
	require.Len(t, logs, 3)
	assert.Equal(t, uint64(1), logs[0].ID)
	assert.Equal(t, "third", logs[2].Message)
}

func TestCanceledContext(t *testing.T) {
	store := openStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.ListTokens(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

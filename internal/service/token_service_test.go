package service_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/goog1e-app/line-notify/internal/model"
	"github.com/goog1e-app/line-notify/internal/service"
	"github.com/goog1e-app/line-notify/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenService_RegisterStoresCiphertext(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	svc := service.NewTokenService(store, newTestConfig())

	view, err := svc.Register(ctx, service.TokenRequest{Name: "ops", AccessToken: "AbCdEfGhIjKl", Description: "ops room"})
	require.NoError(t, err)
	assert.Equal(t, "AbCd********", view.MaskedToken)
	assert.Equal(t, model.TokenStatusActive, view.Status)

	stored, err := store.GetToken(ctx, "ops")
	require.NoError(t, err)
	assert.NotContains(t, stored.Ciphertext, "AbCdEfGhIjKl")
	assert.Len(t, stored.IV, 16)

	bearer, err := svc.Resolve(ctx, "ops")
	require.NoError(t, err)
	assert.Equal(t, "AbCdEfGhIjKl", bearer)
}

func TestTokenService_RevokeAndActivate(t *testing.T) {
	ctx := context.Background()
	svc := service.NewTokenService(newTestStore(t), newTestConfig())
	_, err := svc.Register(ctx, service.TokenRequest{Name: "ops", AccessToken: "token-1"})
	require.NoError(t, err)

	require.NoError(t, svc.Revoke(ctx, "ops"))
	_, err = svc.Resolve(ctx, "ops")
	assert.ErrorIs(t, err, service.ErrTokenRevoked)

	view, err := svc.Get(ctx, "ops")
	require.NoError(t, err)
	assert.Equal(t, model.TokenStatusRevoked, view.Status)
	assert.NotNil(t, view.RevokedAt)

	names, err := svc.ActiveNames(ctx)
	require.NoError(t, err)
	assert.Empty(t, names)

	require.NoError(t, svc.Activate(ctx, "ops"))
	bearer, err := svc.Resolve(ctx, "ops")
	require.NoError(t, err)
	assert.Equal(t, "token-1", bearer)
}

func TestTokenService_Validation(t *testing.T) {
	ctx := context.Background()
	svc := service.NewTokenService(newTestStore(t), newTestConfig())

	_, err := svc.Register(ctx, service.TokenRequest{Name: " ", AccessToken: "x"})
	assert.Error(t, err)
	_, err = svc.Register(ctx, service.TokenRequest{Name: "ops"})
	assert.Error(t, err)

	_, err = svc.Resolve(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, "missing"), storage.ErrNotFound)
}

func TestTokenService_List(t *testing.T) {
	ctx := context.Background()
	svc := service.NewTokenService(newTestStore(t), newTestConfig())
	for _, name := range []string{"b", "a"} {
		_, err := svc.Register(ctx, service.TokenRequest{Name: name, AccessToken: "tok-" + name})
		require.NoError(t, err)
	}
	views, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, "a", views[0].Name)
	assert.Equal(t, "tok-*", views[0].MaskedToken)
}

func TestTokenService_RevokeMissingDoesNotCreate(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	svc := service.NewTokenService(store, newTestConfig())

	assert.ErrorIs(t, svc.Revoke(ctx, "ghost"), storage.ErrNotFound)
	_, err := store.GetToken(ctx, "ghost")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestTokenService_ConcurrentRegisterAndRevokeStayConsistent(t *testing.T) {
	ctx := context.Background()
	svc := service.NewTokenService(newTestStore(t), newTestConfig())
	_, err := svc.Register(ctx, service.TokenRequest{Name: "ops", AccessToken: "token-0"})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := svc.Register(ctx, service.TokenRequest{Name: "ops", AccessToken: fmt.Sprintf("token-%d", i)})
			assert.NoError(t, err)
		}()
		go func() {
			defer wg.Done()
			assert.NoError(t, svc.Revoke(ctx, "ops"))
		}()
	}
	wg.Wait()

	view, err := svc.Get(ctx, "ops")
	require.NoError(t, err)
	if view.Status == model.TokenStatusRevoked {
		assert.NotNil(t, view.RevokedAt)
	} else {
		assert.Nil(t, view.RevokedAt)
	}
	require.NoError(t, svc.Activate(ctx, "ops"))
	bearer, err := svc.Resolve(ctx, "ops")
	require.NoError(t, err)
	assert.Regexp(t, `^token-\d+$`, bearer)
}

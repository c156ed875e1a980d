package service_test

import (
	"context"
	"io"
	"path/filepath"
	"sync"
	"testing"

	"github.com/goog1e-app/line-notify/internal/config"
	"github.com/goog1e-app/line-notify/internal/notifyclient"
	"github.com/goog1e-app/line-notify/internal/storage/bolt"
	"github.com/stretchr/testify/require"
)

func newTestConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Crypto.SecretKey = "0123456789abcdef0123456789abcdef"
	cfg.Notify.BroadcastLimit = 4
	cfg.Notify.RevokeOnInvalid = true
	cfg.Auth.Enabled = true
	cfg.Auth.Username = "admin"
	cfg.Auth.Password = "s3cret"
	cfg.Auth.JWTSecret = "jwt-secret"
	return cfg
}

func newTestStore(t *testing.T) *bolt.Store {
	t.Helper()
	store, err := bolt.New(filepath.Join(t.TempDir(), "notify.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

type sentCall struct {
	token   string
	kind    string
	message string
	content string
}

type fakeSender struct {
	mu    sync.Mutex
	calls []sentCall
	reply func(token string) (notifyclient.Response, error)
}

func (f *fakeSender) Send(_ context.Context, token string, msg notifyclient.Message) (notifyclient.Response, error) {
	call := sentCall{token: token, kind: msg.Kind(), message: msg.Text()}
	if file, ok := msg.(notifyclient.ImageFile); ok && file.Content != nil {
		data, _ := io.ReadAll(file.Content)
		call.content = string(data)
	}
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()
	if f.reply == nil {
		return notifyclient.Response{Status: 200, Message: "ok"}, nil
	}
	return f.reply(token)
}

func (f *fakeSender) Calls() []sentCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentCall(nil), f.calls...)
}

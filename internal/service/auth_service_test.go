package service_test

import (
	"testing"

	"github.com/goog1e-app/line-notify/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestAuthService_LoginAndValidate(t *testing.T) {
	svc := service.NewAuthService(newTestConfig())

	_, err := svc.Authenticate("admin", "wrong")
	assert.ErrorIs(t, err, service.ErrBadCredentials)

	token, err := svc.Authenticate(" admin ", "s3cret")
	require.NoError(t, err)

	claims, err := svc.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "admin", claims.Username)

	_, err = svc.Validate(token + "x")
	assert.ErrorIs(t, err, service.ErrInvalidSession)
}

func TestAuthService_BcryptPassword(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.MinCost)
	require.NoError(t, err)
	cfg := newTestConfig()
	cfg.Auth.Password = string(hash)
	svc := service.NewAuthService(cfg)

	_, err = svc.Authenticate("admin", "hunter2")
	assert.NoError(t, err)
	_, err = svc.Authenticate("admin", string(hash))
	assert.Error(t, err)
}

func TestAuthService_Disabled(t *testing.T) {
	cfg := newTestConfig()
	cfg.Auth.Enabled = false
	svc := service.NewAuthService(cfg)

	assert.False(t, svc.Enabled())
	claims, err := svc.Validate("anything")
	require.NoError(t, err)
	assert.Equal(t, "anonymous", claims.Username)
}

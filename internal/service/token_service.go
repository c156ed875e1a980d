package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goog1e-app/line-notify/internal/config"
	"github.com/goog1e-app/line-notify/internal/crypto"
	"github.com/goog1e-app/line-notify/internal/model"
	"github.com/goog1e-app/line-notify/internal/storage"
)

// ErrTokenRevoked is returned when a revoked token is asked to send.
var ErrTokenRevoked = errors.New("token revoked")

// TokenService manages named access tokens, encrypted at rest.
type TokenService struct {
	store storage.Store
	key   []byte
}

// TokenRequest describes a token registration.
type TokenRequest struct {
	Name        string `json:"name"`
	AccessToken string `json:"accessToken"`
	Description string `json:"description"`
}

// NewTokenService constructs TokenService.
func NewTokenService(store storage.Store, cfg *config.Config) *TokenService {
	return &TokenService{store: store, key: []byte(cfg.Crypto.SecretKey)}
}

// Register encrypts and stores a token, replacing any token with the same name.
// Re-registering a revoked name reactivates it.
func (s *TokenService) Register(ctx context.Context, req TokenRequest) (*model.TokenView, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("token name is required")
	}
	accessToken := strings.TrimSpace(req.AccessToken)
	if accessToken == "" {
		return nil, fmt.Errorf("access token is required")
	}

	iv, err := crypto.NewIV()
	if err != nil {
		return nil, err
	}
	ciphertext, err := crypto.EncryptToBase64([]byte(accessToken), s.key, []byte(iv))
	if err != nil {
		return nil, fmt.Errorf("encrypt token: %w", err)
	}

	var saved model.Token
	err = s.store.UpdateToken(ctx, name, true, func(token *model.Token) error {
		token.Ciphertext = ciphertext
		token.IV = iv
		token.Description = strings.TrimSpace(req.Description)
		token.Status = model.TokenStatusActive
		token.RevokedAt = nil
		saved = *token
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.view(&saved, accessToken), nil
}

// Get returns a masked view of one token.
func (s *TokenService) Get(ctx context.Context, name string) (*model.TokenView, error) {
	token, err := s.store.GetToken(ctx, name)
	if err != nil {
		return nil, err
	}
	plain, err := s.decrypt(token)
	if err != nil {
		return nil, err
	}
	return s.view(token, plain), nil
}

// List returns masked views of every token.
func (s *TokenService) List(ctx context.Context) ([]*model.TokenView, error) {
	tokens, err := s.store.ListTokens(ctx)
	if err != nil {
		return nil, err
	}
	views := make([]*model.TokenView, 0, len(tokens))
	for _, token := range tokens {
		plain, err := s.decrypt(token)
		if err != nil {
			plain = ""
		}
		views = append(views, s.view(token, plain))
	}
	return views, nil
}

// ActiveNames lists the names of tokens that may send.
func (s *TokenService) ActiveNames(ctx context.Context) ([]string, error) {
	tokens, err := s.store.ListActiveTokens(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(tokens))
	for _, token := range tokens {
		names = append(names, token.Name)
	}
	return names, nil
}

// Resolve returns the bearer string for an active token.
func (s *TokenService) Resolve(ctx context.Context, name string) (string, error) {
	token, err := s.store.GetToken(ctx, name)
	if err != nil {
		return "", err
	}
	if !token.Active() {
		return "", ErrTokenRevoked
	}
	return s.decrypt(token)
}

// Revoke marks a token unusable.
func (s *TokenService) Revoke(ctx context.Context, name string) error {
	return s.setStatus(ctx, name, model.TokenStatusRevoked)
}

// Activate re-enables a revoked token.
func (s *TokenService) Activate(ctx context.Context, name string) error {
	return s.setStatus(ctx, name, model.TokenStatusActive)
}

// Delete removes a token.
func (s *TokenService) Delete(ctx context.Context, name string) error {
	return s.store.DeleteToken(ctx, name)
}

func (s *TokenService) setStatus(ctx context.Context, name, status string) error {
	return s.store.UpdateToken(ctx, name, false, func(token *model.Token) error {
		if token.Status == status {
			return nil
		}
		token.Status = status
		if status == model.TokenStatusRevoked {
			now := time.Now().UTC()
			token.RevokedAt = &now
		} else {
			token.RevokedAt = nil
		}
		return nil
	})
}

func (s *TokenService) decrypt(token *model.Token) (string, error) {
	plain, err := crypto.DecryptFromBase64(token.Ciphertext, s.key, []byte(token.IV))
	if err != nil {
		return "", fmt.Errorf("decrypt token %q: %w", token.Name, err)
	}
	return string(plain), nil
}

func (s *TokenService) view(token *model.Token, plain string) *model.TokenView {
	return &model.TokenView{
		Name:        token.Name,
		MaskedToken: maskToken(plain),
		Description: token.Description,
		Status:      firstNonEmpty(token.Status, model.TokenStatusActive),
		CreatedAt:   token.CreatedAt,
		UpdatedAt:   token.UpdatedAt,
		RevokedAt:   token.RevokedAt,
	}
}

func maskToken(value string) string {
	runes := []rune(strings.TrimSpace(value))
	if len(runes) <= 4 {
		return strings.Repeat("*", len(runes))
	}
	return string(runes[:4]) + strings.Repeat("*", len(runes)-4)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

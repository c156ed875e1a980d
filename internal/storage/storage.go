package storage

import (
	"context"

	"github.com/goog1e-app/line-notify/internal/model"
)

// Store abstracts token and delivery log persistence.
type Store interface {
	GetToken(ctx context.Context, name string) (*model.Token, error)
	// UpdateToken loads the token (or a fresh one when create is set), applies
	// fn and saves the result in one transaction. fn's error aborts the write.
	UpdateToken(ctx context.Context, name string, create bool, fn func(token *model.Token) error) error
	ListTokens(ctx context.Context) ([]*model.Token, error)
	ListActiveTokens(ctx context.Context) ([]*model.Token, error)
	DeleteToken(ctx context.Context, name string) error
	AppendDeliveryLog(ctx context.Context, log *model.DeliveryLog) error
	ListDeliveryLogs(ctx context.Context) ([]*model.DeliveryLog, error)
	Close() error
}

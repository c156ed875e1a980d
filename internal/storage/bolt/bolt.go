package bolt

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goog1e-app/line-notify/internal/model"
	"github.com/goog1e-app/line-notify/internal/storage"
	bolt "go.etcd.io/bbolt"
)

var _ storage.Store = (*Store)(nil)

var (
	bucketTokens       = []byte("tokens")
	bucketDeliveryLogs = []byte("delivery_logs")
)

// Store is a BoltDB-backed Store implementation.
type Store struct {
	db *bolt.DB
}

// New opens (or creates) the Bolt file at path.
func New(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{bucketTokens, bucketDeliveryLogs} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close closes underlying Bolt DB.
func (s *Store) Close() error {
	return s.db.Close()
}

// UpdateToken performs a read-modify-write of one token inside a single
// Bolt transaction.
func (s *Store) UpdateToken(ctx context.Context, name string, create bool, fn func(token *model.Token) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return storage.ErrEmptyKey
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketTokens)
		token := &model.Token{}
		if raw := bucket.Get([]byte(name)); raw != nil {
			if err := json.Unmarshal(raw, token); err != nil {
				return err
			}
		} else if !create {
			return storage.ErrNotFound
		}
		token.Name = name
		now := time.Now().UTC()
		if token.CreatedAt.IsZero() {
			token.CreatedAt = now
		}
		token.UpdatedAt = now
		if err := fn(token); err != nil {
			return err
		}
		payload, err := json.Marshal(token)
		if err != nil {
			return err
		}
		return bucket.Put([]byte(name), payload)
	})
}

// GetToken fetches a token by name.
func (s *Store) GetToken(ctx context.Context, name string) (*model.Token, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var token *model.Token
	err := s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(bucketTokens).Get([]byte(strings.TrimSpace(name)))
		if raw == nil {
			return storage.ErrNotFound
		}
		token = &model.Token{}
		return json.Unmarshal(raw, token)
	})
	if err != nil {
		return nil, err
	}
	return token, nil
}

// ListTokens returns all tokens ordered by name.
func (s *Store) ListTokens(ctx context.Context) ([]*model.Token, error) {
	return s.listTokens(ctx, func(*model.Token) bool { return true })
}

// ListActiveTokens returns ACTIVE tokens only.
func (s *Store) ListActiveTokens(ctx context.Context) ([]*model.Token, error) {
	return s.listTokens(ctx, (*model.Token).Active)
}

func (s *Store) listTokens(ctx context.Context, filter func(*model.Token) bool) ([]*model.Token, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var tokens []*model.Token
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketTokens).ForEach(func(_, v []byte) error {
			var token model.Token
			if err := json.Unmarshal(v, &token); err != nil {
				return err
			}
			if filter(&token) {
				tokens = append(tokens, &token)
			}
			return nil
		})
	})
	return tokens, err
}

// DeleteToken removes a token by name.
func (s *Store) DeleteToken(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		bkt := tx.Bucket(bucketTokens)
		key := []byte(strings.TrimSpace(name))
		if bkt.Get(key) == nil {
			return storage.ErrNotFound
		}
		return bkt.Delete(key)
	})
}

// AppendDeliveryLog stores a send attempt and assigns its ID.
func (s *Store) AppendDeliveryLog(ctx context.Context, log *model.DeliveryLog) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		bkt := tx.Bucket(bucketDeliveryLogs)
		id, err := bkt.NextSequence()
		if err != nil {
			return err
		}
		log.ID = id
		payload, err := json.Marshal(log)
		if err != nil {
			return err
		}
		key := make([]byte, 8)
		binary.BigEndian.PutUint64(key, id)
		return bkt.Put(key, payload)
	})
}

// ListDeliveryLogs returns all delivery logs in insertion order.
func (s *Store) ListDeliveryLogs(ctx context.Context) ([]*model.DeliveryLog, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var logs []*model.DeliveryLog
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketDeliveryLogs).ForEach(func(_, v []byte) error {
			var log model.DeliveryLog
			if err := json.Unmarshal(v, &log); err != nil {
				return err
			}
			logs = append(logs, &log)
			return nil
		})
	})
	return logs, err
}

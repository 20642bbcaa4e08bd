package cart

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/Windi-Fikriyansyah/handloom_be/internal/backend"
	"github.com/Windi-Fikriyansyah/handloom_be/internal/kv"
	"github.com/Windi-Fikriyansyah/handloom_be/internal/models"
)

// Store keeps a shopper's cart between sessions.
type Store interface {
	Load(ctx context.Context, userID string) ([]Item, error)
	Save(ctx context.Context, userID string, items []Item) error
	Clear(ctx context.Context, userID string) error
}

const cartsTable = "carts"

// RemoteStore keeps carts in the carts table, one row per user.
type RemoteStore struct {
	client backend.Client
	log    *zap.Logger
}

func NewRemoteStore(client backend.Client, logger *zap.Logger) *RemoteStore {
	return &RemoteStore{client: client, log: logger}
}

func (s *RemoteStore) Load(ctx context.Context, userID string) ([]Item, error) {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return nil, fmt.Errorf("cart user id: %w", err)
	}
	var rows []models.CartRecord
	if err := s.client.QueryRows(ctx, cartsTable, backend.Query{Filters: backend.Filters{"user_id": uid}, Limit: 1}, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 || len(rows[0].Items) == 0 {
		return []Item{}, nil
	}
	var items []Item
	if err := json.Unmarshal(rows[0].Items, &items); err != nil {
		s.log.Warn("stored cart is not valid json, starting empty", zap.String("user", userID), zap.Error(err))
		return []Item{}, nil
	}
	return items, nil
}

func (s *RemoteStore) Save(ctx context.Context, userID string, items []Item) error {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return fmt.Errorf("cart user id: %w", err)
	}
	if items == nil {
		items = []Item{}
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return err
	}
	now := time.Now()
	n, err := s.client.UpdateRow(ctx, cartsTable, backend.Filters{"user_id": uid}, map[string]any{
		"items":      datatypes.JSON(raw),
		"updated_at": now,
	})
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	return s.client.InsertRow(ctx, cartsTable, &models.CartRecord{UserID: uid, Items: datatypes.JSON(raw), UpdatedAt: now})
}

func (s *RemoteStore) Clear(ctx context.Context, userID string) error {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return fmt.Errorf("cart user id: %w", err)
	}
	_, err = s.client.DeleteRow(ctx, cartsTable, backend.Filters{"user_id": uid}, &models.CartRecord{})
	return err
}

// SessionStore keeps carts under a per-user key of the kv store.
type SessionStore struct {
	kv  kv.Store
	log *zap.Logger
}

func NewSessionStore(store kv.Store, logger *zap.Logger) *SessionStore {
	return &SessionStore{kv: store, log: logger}
}

func SessionKey(userID string) string { return "handloom_cart:" + userID }

func (s *SessionStore) Load(ctx context.Context, userID string) ([]Item, error) {
	var items []Item
	if !kv.LoadJSON(ctx, s.kv, SessionKey(userID), &items, s.log) {
		return []Item{}, nil
	}
	return items, nil
}

func (s *SessionStore) Save(ctx context.Context, userID string, items []Item) error {
	if items == nil {
		items = []Item{}
	}
	return kv.SaveJSON(ctx, s.kv, SessionKey(userID), items)
}

func (s *SessionStore) Clear(ctx context.Context, userID string) error {
	return s.kv.Remove(ctx, SessionKey(userID))
}

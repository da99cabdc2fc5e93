package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ariefcatur/go-storefront-bff/internal/redisx"
	"github.com/ariefcatur/go-storefront-bff/internal/storefront"
)

// ErrMiss is returned when no copy of the cart is held.
var ErrMiss = errors.New("cart not cached")

// Mirror keeps the last cart the backend returned for a session.
type Mirror interface {
	Get(ctx context.Context, sessionID string) (*storefront.Cart, error)
	Save(ctx context.Context, sessionID string, c *storefront.Cart) error
	Clear(ctx context.Context, sessionID string) error
}

type RedisMirror struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewRedisMirror(rdb redis.Cmdable, ttl time.Duration) *RedisMirror {
	return &RedisMirror{rdb: rdb, ttl: ttl}
}

func mirrorKey(sessionID string) string { return fmt.Sprintf(redisx.KeyCartMirror, sessionID) }

func (m *RedisMirror) Get(ctx context.Context, sessionID string) (*storefront.Cart, error) {
	b, err := m.rdb.Get(ctx, mirrorKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, fmt.Errorf("read cart mirror: %w", err)
	}
	var c storefront.Cart
	if err := json.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("decode cart mirror: %w", err)
	}
	return &c, nil
}

func (m *RedisMirror) Save(ctx context.Context, sessionID string, c *storefront.Cart) error {
	b, err := json.Marshal(c)
	if err != nil {
		return err
	}
	return m.rdb.Set(ctx, mirrorKey(sessionID), b, m.ttl).Err()
}

func (m *RedisMirror) Clear(ctx context.Context, sessionID string) error {
	return m.rdb.Del(ctx, mirrorKey(sessionID)).Err()
}

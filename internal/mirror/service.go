// Package mirror consumes storefront events and maintains the durable cart snapshots.
package mirror

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	kafkax "github.com/ariefcatur/go-storefront-bff/internal/kafka"
	"github.com/ariefcatur/go-storefront-bff/internal/redisx"
	"github.com/ariefcatur/go-storefront-bff/internal/storefront"
)

type Snapshots interface {
	// Upsert stores c unless a snapshot taken after at is already held.
	Upsert(ctx context.Context, sessionID, email string, c storefront.Cart, at time.Time) error
	Delete(ctx context.Context, sessionID string) error
}

// CartCache is the Redis cart mirror written by the API.
type CartCache interface {
	Clear(ctx context.Context, sessionID string) error
}

// Deduper claims an event id once. A false result means the event was already handled.
type Deduper interface {
	Claim(ctx context.Context, eventID string) (bool, error)
	Release(ctx context.Context, eventID string) error
}

type RedisDeduper struct {
	rdb     redis.Cmdable
	service string
	ttl     time.Duration
}

func NewRedisDeduper(rdb redis.Cmdable, service string) *RedisDeduper {
	return &RedisDeduper{rdb: rdb, service: service, ttl: redisx.TTLDedup}
}

func (d *RedisDeduper) key(eventID string) string {
	return fmt.Sprintf(redisx.KeyDedup, d.service, eventID)
}

func (d *RedisDeduper) Claim(ctx context.Context, eventID string) (bool, error) {
	return redisx.Claim(ctx, d.rdb, d.key(eventID), d.ttl)
}

func (d *RedisDeduper) Release(ctx context.Context, eventID string) error {
	return d.rdb.Del(ctx, d.key(eventID)).Err()
}

// Tombstones remember sessions that were cleared, so a late CartSynced cannot revive them.
type Tombstones interface {
	Mark(ctx context.Context, sessionID string) error
	Marked(ctx context.Context, sessionID string) (bool, error)
}

type RedisTombstones struct {
	rdb redis.Cmdable
}

func NewRedisTombstones(rdb redis.Cmdable) *RedisTombstones { return &RedisTombstones{rdb: rdb} }

func (t *RedisTombstones) Mark(ctx context.Context, sessionID string) error {
	return t.rdb.Set(ctx, fmt.Sprintf(redisx.KeyClearedSession, sessionID), "1", redisx.TTLCleared).Err()
}

func (t *RedisTombstones) Marked(ctx context.Context, sessionID string) (bool, error) {
	return redisx.Exists(ctx, t.rdb, fmt.Sprintf(redisx.KeyClearedSession, sessionID))
}

type Service struct {
	Snapshots  Snapshots
	Carts      CartCache
	Dedup      Deduper
	Tombstones Tombstones
	Log        *zap.Logger
}

// Handle is installed as the consumer handler for the session events topic.
func (s *Service) Handle(ctx context.Context, m kafkago.Message) error {
	switch kafkax.HeaderValue(m, "x-event-type") {
	case "", storefront.EventCartSynced, storefront.EventSessionCleared:
	default:
		return nil
	}

	var env storefront.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		// poison message, commit it and move on
		s.Log.Error("undecodable envelope", zap.String("topic", m.Topic), zap.Int64("offset", m.Offset), zap.Error(err))
		return nil
	}

	var apply func(context.Context, storefront.Envelope) error
	switch env.EventType {
	case storefront.EventCartSynced:
		apply = s.applyCartSynced
	case storefront.EventSessionCleared:
		apply = s.applySessionCleared
	default:
		return nil
	}

	ok, err := s.Dedup.Claim(ctx, env.EventID)
	if err != nil {
		return fmt.Errorf("dedup %s: %w", env.EventID, err)
	}
	if !ok {
		s.Log.Debug("duplicate event", zap.String("event_id", env.EventID))
		return nil
	}
	if err := apply(ctx, env); err != nil {
		// let a redelivery retry it
		if rerr := s.Dedup.Release(ctx, env.EventID); rerr != nil {
			s.Log.Warn("release dedup key", zap.String("event_id", env.EventID), zap.Error(rerr))
		}
		return err
	}
	return nil
}

func (s *Service) applyCartSynced(ctx context.Context, env storefront.Envelope) error {
	p, err := kafkax.UnwrapPayload[storefront.CartSyncedPayload](env.Payload)
	if err != nil {
		return err
	}
	cleared, err := s.Tombstones.Marked(ctx, p.SessionID)
	if err != nil {
		return fmt.Errorf("check cleared %s: %w", p.SessionID, err)
	}
	if cleared {
		s.Log.Debug("cart for cleared session skipped", zap.String("session_id", p.SessionID))
		return nil
	}
	if err := s.Snapshots.Upsert(ctx, p.SessionID, p.Email, p.Cart, env.OccurredAt); err != nil {
		return err
	}
	s.Log.Debug("cart snapshot stored", zap.String("session_id", p.SessionID), zap.Int("items", p.Cart.ItemCount()))
	return nil
}

func (s *Service) applySessionCleared(ctx context.Context, env storefront.Envelope) error {
	p, err := kafkax.UnwrapPayload[storefront.SessionClearedPayload](env.Payload)
	if err != nil {
		return err
	}
	if err := s.Tombstones.Mark(ctx, p.SessionID); err != nil {
		return fmt.Errorf("mark cleared %s: %w", p.SessionID, err)
	}
	if err := s.Snapshots.Delete(ctx, p.SessionID); err != nil {
		return err
	}
	if err := s.Carts.Clear(ctx, p.SessionID); err != nil {
		return fmt.Errorf("clear cart mirror: %w", err)
	}
	s.Log.Info("session purged", zap.String("session_id", p.SessionID), zap.String("reason", p.Reason))
	return nil
}

package session

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/ariefcatur/go-storefront-bff/internal/backend"
	"github.com/ariefcatur/go-storefront-bff/internal/storefront"
)

// CartSyncer refetches the backend cart for a session.
type CartSyncer interface {
	Sync(ctx context.Context, s storefront.Session) error
}

// Refresher revalidates sessions on a fixed interval. There is no jitter or backoff:
// a failed session is retried on the next tick, a rejected one is cleared.
// Sessions not seen for maxAge are purged instead of refreshed.
type Refresher struct {
	svc      *Service
	carts    CartSyncer
	interval time.Duration
	maxAge   time.Duration
	batch    int
	log      *zap.Logger
}

func NewRefresher(svc *Service, carts CartSyncer, interval, maxAge time.Duration, log *zap.Logger) *Refresher {
	return &Refresher{svc: svc, carts: carts, interval: interval, maxAge: maxAge, batch: 200, log: log.Named("refresher")}
}

func (r *Refresher) Run(ctx context.Context) {
	t := time.NewTicker(r.interval)
	defer t.Stop()
	r.log.Info("refresher started", zap.Duration("interval", r.interval))
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n := r.Tick(ctx)
			if n > 0 {
				r.log.Info("sessions refreshed", zap.Int("count", n))
			}
		}
	}
}

// Tick purges expired sessions, then refreshes every stale session once, page by page.
// It returns how many refreshes succeeded.
func (r *Refresher) Tick(ctx context.Context) int {
	now := r.svc.now()
	if n := r.purge(ctx, now.Add(-r.maxAge)); n > 0 {
		r.log.Info("expired sessions purged", zap.Int("count", n))
	}

	q := StaleQuery{Before: now.Add(-r.interval), SeenAfter: now.Add(-r.maxAge), Limit: r.batch}
	ok := 0
	for ctx.Err() == nil {
		page, err := r.svc.store.ListStale(ctx, q)
		if err != nil {
			r.log.Error("list stale sessions", zap.Error(err))
			break
		}
		for _, s := range page {
			if ctx.Err() != nil {
				return ok
			}
			if r.refresh(ctx, s) {
				ok++
			}
		}
		if len(page) < r.batch {
			break
		}
		last := page[len(page)-1]
		q.AfterValidated, q.AfterID = last.ValidatedAt, last.ID
	}
	return ok
}

// purge clears sessions last seen before the cutoff. It stops when a page makes no progress.
func (r *Refresher) purge(ctx context.Context, before time.Time) int {
	n := 0
	for ctx.Err() == nil {
		expired, err := r.svc.store.ListExpired(ctx, before, r.batch)
		if err != nil {
			r.log.Error("list expired sessions", zap.Error(err))
			break
		}
		cleared := 0
		for _, s := range expired {
			if err := r.svc.Clear(ctx, s.ID, storefront.ReasonExpired); err != nil {
				r.log.Warn("purge session", zap.String("session_id", s.ID), zap.Error(err))
				continue
			}
			cleared++
		}
		n += cleared
		if len(expired) < r.batch || cleared == 0 {
			break
		}
	}
	return n
}

func (r *Refresher) refresh(ctx context.Context, s storefront.Session) bool {
	fresh, err := r.svc.Validate(ctx, s)
	if err == nil && r.carts != nil {
		err = r.carts.Sync(ctx, fresh)
	}
	switch {
	case err == nil:
		return true
	case errors.Is(err, backend.ErrUnauthorized):
		if cerr := r.svc.Clear(ctx, s.ID, storefront.ReasonExpired); cerr != nil {
			r.log.Error("clear expired session", zap.String("session_id", s.ID), zap.Error(cerr))
		}
	default:
		r.log.Warn("refresh failed", zap.String("session_id", s.ID), zap.Error(err))
	}
	return false
}

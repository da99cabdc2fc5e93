// Package cart relays cart operations to the backend and keeps a fallback copy per session.
package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-storefront-bff/internal/backend"
	kafkax "github.com/ariefcatur/go-storefront-bff/internal/kafka"
	"github.com/ariefcatur/go-storefront-bff/internal/storefront"
)

type Backend interface {
	GetCart(ctx context.Context, jwt string) (*storefront.Cart, error)
	AddToCart(ctx context.Context, jwt, variantID string, qty int) error
	UpdateQuantity(ctx context.Context, jwt, itemID string, qty int) error
	RemoveItem(ctx context.Context, jwt, itemID string) error
	GetProduct(ctx context.Context, id string) (storefront.Product, error)
}

type Snapshots interface {
	Get(ctx context.Context, sessionID string) (*storefront.Cart, error)
}

type Publisher interface {
	Publish(key, value []byte, headers ...kafka.Header)
}

// View is what callers get back: the cart, its item count and whether it came from a fallback copy.
type View struct {
	Cart      *storefront.Cart `json:"cart"`
	ItemCount int              `json:"itemCount"`
	Stale     bool             `json:"stale"`
}

func newView(c *storefront.Cart, stale bool) View {
	return View{Cart: c, ItemCount: c.ItemCount(), Stale: stale}
}

type Service struct {
	backend   Backend
	mirror    Mirror
	snapshots Snapshots
	pub       Publisher
	producer  string
	log       *zap.Logger
}

func NewService(be Backend, mirror Mirror, snapshots Snapshots, pub Publisher, producer string, log *zap.Logger) *Service {
	return &Service{
		backend:   be,
		mirror:    mirror,
		snapshots: snapshots,
		pub:       pub,
		producer:  producer,
		log:       log.Named("cart"),
	}
}

// Fetch loads the cart from the backend. When the backend is unreachable the mirror,
// then the snapshot, is served with Stale set.
func (s *Service) Fetch(ctx context.Context, sess storefront.Session) (View, error) {
	c, err := s.backend.GetCart(ctx, sess.JWT)
	if err == nil {
		s.remember(ctx, sess, c)
		return newView(c, false), nil
	}
	if !errors.Is(err, backend.ErrUnavailable) {
		return View{}, fmt.Errorf("get cart: %w", err)
	}

	if c, merr := s.mirror.Get(ctx, sess.ID); merr == nil {
		s.log.Warn("serving mirrored cart", zap.String("session_id", sess.ID), zap.Error(err))
		return newView(c, true), nil
	} else if !errors.Is(merr, ErrMiss) {
		s.log.Error("cart mirror", zap.Error(merr))
	}
	if s.snapshots != nil {
		if c, serr := s.snapshots.Get(ctx, sess.ID); serr == nil {
			s.log.Warn("serving cart snapshot", zap.String("session_id", sess.ID), zap.Error(err))
			return newView(c, true), nil
		} else if !errors.Is(serr, ErrMiss) {
			s.log.Error("cart snapshot", zap.Error(serr))
		}
	}
	return View{}, fmt.Errorf("get cart: %w", err)
}

// Sync refetches the cart without any fallback.
func (s *Service) Sync(ctx context.Context, sess storefront.Session) error {
	c, err := s.backend.GetCart(ctx, sess.JWT)
	if err != nil {
		return fmt.Errorf("sync cart: %w", err)
	}
	s.remember(ctx, sess, c)
	return nil
}

func (s *Service) Add(ctx context.Context, sess storefront.Session, variantID string, qty int) (View, error) {
	if qty < 1 {
		return View{}, storefront.ErrInvalidQuantity
	}
	if err := s.backend.AddToCart(ctx, sess.JWT, variantID, qty); err != nil {
		return View{}, fmt.Errorf("add to cart: %w", err)
	}
	return s.Fetch(ctx, sess)
}

func (s *Service) UpdateQuantity(ctx context.Context, sess storefront.Session, itemID string, qty int) (View, error) {
	if qty < 1 {
		return View{}, storefront.ErrInvalidQuantity
	}
	if err := s.backend.UpdateQuantity(ctx, sess.JWT, itemID, qty); err != nil {
		return View{}, fmt.Errorf("update quantity: %w", err)
	}
	return s.Fetch(ctx, sess)
}

func (s *Service) Remove(ctx context.Context, sess storefront.Session, itemID string) (View, error) {
	if err := s.backend.RemoveItem(ctx, sess.JWT, itemID); err != nil {
		return View{}, fmt.Errorf("remove item: %w", err)
	}
	return s.Fetch(ctx, sess)
}

// AddSelection resolves a color/size pick on a product and adds it.
func (s *Service) AddSelection(ctx context.Context, sess storefront.Session, productID, color, size string, qty int) (storefront.Selection, View, error) {
	p, err := s.backend.GetProduct(ctx, productID)
	if err != nil {
		return storefront.Selection{}, View{}, fmt.Errorf("get product: %w", err)
	}
	sel, err := storefront.SelectVariant(p, color, size, qty)
	if err != nil {
		return storefront.Selection{}, View{}, err
	}
	v, err := s.Add(ctx, sess, sel.VariantID, sel.Quantity)
	if err != nil {
		return storefront.Selection{}, View{}, err
	}
	return sel, v, nil
}

// Clear drops the mirrored cart. The snapshot is purged by the mirror worker.
func (s *Service) Clear(ctx context.Context, sessionID string) error {
	return s.mirror.Clear(ctx, sessionID)
}

func (s *Service) remember(ctx context.Context, sess storefront.Session, c *storefront.Cart) {
	if c == nil {
		c = &storefront.Cart{}
	}
	if err := s.mirror.Save(ctx, sess.ID, c); err != nil {
		s.log.Warn("save cart mirror", zap.String("session_id", sess.ID), zap.Error(err))
	}
	if s.pub == nil {
		return
	}
	ev, err := storefront.NewEnvelope(storefront.EventCartSynced, s.producer, sess.ID, middleware.GetReqID(ctx),
		storefront.CartSyncedPayload{SessionID: sess.ID, Email: sess.Email, Cart: *c})
	if err != nil {
		s.log.Error("build event", zap.Error(err))
		return
	}
	s.pub.Publish(storefront.PartitionKey(sess.ID), kafkax.MustMarshal(ev),
		kafkax.EventHeaders(storefront.EventCartSynced, ev.EventVersion)...)
}

// Package session keeps the server-side copy of a shopper's credentials and
// reconciles it with the backend and the relayed cookies.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-storefront-bff/internal/backend"
	kafkax "github.com/ariefcatur/go-storefront-bff/internal/kafka"
	"github.com/ariefcatur/go-storefront-bff/internal/storefront"
)

var (
	// ErrNoSession means the caller is anonymous.
	ErrNoSession = errors.New("no session")
	// ErrSignedOut means credentials were rejected and local state was cleared.
	ErrSignedOut = errors.New("signed out")
)

type Backend interface {
	Authenticate(ctx context.Context, email, password string) (storefront.AuthResponse, error)
	Validate(ctx context.Context, jwt string) (storefront.AuthResponse, error)
	Logout(ctx context.Context, jwt string) error
}

type Publisher interface {
	Publish(key, value []byte, headers ...kafka.Header)
}

// CartClearer drops whatever cart state is kept for a session.
type CartClearer interface {
	Clear(ctx context.Context, sessionID string) error
}

const touchEvery = time.Minute

type Service struct {
	store    Store
	backend  Backend
	carts    CartClearer
	pub      Publisher
	producer string
	log      *zap.Logger
	now      func() time.Time
}

func NewService(store Store, be Backend, carts CartClearer, pub Publisher, producer string, log *zap.Logger) *Service {
	return &Service{
		store:    store,
		backend:  be,
		carts:    carts,
		pub:      pub,
		producer: producer,
		log:      log.Named("session"),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) Get(ctx context.Context, id string) (storefront.Session, error) {
	return s.store.Get(ctx, id)
}

// Login authenticates and persists a new session.
func (s *Service) Login(ctx context.Context, email, password string) (storefront.Session, error) {
	auth, err := s.backend.Authenticate(ctx, email, password)
	if err != nil {
		return storefront.Session{}, fmt.Errorf("authenticate: %w", err)
	}
	sess := s.build(uuid.NewString(), auth, email)
	if err := s.store.Save(ctx, sess); err != nil {
		return storefront.Session{}, err
	}
	s.log.Info("login", zap.String("session_id", sess.ID), zap.String("email", sess.Email))
	return sess, nil
}

func (s *Service) build(id string, auth storefront.AuthResponse, email string) storefront.Session {
	claimEmail, exp := readClaims(auth.JWT)
	if email == "" {
		email = claimEmail
	}
	now := s.now()
	return storefront.Session{
		ID:          id,
		JWT:         auth.JWT,
		FullName:    auth.FullName,
		Email:       email,
		ExpiresAt:   exp,
		ValidatedAt: now,
		LastSeenAt:  now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Initialize reconciles the stored session and the cookie credentials with the backend.
// It returns ErrNoSession for anonymous callers and ErrSignedOut when the backend rejected
// the credentials. When the backend is unreachable the cached session is returned as is.
func (s *Service) Initialize(ctx context.Context, sessionID, cookieToken, cookieName string) (storefront.Session, error) {
	if sessionID != "" {
		cached, err := s.store.Get(ctx, sessionID)
		switch {
		case err == nil && cached.JWT != "":
			cached.LastSeenAt = s.now()
			fresh, err := s.Validate(ctx, cached)
			switch {
			case err == nil:
				return fresh, nil
			case errors.Is(err, backend.ErrUnauthorized):
				return storefront.Session{}, s.signOut(ctx, cached.ID)
			case errors.Is(err, backend.ErrUnavailable):
				s.log.Warn("validate skipped, backend unavailable", zap.String("session_id", cached.ID), zap.Error(err))
				if err := s.store.Save(ctx, cached); err != nil {
					s.log.Warn("touch session", zap.String("session_id", cached.ID), zap.Error(err))
				}
				return cached, nil
			default:
				return storefront.Session{}, err
			}
		case err != nil && !errors.Is(err, ErrNotFound):
			return storefront.Session{}, err
		}
	}

	if cookieToken == "" {
		return storefront.Session{}, ErrNoSession
	}
	sess, err := s.Adopt(ctx, sessionID, cookieToken, cookieName)
	if errors.Is(err, backend.ErrUnauthorized) {
		return storefront.Session{}, s.signOut(ctx, sessionID)
	}
	return sess, err
}

// Adopt turns a cookie or bearer token into a stored session. If the backend cannot be
// reached the token is kept unvalidated so the refresher picks it up on its next tick.
func (s *Service) Adopt(ctx context.Context, sessionID, token, fullName string) (storefront.Session, error) {
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	auth, err := s.backend.Validate(ctx, token)
	validated := err == nil
	switch {
	case err == nil:
		if auth.JWT == "" {
			auth.JWT = token
		}
		if auth.FullName == "" {
			auth.FullName = fullName
		}
	case errors.Is(err, backend.ErrUnavailable):
		s.log.Warn("adopting unvalidated token", zap.String("session_id", sessionID), zap.Error(err))
		auth = storefront.AuthResponse{JWT: token, FullName: fullName}
	default:
		return storefront.Session{}, fmt.Errorf("validate token: %w", err)
	}

	sess := s.build(sessionID, auth, "")
	if !validated {
		sess.ValidatedAt = time.Time{}
	}
	if err := s.store.Save(ctx, sess); err != nil {
		return storefront.Session{}, err
	}
	return sess, nil
}

// ResolveToken returns the session already holding token, adopting the token into a new
// session only when none does.
func (s *Service) ResolveToken(ctx context.Context, token, fullName string) (storefront.Session, error) {
	sess, err := s.store.FindByToken(ctx, token)
	switch {
	case err == nil:
		return s.Touch(ctx, sess), nil
	case !errors.Is(err, ErrNotFound):
		return storefront.Session{}, err
	}
	return s.Adopt(ctx, "", token, fullName)
}

// Touch records activity on sess, writing at most once per touchEvery.
func (s *Service) Touch(ctx context.Context, sess storefront.Session) storefront.Session {
	now := s.now()
	if now.Sub(sess.LastSeenAt) < touchEvery {
		return sess
	}
	sess.LastSeenAt = now
	if err := s.store.Save(ctx, sess); err != nil {
		s.log.Warn("touch session", zap.String("session_id", sess.ID), zap.Error(err))
	}
	return sess
}

// Validate refreshes the credentials of sess against the backend and stores the result.
func (s *Service) Validate(ctx context.Context, sess storefront.Session) (storefront.Session, error) {
	auth, err := s.backend.Validate(ctx, sess.JWT)
	if err != nil {
		return storefront.Session{}, fmt.Errorf("validate session %s: %w", sess.ID, err)
	}
	if auth.JWT != "" {
		sess.JWT = auth.JWT
	}
	if auth.FullName != "" {
		sess.FullName = auth.FullName
	}
	email, exp := readClaims(sess.JWT)
	if sess.Email == "" {
		sess.Email = email
	}
	if !exp.IsZero() {
		sess.ExpiresAt = exp
	}
	sess.ValidatedAt = s.now()
	sess.UpdatedAt = sess.ValidatedAt
	if err := s.store.Save(ctx, sess); err != nil {
		return storefront.Session{}, err
	}
	return sess, nil
}

// Logout tells the backend (best effort) and clears local state.
func (s *Service) Logout(ctx context.Context, sess storefront.Session) error {
	if err := s.backend.Logout(ctx, sess.JWT); err != nil {
		s.log.Warn("backend logout failed", zap.String("session_id", sess.ID), zap.Error(err))
	}
	return s.Clear(ctx, sess.ID, storefront.ReasonLogout)
}

// Clear deletes the session row and its cart state, then announces it.
func (s *Service) Clear(ctx context.Context, sessionID, reason string) error {
	if sessionID == "" {
		return nil
	}
	var errs []error
	if err := s.store.Delete(ctx, sessionID); err != nil {
		errs = append(errs, err)
	}
	if s.carts != nil {
		if err := s.carts.Clear(ctx, sessionID); err != nil {
			errs = append(errs, fmt.Errorf("clear cart: %w", err))
		}
	}
	s.publishCleared(ctx, sessionID, reason)
	s.log.Info("session cleared", zap.String("session_id", sessionID), zap.String("reason", reason))
	return errors.Join(errs...)
}

func (s *Service) signOut(ctx context.Context, sessionID string) error {
	if err := s.Clear(ctx, sessionID, storefront.ReasonUnauthorized); err != nil {
		s.log.Error("clear after unauthorized", zap.String("session_id", sessionID), zap.Error(err))
	}
	return ErrSignedOut
}

func (s *Service) publishCleared(ctx context.Context, sessionID, reason string) {
	if s.pub == nil {
		return
	}
	ev, err := storefront.NewEnvelope(storefront.EventSessionCleared, s.producer, sessionID,
		middleware.GetReqID(ctx), storefront.SessionClearedPayload{SessionID: sessionID, Reason: reason})
	if err != nil {
		s.log.Error("build event", zap.Error(err))
		return
	}
	s.pub.Publish(storefront.PartitionKey(sessionID), kafkax.MustMarshal(ev),
		kafkax.EventHeaders(storefront.EventSessionCleared, ev.EventVersion)...)
}

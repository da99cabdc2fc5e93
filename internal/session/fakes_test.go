package session

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/segmentio/kafka-go"

	"github.com/ariefcatur/go-storefront-bff/internal/storefront"
)

type memStore struct {
	mu         sync.Mutex
	rows       map[string]storefront.Session
	staleCalls int
}

func newMemStore(rows ...storefront.Session) *memStore {
	m := &memStore{rows: map[string]storefront.Session{}}
	for _, r := range rows {
		m.rows[r.ID] = r
	}
	return m
}

func (m *memStore) Get(_ context.Context, id string) (storefront.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.rows[id]
	if !ok {
		return storefront.Session{}, ErrNotFound
	}
	return s, nil
}

func (m *memStore) Save(_ context.Context, s storefront.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[s.ID] = s
	return nil
}

func (m *memStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rows, id)
	return nil
}

func (m *memStore) FindByToken(_ context.Context, token string) (storefront.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var (
		found storefront.Session
		ok    bool
	)
	for _, s := range m.rows {
		if TokenHash(s.JWT) == TokenHash(token) && (!ok || s.UpdatedAt.After(found.UpdatedAt)) {
			found, ok = s, true
		}
	}
	if !ok {
		return storefront.Session{}, ErrNotFound
	}
	return found, nil
}

func (m *memStore) ListStale(_ context.Context, q StaleQuery) ([]storefront.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.staleCalls++
	var out []storefront.Session
	for _, s := range m.rows {
		if !s.ValidatedAt.Before(q.Before) || s.LastSeenAt.Before(q.SeenAfter) {
			continue
		}
		if s.ValidatedAt.Before(q.AfterValidated) || (s.ValidatedAt.Equal(q.AfterValidated) && s.ID <= q.AfterID) {
			continue
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ValidatedAt.Equal(out[j].ValidatedAt) {
			return out[i].ValidatedAt.Before(out[j].ValidatedAt)
		}
		return out[i].ID < out[j].ID
	})
	if len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (m *memStore) ListExpired(_ context.Context, before time.Time, limit int) ([]storefront.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []storefront.Session
	for _, s := range m.rows {
		if s.LastSeenAt.Before(before) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastSeenAt.Before(out[j].LastSeenAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type fakeBackend struct {
	auth        storefront.AuthResponse
	authErr     error
	validate    map[string]storefront.AuthResponse
	validateErr map[string]error
	logoutErr   error
	logouts     []string
}

func (f *fakeBackend) Authenticate(context.Context, string, string) (storefront.AuthResponse, error) {
	return f.auth, f.authErr
}

func (f *fakeBackend) Validate(_ context.Context, token string) (storefront.AuthResponse, error) {
	if err := f.validateErr[token]; err != nil {
		return storefront.AuthResponse{}, err
	}
	return f.validate[token], nil
}

func (f *fakeBackend) Logout(_ context.Context, token string) error {
	f.logouts = append(f.logouts, token)
	return f.logoutErr
}

type fakeCarts struct {
	cleared []string
	synced  []string
	syncErr error
}

func (f *fakeCarts) Clear(_ context.Context, id string) error {
	f.cleared = append(f.cleared, id)
	return nil
}

func (f *fakeCarts) Sync(_ context.Context, s storefront.Session) error {
	f.synced = append(f.synced, s.ID)
	return f.syncErr
}

type published struct {
	key     string
	value   []byte
	headers []kafka.Header
}

type fakePublisher struct{ msgs []published }

func (f *fakePublisher) Publish(key, value []byte, headers ...kafka.Header) {
	f.msgs = append(f.msgs, published{key: string(key), value: value, headers: headers})
}

func signedToken(email string, exp time.Time) string {
	claims := tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: email, ExpiresAt: jwt.NewNumericDate(exp)},
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-key"))
	if err != nil {
		panic(err)
	}
	return s
}

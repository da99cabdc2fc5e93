package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-storefront-bff/internal/backend"
	"github.com/ariefcatur/go-storefront-bff/internal/cart"
	"github.com/ariefcatur/go-storefront-bff/internal/session"
	"github.com/ariefcatur/go-storefront-bff/internal/storefront"
)

const goodToken = "tok-1"

// fakeAPI stands in for the storefront REST backend.
type fakeAPI struct {
	mu          sync.Mutex
	revoked     bool
	cartRevoked bool
	validations int
	items       []storefront.CartItem
	product  storefront.Product
	created  *storefront.ProductRequest
	lastAuth string
}

func (f *fakeAPI) authorized(r *http.Request) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastAuth = r.Header.Get("Authorization")
	return !f.revoked && f.lastAuth == "Bearer "+goodToken
}

func (f *fakeAPI) handler() http.Handler {
	r := chi.NewRouter()
	r.Post("/api/auth/authenticate", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["password"] != "secret" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Bad credentials"})
			return
		}
		writeJSON(w, http.StatusOK, storefront.AuthResponse{JWT: goodToken, FullName: "Ann Lee"})
	})
	r.Post("/api/auth/validate", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.validations++
		f.mu.Unlock()
		if !f.authorized(r) {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		writeJSON(w, http.StatusOK, storefront.AuthResponse{JWT: goodToken, FullName: "Ann Lee"})
	})
	r.Post("/api/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Get("/api/cart/get", func(w http.ResponseWriter, r *http.Request) {
		if !f.authorized(r) {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.cartRevoked {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		writeJSON(w, http.StatusOK, storefront.Cart{CartID: "c1", CartItems: f.items})
	})
	r.Post("/api/cart/add", func(w http.ResponseWriter, r *http.Request) {
		if !f.authorized(r) {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		var body struct {
			VariantID string `json:"variantId"`
			Quantity  int    `json:"quantity"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.mu.Lock()
		f.items = append(f.items, storefront.CartItem{
			CartItemID:     "i-" + body.VariantID,
			ProductVariant: storefront.ProductVariant{VariantID: body.VariantID},
			Quantity:       body.Quantity,
		})
		f.mu.Unlock()
		w.WriteHeader(http.StatusOK)
	})
	r.Get("/api/products/{id}", func(w http.ResponseWriter, r *http.Request) {
		if chi.URLParam(r, "id") != f.product.ProductID {
			writeJSON(w, http.StatusNotFound, map[string]string{"message": "Product not found"})
			return
		}
		writeJSON(w, http.StatusOK, f.product)
	})
	r.Get("/api/collections", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, []storefront.Collection{{ID: "c-summer", Name: "Summer"}})
	})
	r.Post("/api/products", func(w http.ResponseWriter, r *http.Request) {
		if !f.authorized(r) {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		var req storefront.ProductRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		f.mu.Lock()
		f.created = &req
		f.mu.Unlock()
		writeJSON(w, http.StatusOK, storefront.Product{ProductID: "p-new", Name: req.Name, Variants: req.Variants})
	})
	return r
}

type memStore struct {
	mu   sync.Mutex
	rows map[string]storefront.Session
}

func (m *memStore) Get(_ context.Context, id string) (storefront.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.rows[id]
	if !ok {
		return storefront.Session{}, session.ErrNotFound
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
	for _, s := range m.rows {
		if s.JWT == token {
			return s, nil
		}
	}
	return storefront.Session{}, session.ErrNotFound
}

func (m *memStore) ListStale(context.Context, session.StaleQuery) ([]storefront.Session, error) {
	return nil, nil
}

func (m *memStore) ListExpired(context.Context, time.Time, int) ([]storefront.Session, error) {
	return nil, nil
}

func (m *memStore) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

type memMirror struct {
	mu    sync.Mutex
	carts map[string]*storefront.Cart
}

func (m *memMirror) Get(_ context.Context, id string) (*storefront.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.carts[id]; ok {
		return c, nil
	}
	return nil, cart.ErrMiss
}

func (m *memMirror) Save(_ context.Context, id string, c *storefront.Cart) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.carts[id] = c
	return nil
}

func (m *memMirror) Clear(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.carts, id)
	return nil
}

type testEnv struct {
	router http.Handler
	api    *fakeAPI
	store  *memStore
}

func newTestEnv(t *testing.T, loginPerMin int) *testEnv {
	t.Helper()
	return buildTestEnv(t, loginPerMin, false)
}

func buildTestEnv(t *testing.T, loginPerMin int, trustProxy bool) *testEnv {
	t.Helper()
	api := &fakeAPI{}
	srv := httptest.NewServer(api.handler())
	t.Cleanup(srv.Close)

	log := zap.NewNop()
	client := backend.New(srv.URL, 2*time.Second)
	store := &memStore{rows: map[string]storefront.Session{}}
	carts := cart.NewService(client, &memMirror{carts: map[string]*storefront.Cart{}}, nil, nil, "test", log)
	sessions := session.NewService(store, client, carts, nil, "test", log)

	r := NewRouter(log, trustProxy)
	Mount(r, Deps{
		Sessions:        sessions,
		Carts:           carts,
		Catalog:         client,
		Admin:           client,
		Validator:       storefront.NewValidator(),
		Cookies:         Cookies{MaxAge: 24 * time.Hour},
		LoginRatePerMin: loginPerMin,
		Log:             log,
	})
	return &testEnv{router: r, api: api, store: store}
}

func (e *testEnv) do(t *testing.T, method, path string, body any, cookies []*http.Cookie, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) login(t *testing.T) []*http.Cookie {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/bff/auth/login", LoginReq{Email: "ann@example.com", Password: "secret"}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return rec.Result().Cookies()
}

func cookieByName(cs []*http.Cookie, name string) *http.Cookie {
	for _, c := range cs {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

package httpx

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-storefront-bff/internal/cart"
	"github.com/ariefcatur/go-storefront-bff/internal/logger"
	"github.com/ariefcatur/go-storefront-bff/internal/session"
	"github.com/ariefcatur/go-storefront-bff/internal/storefront"
)

// NewRouter builds the base router. Forwarding headers are honoured only when trustProxy is
// set; otherwise the login limiter keys on the socket address.
func NewRouter(log *zap.Logger, trustProxy bool) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	if trustProxy {
		r.Use(middleware.RealIP)
	}
	r.Use(logger.RequestLogger(log), middleware.Recoverer)
	r.Use(middleware.Timeout(15 * time.Second))
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return r
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(v)
}

type Deps struct {
	Sessions        *session.Service
	Carts           *cart.Service
	Catalog         Catalog
	Admin           Admin
	Validator       *storefront.Validator
	Cookies         Cookies
	LoginRatePerMin int
	Log             *zap.Logger
}

// Mount registers every /bff route on r.
func Mount(r chi.Router, d Deps) {
	auth := &Auth{Sessions: d.Sessions, Cookies: d.Cookies, Log: d.Log}
	(&SessionHandler{
		Auth:      auth,
		Carts:     d.Carts,
		Limiter:   NewIPLimiter(d.LoginRatePerMin),
		Validator: d.Validator,
		Log:       d.Log,
	}).Register(r)
	(&CatalogHandler{Catalog: d.Catalog}).Register(r)
	(&CartHandler{Auth: auth, Carts: d.Carts}).Register(r)
	(&AdminHandler{Auth: auth, Admin: d.Admin, Validator: d.Validator, Log: d.Log}).Register(r)
}

package httpx

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-storefront-bff/internal/apperr"
	"github.com/ariefcatur/go-storefront-bff/internal/backend"
	"github.com/ariefcatur/go-storefront-bff/internal/cart"
	"github.com/ariefcatur/go-storefront-bff/internal/session"
	"github.com/ariefcatur/go-storefront-bff/internal/storefront"
)

type LoginReq struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type SessionResp struct {
	Session storefront.Session `json:"session"`
	Cart    cart.View          `json:"cart"`
}

type SessionHandler struct {
	Auth      *Auth
	Carts     *cart.Service
	Limiter   *IPLimiter
	Validator *storefront.Validator
	Log       *zap.Logger
}

func (h *SessionHandler) Register(r chi.Router) {
	r.With(h.Limiter.Middleware).Post("/bff/auth/login", h.login)
	r.Post("/bff/auth/init", h.initialize)
	r.Group(func(r chi.Router) {
		r.Use(h.Auth.Require)
		r.Post("/bff/auth/logout", h.logout)
		r.Get("/bff/auth/session", h.current)
	})
}

func (h *SessionHandler) login(w http.ResponseWriter, r *http.Request) {
	var req LoginReq
	if err := decodeJSON(w, r, &req); err != nil {
		apperr.Write(w, apperr.BadRequest("invalid json"))
		return
	}
	if err := h.Validator.Struct(req); err != nil {
		apperr.Write(w, err)
		return
	}

	sess, err := h.Auth.Sessions.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.Auth.write(w, r, err)
		return
	}
	h.respond(w, r, sess)
}

func (h *SessionHandler) initialize(w http.ResponseWriter, r *http.Request) {
	sess, err := h.Auth.Sessions.Initialize(r.Context(),
		readCookie(r, CookieSession), readCookie(r, CookieToken), readCookie(r, CookieFullName))
	switch {
	case errors.Is(err, session.ErrNoSession):
		w.WriteHeader(http.StatusNoContent)
		return
	case errors.Is(err, session.ErrSignedOut):
		h.Auth.Cookies.Clear(w)
		apperr.Write(w, apperr.New(http.StatusUnauthorized, "Session expired", err))
		return
	case err != nil:
		h.Auth.write(w, r, err)
		return
	}
	h.respond(w, r, sess)
}

// respond sets the session cookies and returns the session with its cart. A cart the
// backend refuses with 401 signs the session out; other cart failures leave it empty.
func (h *SessionHandler) respond(w http.ResponseWriter, r *http.Request, sess storefront.Session) {
	v, err := h.cartFor(r, sess)
	if err != nil {
		h.Auth.failFor(w, r, sess.ID, err)
		return
	}
	h.Auth.Cookies.Set(w, sess)
	writeJSON(w, http.StatusOK, SessionResp{Session: sess, Cart: v})
}

func (h *SessionHandler) cartFor(r *http.Request, sess storefront.Session) (cart.View, error) {
	v, err := h.Carts.Fetch(r.Context(), sess)
	switch {
	case err == nil:
		return v, nil
	case errors.Is(err, backend.ErrUnauthorized):
		return cart.View{}, err
	default:
		h.Log.Warn("initial cart fetch", zap.String("session_id", sess.ID), zap.Error(err))
		return cart.View{}, nil
	}
}

func (h *SessionHandler) logout(w http.ResponseWriter, r *http.Request) {
	sess, _ := SessionFrom(r.Context())
	if err := h.Auth.Sessions.Logout(r.Context(), sess); err != nil {
		h.Log.Warn("logout", zap.String("session_id", sess.ID), zap.Error(err))
	}
	h.Auth.Cookies.Clear(w)
	w.WriteHeader(http.StatusNoContent)
}

func (h *SessionHandler) current(w http.ResponseWriter, r *http.Request) {
	sess, _ := SessionFrom(r.Context())
	writeJSON(w, http.StatusOK, sess)
}

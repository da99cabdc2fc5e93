package httpx

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/ariefcatur/go-storefront-bff/internal/apperr"
	"github.com/ariefcatur/go-storefront-bff/internal/backend"
	"github.com/ariefcatur/go-storefront-bff/internal/session"
	"github.com/ariefcatur/go-storefront-bff/internal/storefront"
)

type sessionKey struct{}

func SessionFrom(ctx context.Context) (storefront.Session, bool) {
	s, ok := ctx.Value(sessionKey{}).(storefront.Session)
	return s, ok
}

// Auth resolves the caller's session and owns the clear-on-401 rule.
type Auth struct {
	Sessions *session.Service
	Cookies  Cookies
	Log      *zap.Logger
}

// Require rejects anonymous requests. The session comes from the sid cookie, falling back
// to the token cookie or a bearer header. A token is matched against stored sessions first
// and only adopted into a new session when no session holds it.
func (a *Auth) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := a.resolve(w, r)
		if err != nil {
			if errors.Is(err, session.ErrNoSession) {
				apperr.Write(w, apperr.New(http.StatusUnauthorized, "Not signed in", err))
				return
			}
			if errors.Is(err, backend.ErrUnauthorized) {
				a.Cookies.Clear(w)
			}
			a.write(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey{}, sess)))
	})
}

func (a *Auth) resolve(w http.ResponseWriter, r *http.Request) (storefront.Session, error) {
	ctx := r.Context()
	if sid := readCookie(r, CookieSession); sid != "" {
		s, err := a.Sessions.Get(ctx, sid)
		if err == nil {
			return a.Sessions.Touch(ctx, s), nil
		}
		if !errors.Is(err, session.ErrNotFound) {
			return storefront.Session{}, err
		}
	}

	token := readCookie(r, CookieToken)
	if token == "" {
		token = bearer(r)
	}
	if token == "" {
		return storefront.Session{}, session.ErrNoSession
	}
	s, err := a.Sessions.ResolveToken(ctx, token, readCookie(r, CookieFullName))
	if err != nil {
		return storefront.Session{}, err
	}
	if readCookie(r, CookieSession) != s.ID {
		a.Cookies.Set(w, s)
	}
	return s, nil
}

// Fail writes err for a session-bound request. A rejected token clears the session and cookies.
func (a *Auth) Fail(w http.ResponseWriter, r *http.Request, err error) {
	s, _ := SessionFrom(r.Context())
	a.failFor(w, r, s.ID, err)
}

// failFor is Fail for a session that is not yet on the request context.
func (a *Auth) failFor(w http.ResponseWriter, r *http.Request, sessionID string, err error) {
	if errors.Is(err, backend.ErrUnauthorized) {
		if sessionID != "" {
			if cerr := a.Sessions.Clear(r.Context(), sessionID, storefront.ReasonUnauthorized); cerr != nil {
				a.Log.Error("clear session", zap.String("session_id", sessionID), zap.Error(cerr))
			}
		}
		a.Cookies.Clear(w)
	}
	a.write(w, r, err)
}

func (a *Auth) write(w http.ResponseWriter, r *http.Request, err error) {
	appErr := apperr.Write(w, err)
	if appErr.Code >= http.StatusInternalServerError {
		a.Log.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
	}
}

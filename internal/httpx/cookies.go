package httpx

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ariefcatur/go-storefront-bff/internal/storefront"
)

const (
	CookieSession  = "sid"
	CookieToken    = "token"
	CookieFullName = "fullName"
)

// Cookies relays the session credentials to the browser as HTTP-only cookies.
type Cookies struct {
	Secure bool
	MaxAge time.Duration
}

func (c Cookies) cookie(name, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteStrictMode,
	}
}

func (c Cookies) Set(w http.ResponseWriter, s storefront.Session) {
	age := int(c.MaxAge.Seconds())
	http.SetCookie(w, c.cookie(CookieSession, s.ID, age))
	http.SetCookie(w, c.cookie(CookieToken, s.JWT, age))
	http.SetCookie(w, c.cookie(CookieFullName, url.QueryEscape(s.FullName), age))
}

func (c Cookies) Clear(w http.ResponseWriter) {
	for _, name := range []string{CookieSession, CookieToken, CookieFullName} {
		http.SetCookie(w, c.cookie(name, "", -1))
	}
}

func readCookie(r *http.Request, name string) string {
	ck, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	if name == CookieFullName {
		if v, err := url.QueryUnescape(ck.Value); err == nil {
			return v
		}
	}
	return ck.Value
}

func bearer(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

package session

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

type tokenClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// readClaims decodes the token payload without verifying it. The backend owns the signing key.
func readClaims(token string) (email string, expiresAt time.Time) {
	var c tokenClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &c); err != nil {
		return "", time.Time{}
	}
	email = c.Email
	if email == "" && strings.Contains(c.Subject, "@") {
		email = c.Subject
	}
	if c.ExpiresAt != nil {
		expiresAt = c.ExpiresAt.Time.UTC()
	}
	return email, expiresAt
}

package backend

import (
	"context"
	"net/http"

	"github.com/ariefcatur/go-storefront-bff/internal/storefront"
)

func (c *Client) Authenticate(ctx context.Context, email, password string) (storefront.AuthResponse, error) {
	var out storefront.AuthResponse
	body, err := jsonBody(map[string]string{"email": email, "password": password})
	if err != nil {
		return out, err
	}
	err = c.do(ctx, request{method: http.MethodPost, path: "/auth/authenticate", body: body}, &out)
	return out, err
}

// Validate exchanges a still-valid token for a fresh one.
func (c *Client) Validate(ctx context.Context, jwt string) (storefront.AuthResponse, error) {
	var out storefront.AuthResponse
	err := c.do(ctx, request{method: http.MethodPost, path: "/auth/validate", jwt: jwt}, &out)
	return out, err
}

func (c *Client) Logout(ctx context.Context, jwt string) error {
	return c.do(ctx, request{method: http.MethodPost, path: "/auth/logout", jwt: jwt}, nil)
}

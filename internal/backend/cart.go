package backend

import (
	"context"
	"net/http"
	"net/url"

	"github.com/ariefcatur/go-storefront-bff/internal/storefront"
)

func (c *Client) GetCart(ctx context.Context, jwt string) (*storefront.Cart, error) {
	var out storefront.Cart
	if err := c.do(ctx, request{method: http.MethodGet, path: "/cart/get", jwt: jwt}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) AddToCart(ctx context.Context, jwt, variantID string, qty int) error {
	body, err := jsonBody(map[string]any{"variantId": variantID, "quantity": qty})
	if err != nil {
		return err
	}
	return c.do(ctx, request{method: http.MethodPost, path: "/cart/add", jwt: jwt, body: body}, nil)
}

func (c *Client) UpdateQuantity(ctx context.Context, jwt, itemID string, qty int) error {
	body, err := jsonBody(map[string]int{"quantity": qty})
	if err != nil {
		return err
	}
	return c.do(ctx, request{
		method: http.MethodPut,
		path:   "/cart/update-quantity/" + url.PathEscape(itemID),
		jwt:    jwt,
		body:   body,
	}, nil)
}

func (c *Client) RemoveItem(ctx context.Context, jwt, itemID string) error {
	return c.do(ctx, request{
		method: http.MethodDelete,
		path:   "/cart/remove/" + url.PathEscape(itemID),
		jwt:    jwt,
	}, nil)
}

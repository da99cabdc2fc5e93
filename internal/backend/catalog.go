package backend

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/ariefcatur/go-storefront-bff/internal/storefront"
)

const DefaultPageSize = 10

func pageQuery(page, size int) url.Values {
	if page < 0 {
		page = 0
	}
	if size <= 0 {
		size = DefaultPageSize
	}
	return url.Values{
		"page": {strconv.Itoa(page)},
		"size": {strconv.Itoa(size)},
	}
}

func normalizePage(p *storefront.Page[storefront.Product]) {
	for i := range p.Content {
		p.Content[i].Normalize()
	}
}

// ListProducts fetches one 0-based page of the catalog.
func (c *Client) ListProducts(ctx context.Context, page, size int) (storefront.Page[storefront.Product], error) {
	var out storefront.Page[storefront.Product]
	err := c.do(ctx, request{method: http.MethodGet, path: "/products", query: pageQuery(page, size)}, &out)
	normalizePage(&out)
	return out, err
}

func (c *Client) ListByCategory(ctx context.Context, category string, page, size int) (storefront.Page[storefront.Product], error) {
	var out storefront.Page[storefront.Product]
	err := c.do(ctx, request{
		method: http.MethodGet,
		path:   "/products/category/" + url.PathEscape(category),
		query:  pageQuery(page, size),
	}, &out)
	normalizePage(&out)
	return out, err
}

func (c *Client) GetProduct(ctx context.Context, id string) (storefront.Product, error) {
	var out storefront.Product
	if err := c.do(ctx, request{method: http.MethodGet, path: "/products/" + url.PathEscape(id)}, &out); err != nil {
		return out, err
	}
	out.Normalize()
	return out, nil
}

func (c *Client) ListCollections(ctx context.Context) ([]storefront.Collection, error) {
	var out []storefront.Collection
	err := c.do(ctx, request{method: http.MethodGet, path: "/collections"}, &out)
	return out, err
}

func (c *Client) CreateProduct(ctx context.Context, jwt string, in storefront.ProductRequest) (storefront.Product, error) {
	var out storefront.Product
	body, err := jsonBody(in)
	if err != nil {
		return out, err
	}
	err = c.do(ctx, request{method: http.MethodPost, path: "/products", jwt: jwt, body: body}, &out)
	out.Normalize()
	return out, err
}

func (c *Client) UpdateProduct(ctx context.Context, jwt, id string, in storefront.ProductRequest) (storefront.Product, error) {
	var out storefront.Product
	body, err := jsonBody(in)
	if err != nil {
		return out, err
	}
	err = c.do(ctx, request{method: http.MethodPut, path: "/products/" + url.PathEscape(id), jwt: jwt, body: body}, &out)
	out.Normalize()
	return out, err
}

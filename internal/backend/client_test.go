package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-storefront-bff/internal/storefront"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(srv.URL, 2*time.Second)
}

func TestAuthenticate(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/auth/authenticate", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "ann@example.com", body["email"])
		assert.Equal(t, "secret", body["password"])
		_, _ = w.Write([]byte(`{"jwt":"tok-1","fullName":"Ann Lee"}`))
	})

	got, err := c.Authenticate(context.Background(), "ann@example.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, storefront.AuthResponse{JWT: "tok-1", FullName: "Ann Lee"}, got)
}

func TestValidateSendsBearer(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/auth/validate", r.URL.Path)
		assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"jwt":"tok-2","fullName":"Ann Lee"}`))
	})

	got, err := c.Validate(context.Background(), "tok-1")
	require.NoError(t, err)
	assert.Equal(t, "tok-2", got.JWT)
}

func TestStatusMapping(t *testing.T) {
	cases := []struct {
		status  int
		body    string
		target  error
		message string
	}{
		{http.StatusUnauthorized, `{"message":"token expired"}`, ErrUnauthorized, "token expired"},
		{http.StatusForbidden, ``, ErrUnauthorized, ""},
		{http.StatusNotFound, `{"error":"no such product"}`, ErrNotFound, "no such product"},
		{http.StatusBadGateway, `upstream down`, ErrUnavailable, "upstream down"},
	}
	for _, tc := range cases {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
			_, _ = w.Write([]byte(tc.body))
		})
		_, err := c.GetCart(context.Background(), "tok")
		require.Error(t, err)
		assert.True(t, errors.Is(err, tc.target), "status %d: %v", tc.status, err)

		var se *StatusError
		require.True(t, errors.As(err, &se))
		assert.Equal(t, tc.status, se.Status)
		assert.Equal(t, tc.message, se.Message)
	}
}

func TestBadRequestKeepsMessage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message":"Not enough stock"}`))
	})

	err := c.AddToCart(context.Background(), "tok", "v-1", 3)
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "Not enough stock", se.Message)
	assert.False(t, errors.Is(err, ErrUnauthorized))
}

func TestTransportFailureIsUnavailable(t *testing.T) {
	c := New("http://127.0.0.1:1", 200*time.Millisecond)
	_, err := c.ListCollections(context.Background())
	assert.True(t, errors.Is(err, ErrUnavailable))
}

func TestOversizedResponseIsRejected(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"jwt":"` + strings.Repeat("x", 100) + `"}`))
	})
	c.maxBody = 64

	_, err := c.Validate(context.Background(), "tok-1")
	assert.ErrorIs(t, err, ErrResponseTooLarge)
	assert.ErrorIs(t, err, ErrUnavailable)

	c.maxBody = 1 << 10
	got, err := c.Validate(context.Background(), "tok-1")
	require.NoError(t, err)
	assert.Len(t, got.JWT, 100)
}

func TestCartMutations(t *testing.T) {
	var calls []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, r.Method+" "+r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		if r.Body != nil {
			b, _ := io.ReadAll(r.Body)
			if len(b) > 0 {
				calls = append(calls, string(b))
			}
		}
		w.WriteHeader(http.StatusOK)
	})
	ctx := context.Background()

	require.NoError(t, c.AddToCart(ctx, "tok", "v-1", 2))
	require.NoError(t, c.UpdateQuantity(ctx, "tok", "item 9", 4))
	require.NoError(t, c.RemoveItem(ctx, "tok", "item-9"))

	assert.Equal(t, []string{
		"POST /api/cart/add", `{"quantity":2,"variantId":"v-1"}`,
		"PUT /api/cart/update-quantity/item 9", `{"quantity":4}`,
		"DELETE /api/cart/remove/item-9",
	}, calls)
}

func TestListProductsPagingAndNormalize(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/products/category/TOP", r.URL.Path)
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		assert.Equal(t, "10", r.URL.Query().Get("size"))
		_, _ = w.Write([]byte(`{"content":[{"productId":"p1","name":"Tee","price":150000,
			"variants":[{"variantId":"v1","sku":"T-W-M","color":"WHITE","size":"M","quantity":3}]}],
			"totalPages":4,"number":2}`))
	})

	page, err := c.ListByCategory(context.Background(), "TOP", 2, 0)
	require.NoError(t, err)
	assert.Equal(t, 4, page.TotalPages)
	require.Len(t, page.Content, 1)
	require.Len(t, page.Content[0].Colors, 1)
	assert.Equal(t, "v1", page.Content[0].Colors[0].Sizes[0].SizeID)
}

func TestUploadMultipart(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		switch r.URL.Path {
		case "/api/files/upload":
			f, hdr, err := r.FormFile("file")
			require.NoError(t, err)
			defer f.Close()
			b, _ := io.ReadAll(f)
			assert.Equal(t, "main.png", hdr.Filename)
			assert.Equal(t, "PNGDATA", string(b))
			_, _ = w.Write([]byte(`{"fileUrl":"https://cdn.example.com/main.png"}`))
		case "/api/files/upload-multiple":
			assert.Len(t, r.MultipartForm.File["files"], 2)
			_, _ = w.Write([]byte(`{"fileUrls":["https://cdn/a","https://cdn/b"]}`))
		}
	})
	ctx := context.Background()

	u, err := c.Upload(ctx, "tok", File{Name: "main.png", Body: strings.NewReader("PNGDATA")})
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/main.png", u)

	us, err := c.UploadMultiple(ctx, "tok", []File{
		{Name: "a.png", Body: strings.NewReader("a")},
		{Name: "b.png", Body: strings.NewReader("b")},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"https://cdn/a", "https://cdn/b"}, us)
}

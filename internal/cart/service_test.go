package cart

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-storefront-bff/internal/backend"
	"github.com/ariefcatur/go-storefront-bff/internal/storefront"
)

type fakeBackend struct {
	cart    *storefront.Cart
	cartErr error
	product storefront.Product
	calls   []string
}

func (f *fakeBackend) GetCart(_ context.Context, jwt string) (*storefront.Cart, error) {
	f.calls = append(f.calls, "get "+jwt)
	return f.cart, f.cartErr
}

func (f *fakeBackend) AddToCart(_ context.Context, _, variantID string, qty int) error {
	f.calls = append(f.calls, fmt.Sprintf("add %s %d", variantID, qty))
	f.cart.CartItems = append(f.cart.CartItems, storefront.CartItem{
		CartItemID:     "i-" + variantID,
		ProductVariant: storefront.ProductVariant{VariantID: variantID},
		Quantity:       qty,
	})
	return nil
}

func (f *fakeBackend) UpdateQuantity(_ context.Context, _, itemID string, qty int) error {
	f.calls = append(f.calls, fmt.Sprintf("update %s %d", itemID, qty))
	for i := range f.cart.CartItems {
		if f.cart.CartItems[i].CartItemID == itemID {
			f.cart.CartItems[i].Quantity = qty
		}
	}
	return nil
}

func (f *fakeBackend) RemoveItem(_ context.Context, _, itemID string) error {
	f.calls = append(f.calls, "remove "+itemID)
	return &backend.StatusError{Status: 404}
}

func (f *fakeBackend) GetProduct(context.Context, string) (storefront.Product, error) {
	return f.product, nil
}

type memMirror struct {
	carts   map[string]*storefront.Cart
	cleared []string
}

func (m *memMirror) Get(_ context.Context, id string) (*storefront.Cart, error) {
	c, ok := m.carts[id]
	if !ok {
		return nil, ErrMiss
	}
	return c, nil
}

func (m *memMirror) Save(_ context.Context, id string, c *storefront.Cart) error {
	cp := *c
	cp.CartItems = append([]storefront.CartItem(nil), c.CartItems...)
	m.carts[id] = &cp
	return nil
}

func (m *memMirror) Clear(_ context.Context, id string) error {
	delete(m.carts, id)
	m.cleared = append(m.cleared, id)
	return nil
}

type memSnapshots map[string]*storefront.Cart

func (m memSnapshots) Get(_ context.Context, id string) (*storefront.Cart, error) {
	if c, ok := m[id]; ok {
		return c, nil
	}
	return nil, ErrMiss
}

type capture struct{ values [][]byte }

func (c *capture) Publish(_, value []byte, _ ...kafka.Header) { c.values = append(c.values, value) }

var sess = storefront.Session{ID: "s1", JWT: "tok", Email: "ann@example.com"}

func newTestService() (*Service, *fakeBackend, *memMirror, memSnapshots, *capture) {
	be := &fakeBackend{cart: &storefront.Cart{CartID: "c1"}}
	mirror := &memMirror{carts: map[string]*storefront.Cart{}}
	snaps := memSnapshots{}
	pub := &capture{}
	return NewService(be, mirror, snaps, pub, "storefront-bff", zap.NewNop()), be, mirror, snaps, pub
}

func TestFetchMirrorsAndPublishes(t *testing.T) {
	svc, be, mirror, _, pub := newTestService()
	be.cart.CartItems = []storefront.CartItem{{CartItemID: "i1", Quantity: 2}}

	v, err := svc.Fetch(context.Background(), sess)
	require.NoError(t, err)

	assert.False(t, v.Stale)
	assert.Equal(t, 2, v.ItemCount)
	assert.Equal(t, "c1", mirror.carts["s1"].CartID)

	require.Len(t, pub.values, 1)
	var env storefront.Envelope
	require.NoError(t, json.Unmarshal(pub.values[0], &env))
	assert.Equal(t, storefront.EventCartSynced, env.EventType)
	assert.Equal(t, "s1", env.CorrelationID)
	var payload storefront.CartSyncedPayload
	require.NoError(t, json.Unmarshal(env.Payload, &payload))
	assert.Equal(t, "ann@example.com", payload.Email)
	assert.Len(t, payload.Cart.CartItems, 1)
}

func TestFetchFallsBackWhenBackendDown(t *testing.T) {
	svc, be, mirror, snaps, pub := newTestService()
	be.cartErr = fmt.Errorf("%w: dial tcp", backend.ErrUnavailable)

	_, err := svc.Fetch(context.Background(), sess)
	assert.ErrorIs(t, err, backend.ErrUnavailable)

	snaps["s1"] = &storefront.Cart{CartID: "from-snapshot"}
	v, err := svc.Fetch(context.Background(), sess)
	require.NoError(t, err)
	assert.True(t, v.Stale)
	assert.Equal(t, "from-snapshot", v.Cart.CartID)

	mirror.carts["s1"] = &storefront.Cart{CartID: "from-mirror"}
	v, err = svc.Fetch(context.Background(), sess)
	require.NoError(t, err)
	assert.True(t, v.Stale)
	assert.Equal(t, "from-mirror", v.Cart.CartID)

	assert.Empty(t, pub.values)
}

func TestFetchUnauthorizedHasNoFallback(t *testing.T) {
	svc, be, mirror, _, _ := newTestService()
	be.cartErr = &backend.StatusError{Status: 401}
	mirror.carts["s1"] = &storefront.Cart{CartID: "old"}

	_, err := svc.Fetch(context.Background(), sess)
	assert.ErrorIs(t, err, backend.ErrUnauthorized)
}

func TestMutationsRefetchWholeCart(t *testing.T) {
	svc, be, mirror, _, _ := newTestService()

	v, err := svc.Add(context.Background(), sess, "v-1", 2)
	require.NoError(t, err)
	assert.Equal(t, 2, v.ItemCount)

	v, err = svc.UpdateQuantity(context.Background(), sess, "i-v-1", 5)
	require.NoError(t, err)
	assert.Equal(t, 5, v.ItemCount)
	assert.Equal(t, 5, mirror.carts["s1"].CartItems[0].Quantity)

	assert.Equal(t, []string{"add v-1 2", "get tok", "update i-v-1 5", "get tok"}, be.calls)
}

func TestMutationRejectsBadQuantity(t *testing.T) {
	svc, be, _, _, _ := newTestService()

	_, err := svc.Add(context.Background(), sess, "v-1", 0)
	assert.ErrorIs(t, err, storefront.ErrInvalidQuantity)
	_, err = svc.UpdateQuantity(context.Background(), sess, "i1", -1)
	assert.ErrorIs(t, err, storefront.ErrInvalidQuantity)
	assert.Empty(t, be.calls)
}

func TestRemoveErrorSkipsRefetch(t *testing.T) {
	svc, be, _, _, _ := newTestService()

	_, err := svc.Remove(context.Background(), sess, "gone")
	assert.ErrorIs(t, err, backend.ErrNotFound)
	assert.Equal(t, []string{"remove gone"}, be.calls)
}

func TestAddSelection(t *testing.T) {
	svc, be, _, _, _ := newTestService()
	be.product = storefront.Product{
		ProductID: "p1",
		Price:     100,
		Variants: []storefront.ProductVariant{
			{VariantID: "v-r-m", Color: "RED", Size: "M", Quantity: 3},
		},
	}

	sel, v, err := svc.AddSelection(context.Background(), sess, "p1", "", "M", 2)
	require.NoError(t, err)
	assert.Equal(t, "v-r-m", sel.VariantID)
	assert.Equal(t, "200", sel.Total.String())
	assert.Equal(t, 2, v.ItemCount)

	_, _, err = svc.AddSelection(context.Background(), sess, "p1", "RED", "M", 4)
	assert.ErrorIs(t, err, storefront.ErrQuantityExceedsStock)
}

func TestClearDropsMirror(t *testing.T) {
	svc, _, mirror, _, _ := newTestService()
	mirror.carts["s1"] = &storefront.Cart{}

	require.NoError(t, svc.Clear(context.Background(), "s1"))
	assert.NotContains(t, mirror.carts, "s1")
}

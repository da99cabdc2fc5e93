package storefront

import "time"

// ProductVariant is the flat color+size record the catalog endpoints return.
type ProductVariant struct {
	VariantID          string   `json:"variantId"`
	SKU                string   `json:"sku"`
	Color              string   `json:"color"`
	Size               string   `json:"size"`
	Quantity           int      `json:"quantity"`
	DiscountPercentage float64  `json:"discountPercentage"`
	ProductImages      []string `json:"productImages"`
	ProductName        string   `json:"productName,omitempty"`
}

// Color is the nested shape: one color with its sizes.
type Color struct {
	ColorID       string   `json:"colorId"`
	Color         string   `json:"color"`
	ProductImages []string `json:"productImages"`
	Sizes         []Size   `json:"sizes"`
}

type Size struct {
	SizeID             string  `json:"sizeId"`
	SKU                string  `json:"sku"`
	Size               string  `json:"size"`
	Quantity           int     `json:"quantity"`
	SoldQuantity       int     `json:"soldQuantity"`
	DiscountPercentage float64 `json:"discountPercentage"`
	Active             bool    `json:"active"`
	NewProduct         bool    `json:"newProduct"`
	BestSeller         bool    `json:"bestSeller"`
}

type Product struct {
	ProductID    string           `json:"productId"`
	Name         string           `json:"name"`
	Description  string           `json:"description,omitempty"`
	MainImageURL string           `json:"mainImageUrl"`
	SubImageURL  string           `json:"subImageUrl"`
	SizeChartURL string           `json:"sizeChartUrl"`
	Price        float64          `json:"price"`
	Status       *string          `json:"status"`
	Category     string           `json:"category"`
	CollectionID *string          `json:"collectionId"`
	Variants     []ProductVariant `json:"variants,omitempty"`
	Colors       []Color          `json:"colors,omitempty"`
}

// Page mirrors the backend's paged list envelope. Number is 0-based.
type Page[T any] struct {
	Content    []T `json:"content"`
	TotalPages int `json:"totalPages"`
	Number     int `json:"number"`
}

type Collection struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type CartItem struct {
	CartItemID     string         `json:"cartItemId"`
	ProductVariant ProductVariant `json:"productVariant"`
	Quantity       int            `json:"quantity"`
}

type Cart struct {
	CartID    string     `json:"cartId"`
	UserID    string     `json:"userId"`
	CartItems []CartItem `json:"cartItems"`
}

// ItemCount sums quantities over all lines.
func (c *Cart) ItemCount() int {
	if c == nil {
		return 0
	}
	n := 0
	for _, it := range c.CartItems {
		n += it.Quantity
	}
	return n
}

type AuthResponse struct {
	JWT      string `json:"jwt"`
	FullName string `json:"fullName"`
}

type Session struct {
	ID          string    `json:"id"`
	JWT         string    `json:"-"`
	FullName    string    `json:"fullName"`
	Email       string    `json:"email"`
	ExpiresAt   time.Time `json:"expiresAt"`
	ValidatedAt time.Time `json:"validatedAt"`
	LastSeenAt  time.Time `json:"lastSeenAt"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

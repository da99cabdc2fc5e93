package storefront

import (
	"errors"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

var (
	ErrNoColors             = errors.New("product has no colors")
	ErrUnknownColor         = errors.New("unknown color")
	ErrUnknownSize          = errors.New("unknown size")
	ErrSoldOut              = errors.New("size sold out")
	ErrInvalidQuantity      = errors.New("quantity must be at least 1")
	ErrQuantityExceedsStock = errors.New("quantity exceeds stock")
)

// Normalize fills whichever of Variants/Colors is missing so callers can rely on both.
func (p *Product) Normalize() {
	switch {
	case len(p.Colors) == 0 && len(p.Variants) > 0:
		p.Colors = GroupVariants(p.Variants)
	case len(p.Variants) == 0 && len(p.Colors) > 0:
		p.Variants = FlattenColors(p.Name, p.Colors, false)
	}
}

// GroupVariants groups flat variants by color in first-seen order.
// Sizes inside a color follow SizeOrder; unknown sizes keep their relative order.
func GroupVariants(variants []ProductVariant) []Color {
	idx := map[string]int{}
	var out []Color
	for _, v := range variants {
		i, ok := idx[v.Color]
		if !ok {
			i = len(out)
			idx[v.Color] = i
			out = append(out, Color{
				ColorID:       v.Color,
				Color:         v.Color,
				ProductImages: v.ProductImages,
			})
		}
		out[i].Sizes = append(out[i].Sizes, Size{
			SizeID:             v.VariantID,
			SKU:                v.SKU,
			Size:               v.Size,
			Quantity:           v.Quantity,
			DiscountPercentage: v.DiscountPercentage,
			Active:             true,
		})
	}
	for i := range out {
		sizes := out[i].Sizes
		sort.SliceStable(sizes, func(a, b int) bool {
			return sizeRank(sizes[a].Size) < sizeRank(sizes[b].Size)
		})
	}
	return out
}

// FlattenColors turns the nested shape into one variant per (color, size).
// With inStockOnly, sizes with no stock are dropped (edit-form submit behavior).
func FlattenColors(productName string, colors []Color, inStockOnly bool) []ProductVariant {
	var out []ProductVariant
	for _, c := range colors {
		for _, s := range c.Sizes {
			if inStockOnly && s.Quantity <= 0 {
				continue
			}
			out = append(out, ProductVariant{
				VariantID:          s.SizeID,
				SKU:                s.SKU,
				Color:              c.Color,
				Size:               s.Size,
				Quantity:           s.Quantity,
				DiscountPercentage: s.DiscountPercentage,
				ProductImages:      c.ProductImages,
				ProductName:        productName,
			})
		}
	}
	return out
}

// FlattenForUpdate prepares the variants payload of a product update.
func (p *Product) FlattenForUpdate() []ProductVariant {
	if len(p.Colors) == 0 {
		out := make([]ProductVariant, 0, len(p.Variants))
		for _, v := range p.Variants {
			if v.Quantity > 0 {
				v.ProductName = p.Name
				out = append(out, v)
			}
		}
		return out
	}
	return FlattenColors(p.Name, p.Colors, true)
}

type SizeAvailability struct {
	Size      string `json:"size"`
	SizeID    string `json:"sizeId"`
	Stock     int    `json:"stock"`
	Available bool   `json:"available"`
}

type ColorAvailability struct {
	Color  string             `json:"color"`
	Images []string           `json:"images"`
	Sizes  []SizeAvailability `json:"sizes"`
}

// Availability reports per color and size whether stock remains.
func Availability(p Product) []ColorAvailability {
	p.Normalize()
	out := make([]ColorAvailability, 0, len(p.Colors))
	for _, c := range p.Colors {
		ca := ColorAvailability{Color: c.Color, Images: c.ProductImages}
		for _, s := range c.Sizes {
			ca.Sizes = append(ca.Sizes, SizeAvailability{
				Size:      s.Size,
				SizeID:    s.SizeID,
				Stock:     s.Quantity,
				Available: s.Quantity > 0,
			})
		}
		out = append(out, ca)
	}
	return out
}

type Selection struct {
	ProductID string          `json:"productId"`
	VariantID string          `json:"variantId"`
	SKU       string          `json:"sku"`
	Color     string          `json:"color"`
	Size      string          `json:"size"`
	Quantity  int             `json:"quantity"`
	Stock     int             `json:"stock"`
	Image     string          `json:"image,omitempty"`
	Total     decimal.Decimal `json:"total"`
}

// SelectVariant resolves a color/size pick to a purchasable variant.
// An empty color picks the first one.
func SelectVariant(p Product, color, size string, qty int) (Selection, error) {
	p.Normalize()
	if len(p.Colors) == 0 {
		return Selection{}, ErrNoColors
	}

	var c *Color
	if color == "" {
		c = &p.Colors[0]
	} else {
		for i := range p.Colors {
			if p.Colors[i].Color == color {
				c = &p.Colors[i]
				break
			}
		}
	}
	if c == nil {
		return Selection{}, fmt.Errorf("%w: %s", ErrUnknownColor, color)
	}

	var s *Size
	for i := range c.Sizes {
		if c.Sizes[i].Size == size {
			s = &c.Sizes[i]
			break
		}
	}
	if s == nil {
		return Selection{}, fmt.Errorf("%w: %s/%s", ErrUnknownSize, c.Color, size)
	}
	if s.Quantity <= 0 {
		return Selection{}, fmt.Errorf("%w: %s/%s", ErrSoldOut, c.Color, s.Size)
	}
	if qty < 1 {
		return Selection{}, ErrInvalidQuantity
	}
	if qty > s.Quantity {
		return Selection{}, fmt.Errorf("%w: want %d, have %d", ErrQuantityExceedsStock, qty, s.Quantity)
	}

	sel := Selection{
		ProductID: p.ProductID,
		VariantID: s.SizeID,
		SKU:       s.SKU,
		Color:     c.Color,
		Size:      s.Size,
		Quantity:  qty,
		Stock:     s.Quantity,
		Total:     decimal.NewFromFloat(p.Price).Mul(decimal.NewFromInt(int64(qty))),
	}
	if len(c.ProductImages) > 0 {
		sel.Image = c.ProductImages[0]
	} else {
		sel.Image = p.MainImageURL
	}
	return sel, nil
}

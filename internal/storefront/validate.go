package storefront

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

type VariantInput struct {
	VariantID          string   `json:"variantId,omitempty"`
	SKU                string   `json:"sku" validate:"required"`
	Color              string   `json:"color" validate:"required,oneof=WHITE BLACK RED BLUE"`
	Size               string   `json:"size" validate:"required,oneof=S M L XL"`
	Quantity           int      `json:"quantity" validate:"gte=0"`
	DiscountPercentage float64  `json:"discountPercentage" validate:"gte=0,lte=100"`
	ProductImages      []string `json:"productImages" validate:"dive,url"`
}

// ProductInput is the admin product form. Variants may be sent flat or as nested colors.
type ProductInput struct {
	Name          string         `json:"name" validate:"required"`
	Description   string         `json:"description" validate:"required"`
	MainImageURL  string         `json:"mainImageUrl" validate:"required,url"`
	SubImageURL   string         `json:"subImageUrl" validate:"required,url"`
	SizeChartURL  string         `json:"sizeChartUrl" validate:"required,url"`
	Status        string         `json:"status" validate:"required,oneof=AVAILABLE OUT_OF_STOCK DISCONTINUED"`
	Price         float64        `json:"price" validate:"gt=0"`
	Category      string         `json:"category" validate:"required,oneof=TOP BOTTOM ACCESSORIES"`
	CollectionIDs []string       `json:"collectionIds"`
	Variants      []VariantInput `json:"variants" validate:"dive"`
	Colors        []Color        `json:"colors,omitempty"`
}

// ProductRequest is the body sent to the backend on create/update.
type ProductRequest struct {
	ProductID    string           `json:"productId,omitempty"`
	Name         string           `json:"name"`
	Description  string           `json:"description"`
	MainImageURL string           `json:"mainImageUrl"`
	SubImageURL  string           `json:"subImageUrl"`
	SizeChartURL string           `json:"sizeChartUrl"`
	Price        float64          `json:"price"`
	Status       string           `json:"status"`
	Category     string           `json:"category"`
	CollectionID *string          `json:"collectionId"`
	Collections  []Collection     `json:"collections,omitempty"`
	Variants     []ProductVariant `json:"variants"`
}

// ValidationError carries one message per offending field, keyed by JSON path.
type ValidationError struct {
	Fields map[string]string `json:"fields"`
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

type Validator struct {
	validate *validator.Validate
}

func NewValidator() *Validator {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Validator{validate: v}
}

// Struct validates any tagged struct and converts failures to *ValidationError.
func (v *Validator) Struct(s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := &ValidationError{Fields: make(map[string]string, len(verrs))}
	for _, fe := range verrs {
		// drop the root struct name from the namespace
		ns := fe.Namespace()
		if i := strings.IndexByte(ns, '.'); i >= 0 {
			ns = ns[i+1:]
		}
		out.Fields[ns] = describe(fe)
	}
	return out
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "url":
		return "must be a valid URL"
	case "email":
		return "must be a valid email"
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte":
		return "must be at least " + fe.Param()
	case "lte":
		return "must be at most " + fe.Param()
	case "oneof":
		return "must be one of " + fe.Param()
	}
	return fmt.Sprintf("failed %s", fe.Tag())
}

// Build validates the form and produces the backend payload. Nested colors, when sent,
// replace the flat variants. On update, sizes without stock are dropped.
func (v *Validator) Build(in ProductInput, productID string, collections []Collection) (ProductRequest, error) {
	if len(in.Colors) > 0 {
		flat := FlattenColors(in.Name, in.Colors, productID != "")
		in.Variants = make([]VariantInput, 0, len(flat))
		for _, pv := range flat {
			in.Variants = append(in.Variants, VariantInput{
				VariantID:          pv.VariantID,
				SKU:                pv.SKU,
				Color:              pv.Color,
				Size:               pv.Size,
				Quantity:           pv.Quantity,
				DiscountPercentage: pv.DiscountPercentage,
				ProductImages:      pv.ProductImages,
			})
		}
	}
	if err := v.Struct(in); err != nil {
		return ProductRequest{}, err
	}

	req := ProductRequest{
		ProductID:    productID,
		Name:         in.Name,
		Description:  in.Description,
		MainImageURL: in.MainImageURL,
		SubImageURL:  in.SubImageURL,
		SizeChartURL: in.SizeChartURL,
		Price:        in.Price,
		Status:       in.Status,
		Category:     in.Category,
		Variants:     make([]ProductVariant, 0, len(in.Variants)),
	}
	for _, vi := range in.Variants {
		if productID != "" && vi.Quantity <= 0 {
			continue
		}
		req.Variants = append(req.Variants, ProductVariant{
			VariantID:          vi.VariantID,
			SKU:                vi.SKU,
			Color:              vi.Color,
			Size:               vi.Size,
			Quantity:           vi.Quantity,
			DiscountPercentage: vi.DiscountPercentage,
			ProductImages:      vi.ProductImages,
			ProductName:        in.Name,
		})
	}

	names := make(map[string]string, len(collections))
	for _, c := range collections {
		names[c.ID] = c.Name
	}
	for _, id := range in.CollectionIDs {
		req.Collections = append(req.Collections, Collection{ID: id, Name: names[id]})
	}
	if len(in.CollectionIDs) > 0 {
		id := in.CollectionIDs[0]
		req.CollectionID = &id
	}
	return req, nil
}

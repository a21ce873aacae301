// Package product defines the read-only product catalog.
package product

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/apperr"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = apperr.New(apperr.KindNotFound, "product not found")

// Product is a catalog item available for purchase.
type Product struct {
	ID       string
	Name     string
	Price    decimal.Decimal
	Category string
	Image    Image
}

// Image holds responsive image URLs for a product.
type Image struct {
	Thumbnail string
	Mobile    string
	Tablet    string
	Desktop   string
}

// WithBaseURL returns a copy of img with relative paths prefixed by base.
func (img Image) WithBaseURL(base string) Image {
	if base == "" {
		return img
	}
	base = strings.TrimRight(base, "/")
	prefix := func(p string) string {
		if p == "" || strings.HasPrefix(p, "http://") || strings.HasPrefix(p, "https://") {
			return p
		}
		return base + "/" + strings.TrimLeft(p, "/")
	}
	return Image{
		Thumbnail: prefix(img.Thumbnail),
		Mobile:    prefix(img.Mobile),
		Tablet:    prefix(img.Tablet),
		Desktop:   prefix(img.Desktop),
	}
}

// Filter narrows a catalog listing. The zero value lists everything.
type Filter struct {
	Category string
}

// Repository defines read operations for the product catalog.
type Repository interface {
	List(ctx context.Context, f Filter) ([]Product, error)
	// GetByID returns ErrNotFound when the product does not exist.
	GetByID(ctx context.Context, id string) (*Product, error)
}

package memory

import (
	"context"
	"sort"

	"github.com/xenking/storefront/internal/domain/product"
)

var _ product.Repository = (*ProductRepository)(nil)

// ProductRepository implements product.Repository on a Store.
type ProductRepository struct {
	s *Store
}

func (r *ProductRepository) List(ctx context.Context, f product.Filter) ([]product.Product, error) {
	defer r.s.lock(ctx)()
	out := make([]product.Product, 0, len(r.s.products))
	for _, p := range r.s.products {
		if f.Category != "" && p.Category != f.Category {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *ProductRepository) GetByID(ctx context.Context, id string) (*product.Product, error) {
	defer r.s.lock(ctx)()
	p, ok := r.s.products[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	return &p, nil
}

// Upsert inserts or replaces products.
func (r *ProductRepository) Upsert(ctx context.Context, products []product.Product) error {
	defer r.s.lock(ctx)()
	for _, p := range products {
		r.s.products[p.ID] = p
	}
	return nil
}

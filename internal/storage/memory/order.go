package memory

import (
	"context"
	"slices"

	"github.com/xenking/storefront/internal/domain/order"
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository on a Store.
type OrderRepository struct {
	s *Store
}

func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	defer r.s.lock(ctx)()
	r.s.orders[o.ID] = cloneOrder(*o)
	return nil
}

func (r *OrderRepository) GetByID(ctx context.Context, id string) (*order.Order, error) {
	defer r.s.lock(ctx)()
	o, ok := r.s.orders[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	cp := cloneOrder(o)
	return &cp, nil
}

func cloneOrder(o order.Order) order.Order {
	o.Items = slices.Clone(o.Items)
	if o.AppliedCoupon != nil {
		a := *o.AppliedCoupon
		o.AppliedCoupon = &a
	}
	return o
}

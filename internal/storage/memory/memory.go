// Package memory implements the domain repositories in process memory. It
// backs local development without a database and the transport tests.
package memory

import (
	"context"
	"maps"
	"sync"

	"github.com/xenking/storefront/internal/domain/auth"
	"github.com/xenking/storefront/internal/domain/coupon"
	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/internal/domain/product"
)

// Store holds all entities behind a single lock. A transaction holds the
// lock for its whole duration and restores a snapshot when it fails.
type Store struct {
	mu       sync.Mutex
	coupons  map[string]coupon.Coupon // by code
	orders   map[string]order.Order
	products map[string]product.Product
	apiKeys  map[string]auth.APIKeyInfo // by hash
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		coupons:  make(map[string]coupon.Coupon),
		orders:   make(map[string]order.Order),
		products: make(map[string]product.Product),
		apiKeys:  make(map[string]auth.APIKeyInfo),
	}
}

type txKey struct{}

func inTx(ctx context.Context) bool {
	v, _ := ctx.Value(txKey{}).(bool)
	return v
}

// lock acquires the store lock unless ctx already runs inside a transaction,
// and returns the matching unlock.
func (s *Store) lock(ctx context.Context) func() {
	if inTx(ctx) {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

type snapshot struct {
	coupons  map[string]coupon.Coupon
	orders   map[string]order.Order
	products map[string]product.Product
}

func (s *Store) snapshot() snapshot {
	return snapshot{
		coupons:  maps.Clone(s.coupons),
		orders:   maps.Clone(s.orders),
		products: maps.Clone(s.products),
	}
}

func (s *Store) restore(snap snapshot) {
	s.coupons = snap.coupons
	s.orders = snap.orders
	s.products = snap.products
}

// WithinTx runs fn while holding the store lock. When fn fails, every write
// made by fn is undone. Nested calls behave like savepoints.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	unlock := s.lock(ctx)
	defer unlock()

	snap := s.snapshot()
	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

// Coupons returns the coupon repository view of s.
func (s *Store) Coupons() *CouponRepository { return &CouponRepository{s: s} }

// Orders returns the order repository view of s.
func (s *Store) Orders() *OrderRepository { return &OrderRepository{s: s} }

// Products returns the product repository view of s.
func (s *Store) Products() *ProductRepository { return &ProductRepository{s: s} }

// APIKeys returns the API key repository view of s.
func (s *Store) APIKeys() *APIKeyRepository { return &APIKeyRepository{s: s} }

package app

import (
	"context"
	"time"

	"github.com/go-faster/errors"

	"github.com/xenking/storefront/db"
	"github.com/xenking/storefront/internal/domain/auth"
	"github.com/xenking/storefront/internal/domain/coupon"
	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/internal/domain/product"
	"github.com/xenking/storefront/internal/storage/memory"
	"github.com/xenking/storefront/internal/storage/postgres"
	"github.com/xenking/storefront/pkg/health"
)

// storage groups the repositories of one storage driver.
type storage struct {
	coupons  coupon.Repository
	orders   order.Repository
	products product.Repository
	apiKeys  auth.Repository
	tx       order.TxManager
	close    func()
}

func openStorage(ctx context.Context, cfg *Config, hs *health.Health) (*storage, error) {
	if cfg.Storage == StorageMemory {
		s := memory.New()
		catalog, err := product.DecodeCatalog(db.SeedProducts)
		if err != nil {
			return nil, errors.Wrap(err, "load catalog")
		}
		if err := s.Products().Upsert(ctx, catalog); err != nil {
			return nil, errors.Wrap(err, "load catalog")
		}
		return &storage{
			coupons:  s.Coupons(),
			orders:   s.Orders(),
			products: s.Products(),
			apiKeys:  s.APIKeys(),
			tx:       s,
			close:    func() {},
		}, nil
	}

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "create db pool")
	}
	if err := postgres.RunMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "run migrations")
	}
	hs.Register(health.Check{
		Name:    "postgres",
		Kind:    health.Readiness,
		Timeout: 5 * time.Second,
		Fn:      health.PingCheck(pool),
	})
	return &storage{
		coupons:  postgres.NewCouponRepository(pool),
		orders:   postgres.NewOrderRepository(pool),
		products: postgres.NewProductRepository(pool),
		apiKeys:  postgres.NewAPIKeyRepository(pool),
		tx:       postgres.NewTxManager(pool),
		close:    pool.Close,
	}, nil
}

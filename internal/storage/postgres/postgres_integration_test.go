//go:build integration

package postgres

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/xenking/storefront/internal/domain/auth"
	"github.com/xenking/storefront/internal/domain/checkout"
	"github.com/xenking/storefront/internal/domain/coupon"
	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/internal/domain/product"
)

var testPool *pgxpool.Pool

func TestMain(m *testing.M) {
	os.Exit(testMain(m))
}

func testMain(m *testing.M) int {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	pg, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:17-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "shop",
				"POSTGRES_PASSWORD": "shop",
				"POSTGRES_DB":       "shop",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute),
		},
		Started: true,
	})
	if err != nil {
		log.Fatalf("start postgres: %v", err)
	}
	defer func() {
		if err := pg.Terminate(context.Background()); err != nil {
			log.Printf("terminate postgres: %v", err)
		}
	}()

	host, err := pg.Host(ctx)
	if err != nil {
		log.Fatalf("host: %v", err)
	}
	port, err := pg.MappedPort(ctx, "5432/tcp")
	if err != nil {
		log.Fatalf("mapped port: %v", err)
	}

	dsn := fmt.Sprintf("postgres://shop:shop@%s:%s/shop?sslmode=disable", host, port.Port())
	testPool, err = NewPool(ctx, dsn)
	if err != nil {
		log.Fatalf("pool: %v", err)
	}
	defer testPool.Close()

	if err := RunMigrations(ctx, testPool); err != nil {
		log.Fatalf("migrations: %v", err)
	}
	// Migrations are idempotent.
	if err := RunMigrations(ctx, testPool); err != nil {
		log.Fatalf("migrations rerun: %v", err)
	}

	return m.Run()
}

func newCoupon(t *testing.T, repo *CouponRepository, code string, limit *int) *coupon.Coupon {
	t.Helper()
	c := &coupon.Coupon{
		ID:              uuid.New().String(),
		Code:            code,
		DiscountPercent: decimal.RequireFromString("12.5"),
		UsageLimit:      limit,
		IsActive:        true,
		CreatedAt:       time.Now().UTC().Truncate(time.Microsecond),
	}
	require.NoError(t, repo.Create(context.Background(), c))
	return c
}

func uniqueCode(prefix string) string {
	return coupon.NormalizeCode(prefix + "-" + uuid.New().String()[:8])
}

func intPtr(v int) *int { return &v }

func TestCouponRepository_CRUD(t *testing.T) {
	ctx := context.Background()
	repo := NewCouponRepository(testPool)
	code := uniqueCode("crud")
	c := newCoupon(t, repo, code, intPtr(5))

	got, err := repo.FindByCode(ctx, code)
	require.NoError(t, err)
	assert.Equal(t, c.ID, got.ID)
	assert.True(t, c.DiscountPercent.Equal(got.DiscountPercent))
	require.NotNil(t, got.UsageLimit)
	assert.Equal(t, 5, *got.UsageLimit)
	assert.Nil(t, got.ExpiresAt)

	err = repo.Create(ctx, &coupon.Coupon{ID: uuid.New().String(), Code: code, IsActive: true, CreatedAt: time.Now()})
	require.ErrorIs(t, err, coupon.ErrDuplicateCode)

	codes, err := repo.ListCodes(ctx)
	require.NoError(t, err)
	assert.Contains(t, codes, code)

	active, err := repo.SetActive(ctx, c.ID, nil)
	require.NoError(t, err)
	assert.False(t, active)
	off := false
	active, err = repo.SetActive(ctx, c.ID, &off)
	require.NoError(t, err)
	assert.False(t, active)

	require.NoError(t, repo.Delete(ctx, c.ID))
	require.ErrorIs(t, repo.Delete(ctx, c.ID), coupon.ErrNotFound)
	_, err = repo.FindByCode(ctx, code)
	require.ErrorIs(t, err, coupon.ErrNotFound)
	_, err = repo.SetActive(ctx, "not-a-uuid", nil)
	require.ErrorIs(t, err, coupon.ErrNotFound)
}

func TestCouponRepository_ListNewestFirst(t *testing.T) {
	ctx := context.Background()
	repo := NewCouponRepository(testPool)
	first := newCoupon(t, repo, uniqueCode("first"), nil)
	second := &coupon.Coupon{
		ID: uuid.New().String(), Code: uniqueCode("second"), DiscountPercent: decimal.NewFromInt(5),
		IsActive: true, CreatedAt: first.CreatedAt.Add(time.Second),
	}
	require.NoError(t, repo.Create(ctx, second))

	list, err := repo.List(ctx)
	require.NoError(t, err)
	idx := map[string]int{}
	for i, c := range list {
		idx[c.ID] = i
	}
	assert.Less(t, idx[second.ID], idx[first.ID])
}

func TestCouponRepository_Redeem(t *testing.T) {
	ctx := context.Background()
	repo := NewCouponRepository(testPool)
	now := time.Now()

	code := uniqueCode("redeem")
	newCoupon(t, repo, code, intPtr(1))

	c, err := repo.Redeem(ctx, code, now)
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, 1, c.UsageCount)

	c, err = repo.Redeem(ctx, code, now)
	require.NoError(t, err)
	assert.Nil(t, c, "limit reached")

	expired := uniqueCode("expired")
	ec := newCoupon(t, repo, expired, nil)
	_, err = testPool.Exec(ctx, `UPDATE coupons SET expires_at = $2 WHERE id = $1`, ec.ID, now.Add(-time.Minute))
	require.NoError(t, err)
	c, err = repo.Redeem(ctx, expired, now)
	require.NoError(t, err)
	assert.Nil(t, c)
}

func TestCouponRepository_RedeemConcurrent(t *testing.T) {
	ctx := context.Background()
	repo := NewCouponRepository(testPool)
	code := uniqueCode("race")
	newCoupon(t, repo, code, intPtr(3))

	const workers = 20
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c, err := repo.Redeem(ctx, code, time.Now())
			if err == nil && c != nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 3, wins)
	got, err := repo.FindByCode(ctx, code)
	require.NoError(t, err)
	assert.Equal(t, 3, got.UsageCount)
}

func newTestOrder(applied *coupon.Applied) *order.Order {
	return &order.Order{
		ID:     uuid.New().String(),
		Status: order.StatusPending,
		Customer: order.Customer{
			Name: "Maria", Email: "maria@example.com", Phone: "11999990000", Document: "12345678909",
		},
		ShippingAddress: order.Address{
			ZipCode: "01310100", Street: "Av. Paulista", Number: "1000",
			Neighborhood: "Bela Vista", City: "São Paulo", State: "SP",
		},
		Items: []order.Item{
			{ProductID: "p1", Name: "Serum", UnitPrice: decimal.RequireFromString("49.90"), Quantity: 2},
		},
		PaymentMethod:  checkout.Pix,
		Installments:   1,
		Subtotal:       decimal.RequireFromString("99.80"),
		Shipping:       decimal.Zero,
		PixDiscount:    decimal.RequireFromString("4.99"),
		CouponDiscount: decimal.Zero,
		DiscountTotal:  decimal.RequireFromString("4.99"),
		Total:          decimal.RequireFromString("94.81"),
		AppliedCoupon:  applied,
		CreatedAt:      time.Now().UTC().Truncate(time.Microsecond),
	}
}

func TestOrderRepository_RoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := NewOrderRepository(testPool)
	o := newTestOrder(&coupon.Applied{Code: "VERAO10", DiscountPercent: decimal.NewFromInt(10)})

	require.NoError(t, repo.Create(ctx, o))

	got, err := repo.GetByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, o.Customer, got.Customer)
	assert.Equal(t, o.ShippingAddress, got.ShippingAddress)
	assert.Equal(t, checkout.Pix, got.PaymentMethod)
	assert.True(t, o.Total.Equal(got.Total))
	require.Len(t, got.Items, 1)
	assert.True(t, o.Items[0].UnitPrice.Equal(got.Items[0].UnitPrice))
	require.NotNil(t, got.AppliedCoupon)
	assert.Equal(t, "VERAO10", got.AppliedCoupon.Code)
	assert.True(t, decimal.NewFromInt(10).Equal(got.AppliedCoupon.DiscountPercent))

	_, err = repo.GetByID(ctx, uuid.New().String())
	require.ErrorIs(t, err, order.ErrNotFound)
}

func TestTxManager_RollbackUndoesRedemption(t *testing.T) {
	ctx := context.Background()
	tx := NewTxManager(testPool)
	coupons := NewCouponRepository(testPool)
	orders := NewOrderRepository(testPool)
	code := uniqueCode("tx")
	newCoupon(t, coupons, code, intPtr(1))

	boom := errors.New("insert failed")
	err := tx.WithinTx(ctx, func(ctx context.Context) error {
		c, err := coupons.Redeem(ctx, code, time.Now())
		require.NoError(t, err)
		require.NotNil(t, c)
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := coupons.FindByCode(ctx, code)
	require.NoError(t, err)
	assert.Equal(t, 0, got.UsageCount)

	// A failing savepoint does not abort the enclosing transaction.
	o := newTestOrder(nil)
	err = tx.WithinTx(ctx, func(ctx context.Context) error {
		inner := tx.WithinTx(ctx, func(ctx context.Context) error {
			if _, err := coupons.Redeem(ctx, code, time.Now()); err != nil {
				return err
			}
			return boom
		})
		require.ErrorIs(t, inner, boom)
		return orders.Create(ctx, o)
	})
	require.NoError(t, err)

	_, err = orders.GetByID(ctx, o.ID)
	require.NoError(t, err)
	got, err = coupons.FindByCode(ctx, code)
	require.NoError(t, err)
	assert.Equal(t, 0, got.UsageCount)
}

func TestProductRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewProductRepository(testPool)
	products := []product.Product{
		{ID: "it-serum", Name: "Serum", Price: decimal.RequireFromString("89.90"), Category: "it-skin"},
		{ID: "it-mask", Name: "Mask", Price: decimal.RequireFromString("39.90"), Category: "it-hair"},
	}
	require.NoError(t, repo.Upsert(ctx, products))
	products[0].Name = "Serum 2"
	require.NoError(t, repo.Upsert(ctx, products[:1]))

	got, err := repo.GetByID(ctx, "it-serum")
	require.NoError(t, err)
	assert.Equal(t, "Serum 2", got.Name)

	list, err := repo.List(ctx, product.Filter{Category: "it-hair"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "it-mask", list[0].ID)

	_, err = repo.GetByID(ctx, "missing")
	require.ErrorIs(t, err, product.ErrNotFound)
}

func TestAPIKeyRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewAPIKeyRepository(testPool)
	pepper := []byte("pepper")
	hash := auth.HashKey(pepper, "admin-key")
	require.NoError(t, repo.Upsert(ctx, auth.APIKeyInfo{ID: "it-admin", KeyHash: hash, Name: "admin"}))

	info, err := auth.NewAuthenticator(repo, pepper).Authenticate(ctx, "admin-key")
	require.NoError(t, err)
	assert.Equal(t, "it-admin", info.ID)
	assert.Empty(t, info.Scopes)

	_, err = repo.FindByHash(ctx, "nope")
	require.ErrorIs(t, err, auth.ErrKeyNotFound)
}

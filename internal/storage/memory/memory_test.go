package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/storefront/internal/domain/coupon"
	"github.com/xenking/storefront/internal/domain/order"
)

func seedCoupon(t *testing.T, s *Store, code string, limit int) {
	t.Helper()
	err := s.Coupons().Create(context.Background(), &coupon.Coupon{
		ID:              "id-" + code,
		Code:            code,
		DiscountPercent: decimal.NewFromInt(10),
		UsageLimit:      &limit,
		IsActive:        true,
		CreatedAt:       time.Now(),
	})
	require.NoError(t, err)
}

func TestStore_WithinTxRollback(t *testing.T) {
	s := New()
	seedCoupon(t, s, "TX", 1)
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.WithinTx(ctx, func(ctx context.Context) error {
		c, err := s.Coupons().Redeem(ctx, "TX", time.Now())
		require.NoError(t, err)
		require.NotNil(t, c)
		require.NoError(t, s.Orders().Create(ctx, &order.Order{ID: "o1"}))
		return boom
	})
	require.ErrorIs(t, err, boom)

	c, err := s.Coupons().FindByCode(ctx, "TX")
	require.NoError(t, err)
	assert.Equal(t, 0, c.UsageCount)
	_, err = s.Orders().GetByID(ctx, "o1")
	require.ErrorIs(t, err, order.ErrNotFound)
}

func TestStore_NestedSavepoint(t *testing.T) {
	s := New()
	seedCoupon(t, s, "SP", 1)
	ctx := context.Background()

	err := s.WithinTx(ctx, func(ctx context.Context) error {
		inner := s.WithinTx(ctx, func(ctx context.Context) error {
			_, err := s.Coupons().Redeem(ctx, "SP", time.Now())
			require.NoError(t, err)
			return errors.New("inner")
		})
		require.Error(t, inner)
		return s.Orders().Create(ctx, &order.Order{ID: "o2"})
	})
	require.NoError(t, err)

	c, err := s.Coupons().FindByCode(ctx, "SP")
	require.NoError(t, err)
	assert.Equal(t, 0, c.UsageCount)
	_, err = s.Orders().GetByID(ctx, "o2")
	require.NoError(t, err)
}

func TestCouponRepository_RedeemConcurrent(t *testing.T) {
	s := New()
	seedCoupon(t, s, "RACE", 2)

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c, _ := s.Coupons().Redeem(context.Background(), "RACE", time.Now())
			if c != nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 2, wins)
}

func TestCouponRepository_ReturnsCopies(t *testing.T) {
	s := New()
	seedCoupon(t, s, "COPY", 5)
	ctx := context.Background()

	c, err := s.Coupons().FindByCode(ctx, "COPY")
	require.NoError(t, err)
	*c.UsageLimit = 100
	c.UsageCount = 99

	again, err := s.Coupons().FindByCode(ctx, "COPY")
	require.NoError(t, err)
	assert.Equal(t, 5, *again.UsageLimit)
	assert.Equal(t, 0, again.UsageCount)
}

package coupon

import (
	"context"
	"testing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func TestService_BulkImport_DuplicateWithinBatch(t *testing.T) {
	svc := newTestService(newMockRepo())

	res := svc.BulkImport(context.Background(), []ImportRow{
		{Code: "A", DiscountPercent: decPtr("10")},
		{Code: "a", DiscountPercent: decPtr("10")},
	})

	assert.Equal(t, 1, res.Success)
	assert.Equal(t, []string{"A"}, res.Duplicates)
	assert.Empty(t, res.Errors)
}

func TestService_BulkImport_Buckets(t *testing.T) {
	repo := newMockRepo(newTestCoupon("EXISTING", 10))
	svc := newTestService(repo)

	rows := []ImportRow{
		{Code: "PCT", DiscountPercent: decPtr("12.5")},
		{Code: "TYPED", DiscountType: "percentage", DiscountValue: decPtr("20")},
		{Code: "existing", DiscountPercent: decPtr("5")},
		{Code: "FIXED", DiscountType: "fixed", DiscountValue: decPtr("20")},
		{Code: "", DiscountPercent: decPtr("5")},
		{Code: "HUGE", DiscountPercent: decPtr("150")},
		{Code: "NOPCT"},
		{Code: "BROKEN", Err: errors.New("usage_limit: expected int")},
		{Code: "ZERO", DiscountPercent: decPtr("5"), UsageLimit: intPtr(0)},
	}
	res := svc.BulkImport(context.Background(), rows)

	assert.Equal(t, 2, res.Success)
	assert.Equal(t, []string{"EXISTING"}, res.Duplicates)
	require.Len(t, res.Errors, 6)
	assert.Equal(t, len(rows), res.Total())

	assert.Equal(t, 4, res.Errors[0].Row)
	assert.Equal(t, "FIXED", res.Errors[0].Code)
	assert.Contains(t, res.Errors[0].Reason, "discount_type")
	assert.Equal(t, "BROKEN", res.Errors[4].Code)
	assert.Contains(t, res.Errors[4].Reason, "usage_limit")

	typed, err := svc.Validate(context.Background(), "TYPED")
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(20).Equal(typed.DiscountPercent))
}

func TestService_BulkImport_Empty(t *testing.T) {
	svc := newTestService(newMockRepo())
	res := svc.BulkImport(context.Background(), nil)
	assert.Equal(t, 0, res.Total())
	assert.NotNil(t, res.Duplicates)
	assert.NotNil(t, res.Errors)
}

// cancellingRepo cancels the import context after the first stored coupon.
type cancellingRepo struct {
	*mockRepo
	cancel context.CancelFunc
}

func (r *cancellingRepo) Create(ctx context.Context, c *Coupon) error {
	err := r.mockRepo.Create(ctx, c)
	r.cancel()
	return err
}

func TestService_BulkImport_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	repo := &cancellingRepo{mockRepo: newMockRepo(), cancel: cancel}
	svc := newTestService(repo)

	res := svc.BulkImport(ctx, []ImportRow{
		{Code: "FIRST", DiscountPercent: decPtr("10")},
		{Code: "second", DiscountPercent: decPtr("10")},
		{Code: "THIRD", DiscountPercent: decPtr("10")},
	})

	assert.Equal(t, 1, res.Success)
	assert.Empty(t, res.Duplicates)
	assert.Equal(t, []ImportError{
		{Row: 2, Code: "SECOND", Reason: "import cancelled"},
		{Row: 3, Code: "THIRD", Reason: "import cancelled"},
	}, res.Errors)
	assert.Equal(t, 3, res.Total())

	_, err := repo.FindByCode(context.Background(), "SECOND")
	require.ErrorIs(t, err, ErrNotFound)
}

package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/storefront/internal/domain/coupon"
)

const couponColumns = `id, code, discount_percent, usage_limit, usage_count, expires_at, is_active, created_at`

const (
	getCouponByCodeSQL = `SELECT ` + couponColumns + ` FROM coupons WHERE code = $1`

	listCouponsSQL = `SELECT ` + couponColumns + ` FROM coupons ORDER BY created_at DESC, id`

	listCouponCodesSQL = `SELECT code FROM coupons`

	createCouponSQL = `INSERT INTO coupons (` + couponColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	deleteCouponSQL = `DELETE FROM coupons WHERE id = $1`

	setCouponActiveSQL = `UPDATE coupons SET is_active = COALESCE($2, NOT is_active)
		WHERE id = $1 RETURNING is_active`

	redeemCouponSQL = `UPDATE coupons SET usage_count = usage_count + 1
		WHERE code = $1
			AND is_active
			AND (expires_at IS NULL OR expires_at >= $2)
			AND (usage_limit IS NULL OR usage_count < usage_limit)
		RETURNING ` + couponColumns
)

var _ coupon.Repository = (*CouponRepository)(nil)

// CouponRepository implements coupon.Repository backed by PostgreSQL.
type CouponRepository struct {
	pool *pgxpool.Pool
}

// NewCouponRepository returns a CouponRepository that uses the given pool.
func NewCouponRepository(pool *pgxpool.Pool) *CouponRepository {
	return &CouponRepository{pool: pool}
}

// FindByCode looks up a coupon by its normalized code.
func (r *CouponRepository) FindByCode(ctx context.Context, code string) (*coupon.Coupon, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, getCouponByCodeSQL, code)
	if err != nil {
		return nil, fmt.Errorf("finding coupon by code %q: %w", code, err)
	}

	c, err := pgx.CollectExactlyOneRow(rows, scanCoupon)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, coupon.ErrNotFound
		}
		return nil, fmt.Errorf("finding coupon by code %q: %w", code, err)
	}
	return &c, nil
}

// List returns all coupons, newest first.
func (r *CouponRepository) List(ctx context.Context) ([]coupon.Coupon, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, listCouponsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing coupons: %w", err)
	}
	return pgx.CollectRows(rows, scanCoupon)
}

// ListCodes returns every stored code.
func (r *CouponRepository) ListCodes(ctx context.Context) ([]string, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, listCouponCodesSQL)
	if err != nil {
		return nil, fmt.Errorf("listing coupon codes: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

// Create inserts a coupon. A taken code yields coupon.ErrDuplicateCode.
func (r *CouponRepository) Create(ctx context.Context, c *coupon.Coupon) error {
	_, err := conn(ctx, r.pool).Exec(ctx, createCouponSQL,
		c.ID, c.Code, c.DiscountPercent, c.UsageLimit, c.UsageCount, c.ExpiresAt, c.IsActive, c.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return coupon.ErrDuplicateCode
		}
		return fmt.Errorf("creating coupon %q: %w", c.Code, err)
	}
	return nil
}

// Delete removes a coupon permanently.
func (r *CouponRepository) Delete(ctx context.Context, id string) error {
	if !validUUID(id) {
		return coupon.ErrNotFound
	}
	tag, err := conn(ctx, r.pool).Exec(ctx, deleteCouponSQL, id)
	if err != nil {
		return fmt.Errorf("deleting coupon %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return coupon.ErrNotFound
	}
	return nil
}

// SetActive sets or flips the active flag and returns its new value.
func (r *CouponRepository) SetActive(ctx context.Context, id string, active *bool) (bool, error) {
	if !validUUID(id) {
		return false, coupon.ErrNotFound
	}
	var v bool
	err := conn(ctx, r.pool).QueryRow(ctx, setCouponActiveSQL, id, active).Scan(&v)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, coupon.ErrNotFound
		}
		return false, fmt.Errorf("setting coupon %q active: %w", id, err)
	}
	return v, nil
}

// Redeem increments usage_count when the coupon is redeemable at now. The
// eligibility check and the increment are one statement, so concurrent
// redemptions of the last use are serialized by the row lock.
func (r *CouponRepository) Redeem(ctx context.Context, code string, now time.Time) (*coupon.Coupon, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, redeemCouponSQL, code, now)
	if err != nil {
		return nil, fmt.Errorf("redeeming coupon %q: %w", code, err)
	}
	c, err := pgx.CollectExactlyOneRow(rows, scanCoupon)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("redeeming coupon %q: %w", code, err)
	}
	return &c, nil
}

func scanCoupon(row pgx.CollectableRow) (coupon.Coupon, error) {
	var (
		c          coupon.Coupon
		usageLimit *int32
		usageCount int32
	)
	err := row.Scan(
		&c.ID, &c.Code, &c.DiscountPercent, &usageLimit, &usageCount,
		&c.ExpiresAt, &c.IsActive, &c.CreatedAt,
	)
	if usageLimit != nil {
		v := int(*usageLimit)
		c.UsageLimit = &v
	}
	c.UsageCount = int(usageCount)
	return c, err
}

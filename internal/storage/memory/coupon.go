package memory

import (
	"context"
	"sort"
	"time"

	"github.com/xenking/storefront/internal/domain/coupon"
)

var _ coupon.Repository = (*CouponRepository)(nil)

// CouponRepository implements coupon.Repository on a Store.
type CouponRepository struct {
	s *Store
}

func (r *CouponRepository) FindByCode(ctx context.Context, code string) (*coupon.Coupon, error) {
	defer r.s.lock(ctx)()
	c, ok := r.s.coupons[code]
	if !ok {
		return nil, coupon.ErrNotFound
	}
	return cloneCoupon(c), nil
}

func (r *CouponRepository) List(ctx context.Context) ([]coupon.Coupon, error) {
	defer r.s.lock(ctx)()
	out := make([]coupon.Coupon, 0, len(r.s.coupons))
	for _, c := range r.s.coupons {
		out = append(out, *cloneCoupon(c))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *CouponRepository) ListCodes(ctx context.Context) ([]string, error) {
	defer r.s.lock(ctx)()
	out := make([]string, 0, len(r.s.coupons))
	for code := range r.s.coupons {
		out = append(out, code)
	}
	return out, nil
}

func (r *CouponRepository) Create(ctx context.Context, c *coupon.Coupon) error {
	defer r.s.lock(ctx)()
	if _, ok := r.s.coupons[c.Code]; ok {
		return coupon.ErrDuplicateCode
	}
	r.s.coupons[c.Code] = *cloneCoupon(*c)
	return nil
}

func (r *CouponRepository) Delete(ctx context.Context, id string) error {
	defer r.s.lock(ctx)()
	code, ok := r.codeByID(id)
	if !ok {
		return coupon.ErrNotFound
	}
	delete(r.s.coupons, code)
	return nil
}

func (r *CouponRepository) SetActive(ctx context.Context, id string, active *bool) (bool, error) {
	defer r.s.lock(ctx)()
	code, ok := r.codeByID(id)
	if !ok {
		return false, coupon.ErrNotFound
	}
	c := r.s.coupons[code]
	if active != nil {
		c.IsActive = *active
	} else {
		c.IsActive = !c.IsActive
	}
	r.s.coupons[code] = c
	return c.IsActive, nil
}

func (r *CouponRepository) Redeem(ctx context.Context, code string, now time.Time) (*coupon.Coupon, error) {
	defer r.s.lock(ctx)()
	c, ok := r.s.coupons[code]
	if !ok || c.Check(now) != nil {
		return nil, nil
	}
	c.UsageCount++
	r.s.coupons[code] = c
	return cloneCoupon(c), nil
}

func (r *CouponRepository) codeByID(id string) (string, bool) {
	for code, c := range r.s.coupons {
		if c.ID == id {
			return code, true
		}
	}
	return "", false
}

func cloneCoupon(c coupon.Coupon) *coupon.Coupon {
	if c.UsageLimit != nil {
		v := *c.UsageLimit
		c.UsageLimit = &v
	}
	if c.ExpiresAt != nil {
		v := *c.ExpiresAt
		c.ExpiresAt = &v
	}
	return &c
}

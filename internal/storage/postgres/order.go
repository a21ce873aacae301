package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/checkout"
	"github.com/xenking/storefront/internal/domain/coupon"
	"github.com/xenking/storefront/internal/domain/order"
)

const orderColumns = `id, status,
	customer_name, customer_email, customer_phone, customer_document,
	shipping_zip_code, shipping_street, shipping_number, shipping_complement,
	shipping_neighborhood, shipping_city, shipping_state,
	items, payment_method, installments,
	subtotal, shipping, pix_discount, coupon_discount, discount_total, total,
	coupon_code, coupon_discount_percent, created_at`

const (
	createOrderSQL = `INSERT INTO orders (` + orderColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13,
			$14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25)`

	getOrderByIDSQL = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create persists a new order. The order items are serialized to JSON for
// storage in the JSONB column.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	itemsJSON, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("marshaling order items: %w", err)
	}

	var (
		couponCode *string
		couponPct  *decimal.Decimal
	)
	if o.AppliedCoupon != nil {
		couponCode = &o.AppliedCoupon.Code
		couponPct = &o.AppliedCoupon.DiscountPercent
	}

	_, err = conn(ctx, r.pool).Exec(ctx, createOrderSQL,
		o.ID, string(o.Status),
		o.Customer.Name, o.Customer.Email, o.Customer.Phone, o.Customer.Document,
		o.ShippingAddress.ZipCode, o.ShippingAddress.Street, o.ShippingAddress.Number, o.ShippingAddress.Complement,
		o.ShippingAddress.Neighborhood, o.ShippingAddress.City, o.ShippingAddress.State,
		itemsJSON, string(o.PaymentMethod), o.Installments,
		o.Subtotal, o.Shipping, o.PixDiscount, o.CouponDiscount, o.DiscountTotal, o.Total,
		couponCode, couponPct, o.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("creating order %q: %w", o.ID, err)
	}
	return nil
}

// GetByID loads an order by its identifier.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*order.Order, error) {
	if !validUUID(id) {
		return nil, order.ErrNotFound
	}
	rows, err := conn(ctx, r.pool).Query(ctx, getOrderByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}
	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}
	return &o, nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o            order.Order
		status       string
		method       string
		installments int32
		itemsJSON    []byte
		couponCode   *string
		couponPct    *decimal.Decimal
	)
	err := row.Scan(
		&o.ID, &status,
		&o.Customer.Name, &o.Customer.Email, &o.Customer.Phone, &o.Customer.Document,
		&o.ShippingAddress.ZipCode, &o.ShippingAddress.Street, &o.ShippingAddress.Number, &o.ShippingAddress.Complement,
		&o.ShippingAddress.Neighborhood, &o.ShippingAddress.City, &o.ShippingAddress.State,
		&itemsJSON, &method, &installments,
		&o.Subtotal, &o.Shipping, &o.PixDiscount, &o.CouponDiscount, &o.DiscountTotal, &o.Total,
		&couponCode, &couponPct, &o.CreatedAt,
	)
	if err != nil {
		return o, err
	}
	if err := json.Unmarshal(itemsJSON, &o.Items); err != nil {
		return o, fmt.Errorf("unmarshaling order items: %w", err)
	}
	o.Status = order.Status(status)
	o.PaymentMethod = checkout.PaymentMethod(method)
	o.Installments = int(installments)
	if couponCode != nil {
		o.AppliedCoupon = &coupon.Applied{Code: *couponCode}
		if couponPct != nil {
			o.AppliedCoupon.DiscountPercent = *couponPct
		}
	}
	return o, nil
}

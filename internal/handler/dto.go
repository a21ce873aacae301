package handler

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/checkout"
	"github.com/xenking/storefront/internal/domain/coupon"
	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/internal/domain/pix"
	"github.com/xenking/storefront/internal/domain/product"
)

// money renders an amount with cent precision.
func money(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}

type appliedCoupon struct {
	Code            string  `json:"code"`
	DiscountPercent float64 `json:"discount_percent"`
}

func toAppliedCoupon(a *coupon.Applied) *appliedCoupon {
	if a == nil {
		return nil
	}
	return &appliedCoupon{Code: a.Code, DiscountPercent: a.DiscountPercent.InexactFloat64()}
}

type couponResponse struct {
	ID              string     `json:"id"`
	Code            string     `json:"code"`
	DiscountPercent float64    `json:"discount_percent"`
	UsageLimit      *int       `json:"usage_limit"`
	UsageCount      int        `json:"usage_count"`
	ExpiresAt       *time.Time `json:"expires_at"`
	IsActive        bool       `json:"is_active"`
	CreatedAt       time.Time  `json:"created_at"`
}

func toCouponResponse(c *coupon.Coupon) couponResponse {
	return couponResponse{
		ID:              c.ID,
		Code:            c.Code,
		DiscountPercent: c.DiscountPercent.InexactFloat64(),
		UsageLimit:      c.UsageLimit,
		UsageCount:      c.UsageCount,
		ExpiresAt:       c.ExpiresAt,
		IsActive:        c.IsActive,
		CreatedAt:       c.CreatedAt,
	}
}

// pixResponse keeps the camelCase names the payment page reads.
type pixResponse struct {
	PixCode       string    `json:"pixCode"`
	QRCodeDataURL string    `json:"qrCodeDataURL"`
	Amount        float64   `json:"amount"`
	OrderID       string    `json:"orderId"`
	ExpiresAt     time.Time `json:"expiresAt"`
}

func toPixResponse(c *pix.Charge) *pixResponse {
	if c == nil {
		return nil
	}
	return &pixResponse{
		PixCode:       c.Code,
		QRCodeDataURL: c.QRCodeDataURL,
		Amount:        money(c.Amount),
		OrderID:       c.OrderID,
		ExpiresAt:     c.ExpiresAt,
	}
}

type installmentResponse struct {
	Count            int     `json:"count"`
	SurchargePercent float64 `json:"surcharge_percent"`
	Value            float64 `json:"value"`
	Total            float64 `json:"total"`
}

func toInstallment(i checkout.Installment) installmentResponse {
	return installmentResponse{
		Count:            i.Count,
		SurchargePercent: i.SurchargePercent.InexactFloat64(),
		Value:            money(i.Value),
		Total:            money(i.Total),
	}
}

type customerDTO struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Phone    string `json:"phone" validate:"required"`
	Document string `json:"document" validate:"required"`
}

type addressDTO struct {
	ZipCode      string `json:"zip_code" validate:"required"`
	Street       string `json:"street" validate:"required"`
	Number       string `json:"number" validate:"required"`
	Complement   string `json:"complement,omitempty"`
	Neighborhood string `json:"neighborhood" validate:"required"`
	City         string `json:"city" validate:"required"`
	State        string `json:"state" validate:"required"`
}

type itemDTO struct {
	ProductID string          `json:"product_id" validate:"required"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity" validate:"min=1"`
}

type itemResponse struct {
	ProductID string  `json:"product_id"`
	Name      string  `json:"name"`
	UnitPrice float64 `json:"unit_price"`
	Quantity  int     `json:"quantity"`
}

func toItems(in []itemDTO) []order.Item {
	out := make([]order.Item, len(in))
	for i, it := range in {
		out[i] = order.Item{
			ProductID: it.ProductID,
			Name:      it.Name,
			UnitPrice: it.UnitPrice,
			Quantity:  it.Quantity,
		}
	}
	return out
}

type orderResponse struct {
	ID              string               `json:"id"`
	Status          string               `json:"status"`
	Customer        customerDTO          `json:"customer"`
	ShippingAddress addressDTO           `json:"shipping_address"`
	Items           []itemResponse       `json:"items"`
	PaymentMethod   string               `json:"payment_method"`
	Installments    int                  `json:"installments"`
	Subtotal        float64              `json:"subtotal"`
	Shipping        float64              `json:"shipping"`
	PixDiscount     float64              `json:"pix_discount"`
	CouponDiscount  float64              `json:"coupon_discount"`
	DiscountTotal   float64              `json:"discount_total"`
	Total           float64              `json:"total"`
	AppliedCoupon   *appliedCoupon       `json:"applied_coupon"`
	Installment     *installmentResponse `json:"installment,omitempty"`
	PixData         *pixResponse         `json:"pix_data,omitempty"`
	CreatedAt       time.Time            `json:"created_at"`
}

func toOrderResponse(o *order.Order) orderResponse {
	items := make([]itemResponse, len(o.Items))
	for i, it := range o.Items {
		items[i] = itemResponse{
			ProductID: it.ProductID,
			Name:      it.Name,
			UnitPrice: money(it.UnitPrice),
			Quantity:  it.Quantity,
		}
	}
	return orderResponse{
		ID:     o.ID,
		Status: string(o.Status),
		Customer: customerDTO{
			Name:     o.Customer.Name,
			Email:    o.Customer.Email,
			Phone:    o.Customer.Phone,
			Document: o.Customer.Document,
		},
		ShippingAddress: addressDTO{
			ZipCode:      o.ShippingAddress.ZipCode,
			Street:       o.ShippingAddress.Street,
			Number:       o.ShippingAddress.Number,
			Complement:   o.ShippingAddress.Complement,
			Neighborhood: o.ShippingAddress.Neighborhood,
			City:         o.ShippingAddress.City,
			State:        o.ShippingAddress.State,
		},
		Items:          items,
		PaymentMethod:  string(o.PaymentMethod),
		Installments:   o.Installments,
		Subtotal:       money(o.Subtotal),
		Shipping:       money(o.Shipping),
		PixDiscount:    money(o.PixDiscount),
		CouponDiscount: money(o.CouponDiscount),
		DiscountTotal:  money(o.DiscountTotal),
		Total:          money(o.Total),
		AppliedCoupon:  toAppliedCoupon(o.AppliedCoupon),
		CreatedAt:      o.CreatedAt,
	}
}

type productImage struct {
	Thumbnail string `json:"thumbnail"`
	Mobile    string `json:"mobile"`
	Tablet    string `json:"tablet"`
	Desktop   string `json:"desktop"`
}

type productResponse struct {
	ID       string       `json:"id"`
	Name     string       `json:"name"`
	Price    float64      `json:"price"`
	Category string       `json:"category"`
	Image    productImage `json:"image"`
}

func (h *Handler) toProductResponse(p *product.Product) productResponse {
	img := p.Image.WithBaseURL(h.cfg.ImageBaseURL)
	return productResponse{
		ID:       p.ID,
		Name:     p.Name,
		Price:    money(p.Price),
		Category: p.Category,
		Image: productImage{
			Thumbnail: img.Thumbnail,
			Mobile:    img.Mobile,
			Tablet:    img.Tablet,
			Desktop:   img.Desktop,
		},
	}
}

package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/xenking/storefront/internal/domain/checkout"
	"github.com/xenking/storefront/internal/domain/order"
)

type placeOrderRequest struct {
	Customer        customerDTO `json:"customer"`
	ShippingAddress addressDTO  `json:"shipping_address"`
	Items           []itemDTO   `json:"items" validate:"required,min=1,dive"`
	PaymentMethod   string      `json:"payment_method" validate:"required,oneof=credit_card pix boleto"`
	Installments    int         `json:"installments" validate:"gte=0,lte=12"`
	CouponCode      string      `json:"coupon_code"`
}

// PlaceOrder handles POST /orders.
func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req placeOrderRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeError(w, r, err)
		return
	}

	res, err := h.orders.PlaceOrder(r.Context(), order.PlaceOrderRequest{
		Customer: order.Customer{
			Name:     req.Customer.Name,
			Email:    req.Customer.Email,
			Phone:    req.Customer.Phone,
			Document: req.Customer.Document,
		},
		ShippingAddress: order.Address{
			ZipCode:      req.ShippingAddress.ZipCode,
			Street:       req.ShippingAddress.Street,
			Number:       req.ShippingAddress.Number,
			Complement:   req.ShippingAddress.Complement,
			Neighborhood: req.ShippingAddress.Neighborhood,
			City:         req.ShippingAddress.City,
			State:        req.ShippingAddress.State,
		},
		Items:         toItems(req.Items),
		PaymentMethod: checkout.PaymentMethod(req.PaymentMethod),
		Installments:  req.Installments,
		CouponCode:    req.CouponCode,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := toOrderResponse(res.Order)
	resp.PixData = toPixResponse(res.Pix)
	if res.Installment != nil {
		inst := toInstallment(*res.Installment)
		resp.Installment = &inst
	}
	writeJSON(w, http.StatusCreated, resp)
}

// GetOrder handles GET /orders/{id}.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(o))
}

// GeneratePix handles POST /orders/{id}/generate-pix.
func (h *Handler) GeneratePix(w http.ResponseWriter, r *http.Request) {
	charge, err := h.orders.GeneratePix(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toPixResponse(charge))
}

type quoteRequest struct {
	Items         []itemDTO `json:"items" validate:"required,min=1,dive"`
	PaymentMethod string    `json:"payment_method" validate:"required,oneof=credit_card pix boleto"`
	Installments  int       `json:"installments" validate:"gte=0,lte=12"`
	CouponCode    string    `json:"coupon_code"`
}

type quoteResponse struct {
	Subtotal       float64               `json:"subtotal"`
	Shipping       float64               `json:"shipping"`
	PixDiscount    float64               `json:"pix_discount"`
	CouponDiscount float64               `json:"coupon_discount"`
	DiscountTotal  float64               `json:"discount_total"`
	Total          float64               `json:"total"`
	AppliedCoupon  *appliedCoupon        `json:"applied_coupon"`
	Installment    *installmentResponse  `json:"installment,omitempty"`
	Installments   []installmentResponse `json:"installments,omitempty"`
}

// Quote handles POST /checkout/quote.
func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	var req quoteRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeError(w, r, err)
		return
	}
	q, err := h.orders.Quote(r.Context(), order.QuoteRequest{
		Items:         toItems(req.Items),
		PaymentMethod: checkout.PaymentMethod(req.PaymentMethod),
		Installments:  req.Installments,
		CouponCode:    req.CouponCode,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := quoteResponse{
		Subtotal:       money(q.Totals.Subtotal),
		Shipping:       money(q.Totals.Shipping),
		PixDiscount:    money(q.Totals.PixDiscount),
		CouponDiscount: money(q.Totals.CouponDiscount),
		DiscountTotal:  money(q.Totals.DiscountTotal),
		Total:          money(q.Totals.Total),
		AppliedCoupon:  toAppliedCoupon(q.AppliedCoupon),
	}
	if q.Installment != nil {
		inst := toInstallment(*q.Installment)
		resp.Installment = &inst
	}
	for _, i := range q.Plan {
		resp.Installments = append(resp.Installments, toInstallment(i))
	}
	writeJSON(w, http.StatusOK, resp)
}

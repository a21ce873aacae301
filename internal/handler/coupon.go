package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/xenking/storefront/internal/apperr"
)

type validateCouponResponse struct {
	Valid           bool    `json:"valid"`
	Code            string  `json:"code"`
	DiscountPercent float64 `json:"discount_percent"`
	Message         string  `json:"message"`
}

type invalidCouponResponse struct {
	Valid   bool   `json:"valid"`
	Message string `json:"message"`
}

// ValidateCoupon handles GET /coupons/validate/{code}.
func (h *Handler) ValidateCoupon(w http.ResponseWriter, r *http.Request) {
	applied, err := h.coupons.Validate(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		status := statusOf(apperr.KindOf(err))
		if status == http.StatusInternalServerError {
			writeError(w, r, err)
			return
		}
		writeJSON(w, status, invalidCouponResponse{Message: apperr.MessageOf(err)})
		return
	}
	writeJSON(w, http.StatusOK, validateCouponResponse{
		Valid:           true,
		Code:            applied.Code,
		DiscountPercent: applied.DiscountPercent.InexactFloat64(),
		Message:         "coupon is valid",
	})
}

type applyCouponRequest struct {
	Code string `json:"code" validate:"required"`
}

type applyCouponResponse struct {
	Success         bool    `json:"success"`
	Code            string  `json:"code"`
	DiscountPercent float64 `json:"discount_percent"`
}

// ApplyCoupon handles POST /coupons/apply. It consumes one use of the
// coupon.
func (h *Handler) ApplyCoupon(w http.ResponseWriter, r *http.Request) {
	var req applyCouponRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeError(w, r, err)
		return
	}
	applied, err := h.coupons.Apply(r.Context(), req.Code)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, applyCouponResponse{
		Success:         true,
		Code:            applied.Code,
		DiscountPercent: applied.DiscountPercent.InexactFloat64(),
	})
}

package handler

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/apperr"
	"github.com/xenking/storefront/internal/domain/coupon"
)

type createCouponRequest struct {
	Code            string           `json:"code" validate:"required"`
	DiscountPercent *decimal.Decimal `json:"discount_percent" validate:"required"`
	UsageLimit      *int             `json:"usage_limit"`
	ExpiresAt       *time.Time       `json:"expires_at"`
}

// CreateCoupon handles POST /admin/coupons.
func (h *Handler) CreateCoupon(w http.ResponseWriter, r *http.Request) {
	var req createCouponRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeError(w, r, err)
		return
	}
	c, err := h.coupons.Create(r.Context(), coupon.CreateParams{
		Code:            req.Code,
		DiscountPercent: *req.DiscountPercent,
		UsageLimit:      req.UsageLimit,
		ExpiresAt:       req.ExpiresAt,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toCouponResponse(c))
}

// ListCoupons handles GET /admin/coupons.
func (h *Handler) ListCoupons(w http.ResponseWriter, r *http.Request) {
	list, err := h.coupons.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]couponResponse, len(list))
	for i := range list {
		out[i] = toCouponResponse(&list[i])
	}
	writeJSON(w, http.StatusOK, out)
}

// DeleteCoupon handles DELETE /admin/coupons/{id}.
func (h *Handler) DeleteCoupon(w http.ResponseWriter, r *http.Request) {
	if err := h.coupons.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "coupon deleted"})
}

type toggleCouponRequest struct {
	IsActive *bool `json:"is_active"`
}

type toggleCouponResponse struct {
	Message  string `json:"message"`
	IsActive bool   `json:"is_active"`
}

// ToggleCoupon handles PATCH /admin/coupons/{id}/toggle. Without a body the
// active flag is flipped.
func (h *Handler) ToggleCoupon(w http.ResponseWriter, r *http.Request) {
	var req toggleCouponRequest
	if err := decodeJSON(w, r, &req, true); err != nil {
		writeError(w, r, err)
		return
	}
	active, err := h.coupons.SetActive(r.Context(), chi.URLParam(r, "id"), req.IsActive)
	if err != nil {
		writeError(w, r, err)
		return
	}
	msg := "coupon deactivated"
	if active {
		msg = "coupon activated"
	}
	writeJSON(w, http.StatusOK, toggleCouponResponse{Message: msg, IsActive: active})
}

type importResponse struct {
	Message    string               `json:"message"`
	Success    int                  `json:"success"`
	Errors     []coupon.ImportError `json:"errors"`
	Duplicates []string             `json:"duplicates"`
}

// ImportCoupons handles POST /admin/coupons/import. The payload is either
// an array of rows or {"coupons": [...]}. A row with wrong field types is
// reported in errors without failing the batch.
func (h *Handler) ImportCoupons(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.cfg.MaxImportBytes))
	if err != nil {
		writeError(w, r, apperr.Validation("import payload too large or unreadable"))
		return
	}
	rows, err := decodeImportPayload(body)
	if err != nil {
		writeError(w, r, err)
		return
	}

	res := h.coupons.BulkImport(r.Context(), rows)
	writeJSON(w, http.StatusOK, importResponse{
		Message:    fmt.Sprintf("imported %d of %d coupons", res.Success, len(rows)),
		Success:    res.Success,
		Errors:     res.Errors,
		Duplicates: res.Duplicates,
	})
}

var errImportPayload = apperr.New(apperr.KindValidation, `import payload must be an array of coupons or {"coupons": [...]}`)

// decodeImportPayload splits the payload into raw rows and decodes each one
// on its own so a bad row only poisons itself.
func decodeImportPayload(body []byte) ([]coupon.ImportRow, error) {
	var raws []jx.Raw
	collect := func(d *jx.Decoder) error {
		if d.Next() != jx.Array {
			return errImportPayload
		}
		return d.Arr(func(d *jx.Decoder) error {
			raw, err := d.Raw()
			if err != nil {
				return err
			}
			raws = append(raws, raw)
			return nil
		})
	}

	d := jx.DecodeBytes(body)
	var err error
	switch d.Next() {
	case jx.Array:
		err = collect(d)
	case jx.Object:
		found := false
		err = d.ObjBytes(func(d *jx.Decoder, key []byte) error {
			if string(key) != "coupons" {
				return d.Skip()
			}
			found = true
			return collect(d)
		})
		if err == nil && !found {
			err = errImportPayload
		}
	default:
		err = errImportPayload
	}
	if err != nil {
		if errors.Is(err, errImportPayload) {
			return nil, errImportPayload
		}
		return nil, errMalformedBody
	}
	if len(raws) == 0 {
		return nil, apperr.Validation("import payload has no coupons")
	}

	rows := make([]coupon.ImportRow, len(raws))
	for i, raw := range raws {
		rows[i] = decodeImportRow(raw)
	}
	return rows, nil
}

func decodeImportRow(raw jx.Raw) coupon.ImportRow {
	var (
		row      coupon.ImportRow
		fieldErr error
	)
	d := jx.DecodeBytes(raw)
	if d.Next() != jx.Object {
		row.Err = apperr.Validation("row must be an object")
		return row
	}
	invalid := func(field, reason string) error {
		fieldErr = &coupon.InvalidFieldError{Field: field, Reason: reason}
		return fieldErr
	}

	err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		switch field := string(key); field {
		case "code":
			if d.Next() != jx.String {
				return invalid(field, "must be a string")
			}
			s, err := d.Str()
			row.Code = s
			return err
		case "discount_type":
			if d.Next() == jx.Null {
				return d.Null()
			}
			if d.Next() != jx.String {
				return invalid(field, "must be a string")
			}
			s, err := d.Str()
			row.DiscountType = s
			return err
		case "discount_value", "discount_percent":
			v, ok, err := decodeDecimal(d)
			if err != nil {
				return err
			}
			if !ok {
				return invalid(field, "must be a number")
			}
			if field == "discount_value" {
				row.DiscountValue = v
			} else {
				row.DiscountPercent = v
			}
			return nil
		case "usage_limit":
			switch d.Next() {
			case jx.Null:
				return d.Null()
			case jx.Number:
				n, err := d.Int()
				if err != nil {
					return invalid(field, "must be an integer")
				}
				row.UsageLimit = &n
				return nil
			default:
				return invalid(field, "must be an integer")
			}
		case "expires_at":
			switch d.Next() {
			case jx.Null:
				return d.Null()
			case jx.String:
				s, err := d.Str()
				if err != nil {
					return err
				}
				if s == "" {
					return nil
				}
				t, err := time.Parse(time.RFC3339, s)
				if err != nil {
					return invalid(field, "must be an RFC 3339 timestamp")
				}
				row.ExpiresAt = &t
				return nil
			default:
				return invalid(field, "must be an RFC 3339 timestamp")
			}
		default:
			return d.Skip()
		}
	})
	switch {
	case fieldErr != nil:
		row.Err = fieldErr
	case err != nil:
		row.Err = apperr.Validation("malformed row")
	}
	return row
}

// decodeDecimal accepts a JSON number, a numeric string or null. ok is false
// for any other value.
func decodeDecimal(d *jx.Decoder) (_ *decimal.Decimal, ok bool, _ error) {
	var text string
	switch d.Next() {
	case jx.Null:
		return nil, true, d.Null()
	case jx.Number:
		raw, err := d.Raw()
		if err != nil {
			return nil, false, err
		}
		text = string(raw)
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return nil, false, err
		}
		text = s
	default:
		return nil, false, nil
	}
	v, err := decimal.NewFromString(text)
	if err != nil {
		return nil, false, nil
	}
	return &v, true, nil
}

package order

import (
	"fmt"
	"strings"

	"github.com/xenking/storefront/internal/apperr"
	"github.com/xenking/storefront/internal/domain/checkout"
)

// Sentinel errors for order validation.
var (
	ErrEmptyItems         = apperr.New(apperr.KindValidation, "items required")
	ErrInvalidDocument    = apperr.New(apperr.KindValidation, "document must have 11 (CPF) or 14 (CNPJ) digits")
	ErrInstallmentsMethod = apperr.New(apperr.KindValidation, "installments are only allowed for credit_card")
)

// MissingFieldError indicates a required field is empty.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("%s is required", e.Field)
}

// ErrorKind implements apperr.Kinded.
func (e *MissingFieldError) ErrorKind() apperr.Kind { return apperr.KindValidation }

// InvalidItemError indicates a line item with a bad quantity or price.
type InvalidItemError struct {
	ProductID string
	Reason    string
}

func (e *InvalidItemError) Error() string {
	return fmt.Sprintf("%s for product %s", e.Reason, e.ProductID)
}

// ErrorKind implements apperr.Kinded.
func (e *InvalidItemError) ErrorKind() apperr.Kind { return apperr.KindValidation }

// DocumentDigits strips everything but digits from a CPF/CNPJ.
func DocumentDigits(doc string) string {
	var b strings.Builder
	for _, r := range doc {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func validateItems(items []Item) error {
	if len(items) == 0 {
		return ErrEmptyItems
	}
	for _, it := range items {
		if strings.TrimSpace(it.ProductID) == "" {
			return &MissingFieldError{Field: "items.product_id"}
		}
		if it.Quantity <= 0 {
			return &InvalidItemError{ProductID: it.ProductID, Reason: "quantity must be greater than 0"}
		}
		if it.UnitPrice.IsNegative() {
			return &InvalidItemError{ProductID: it.ProductID, Reason: "unit price must not be negative"}
		}
	}
	return nil
}

// normalizeInstallments applies the installment rules for method. Zero
// means "not given" and becomes 1.
func normalizeInstallments(method checkout.PaymentMethod, n int) (int, error) {
	if !method.Valid() {
		return 0, checkout.ErrInvalidPaymentMethod
	}
	if n == 0 {
		n = 1
	}
	if n < 1 || n > checkout.MaxInstallments {
		return 0, checkout.ErrInvalidInstallments
	}
	if method != checkout.CreditCard && n != 1 {
		return 0, ErrInstallmentsMethod
	}
	return n, nil
}

func (r *PlaceOrderRequest) validate() error {
	required := []struct{ name, value string }{
		{"customer.name", r.Customer.Name},
		{"customer.email", r.Customer.Email},
		{"customer.phone", r.Customer.Phone},
		{"customer.document", r.Customer.Document},
		{"shipping_address.zip_code", r.ShippingAddress.ZipCode},
		{"shipping_address.street", r.ShippingAddress.Street},
		{"shipping_address.number", r.ShippingAddress.Number},
		{"shipping_address.neighborhood", r.ShippingAddress.Neighborhood},
		{"shipping_address.city", r.ShippingAddress.City},
		{"shipping_address.state", r.ShippingAddress.State},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			return &MissingFieldError{Field: f.name}
		}
	}
	if n := len(DocumentDigits(r.Customer.Document)); n != 11 && n != 14 {
		return ErrInvalidDocument
	}
	if err := validateItems(r.Items); err != nil {
		return err
	}
	n, err := normalizeInstallments(r.PaymentMethod, r.Installments)
	if err != nil {
		return err
	}
	r.Installments = n
	return nil
}

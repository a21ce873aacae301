package coupon

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/apperr"
)

// reasonCancelled marks rows left unprocessed when the import context ends.
const reasonCancelled = "import cancelled"

// ImportRow is one coupon of a bulk import. Err is set when the row could
// not be decoded; such rows land in the error bucket untouched.
type ImportRow struct {
	Code            string
	DiscountType    string
	DiscountValue   *decimal.Decimal
	DiscountPercent *decimal.Decimal
	UsageLimit      *int
	ExpiresAt       *time.Time
	Err             error
}

// ImportError describes a row that could not be imported.
type ImportError struct {
	// Row is the 1-based position of the row in the import.
	Row    int    `json:"row"`
	Code   string `json:"code,omitempty"`
	Reason string `json:"reason"`
}

// ImportResult partitions a bulk import into its outcomes. Every input row
// is counted in exactly one bucket.
type ImportResult struct {
	Success    int           `json:"success"`
	Duplicates []string      `json:"duplicates"`
	Errors     []ImportError `json:"errors"`
}

// Total returns the number of rows accounted for.
func (r *ImportResult) Total() int {
	return r.Success + len(r.Duplicates) + len(r.Errors)
}

// percent resolves the discount percent of the row. A percent given directly
// wins; otherwise a percentage-typed discount value is used.
func (r ImportRow) percent() (decimal.Decimal, error) {
	if r.DiscountPercent != nil {
		return *r.DiscountPercent, nil
	}
	switch strings.ToLower(strings.TrimSpace(r.DiscountType)) {
	case "", "percentage", "percent":
	default:
		return decimal.Zero, &InvalidFieldError{
			Field:  "discount_type",
			Reason: "must be percentage, got " + r.DiscountType,
		}
	}
	if r.DiscountValue == nil {
		return decimal.Zero, &InvalidFieldError{Field: "discount_percent", Reason: "is required"}
	}
	return *r.DiscountValue, nil
}

// BulkImport creates every row independently. A failing row never aborts the
// rest of the import. Once ctx is done the remaining rows are reported as
// cancelled without being attempted.
func (s *Service) BulkImport(ctx context.Context, rows []ImportRow) ImportResult {
	lg := zctx.From(ctx)
	res := ImportResult{
		Duplicates: []string{},
		Errors:     []ImportError{},
	}

	for i, row := range rows {
		if ctx.Err() != nil {
			for j := i; j < len(rows); j++ {
				res.Errors = append(res.Errors, ImportError{
					Row:    j + 1,
					Code:   NormalizeCode(strings.TrimSpace(rows[j].Code)),
					Reason: reasonCancelled,
				})
			}
			lg.Warn("Coupon import cancelled", zap.Int("unprocessed", len(rows)-i))
			break
		}

		code := NormalizeCode(strings.TrimSpace(row.Code))
		fail := func(reason string) {
			res.Errors = append(res.Errors, ImportError{Row: i + 1, Code: code, Reason: reason})
		}

		if row.Err != nil {
			fail(row.Err.Error())
			continue
		}
		pct, err := row.percent()
		if err != nil {
			fail(err.Error())
			continue
		}

		_, err = s.Create(ctx, CreateParams{
			Code:            code,
			DiscountPercent: pct,
			UsageLimit:      row.UsageLimit,
			ExpiresAt:       row.ExpiresAt,
		})
		switch {
		case err == nil:
			res.Success++
		case errors.Is(err, ErrDuplicateCode):
			res.Duplicates = append(res.Duplicates, code)
		default:
			if apperr.KindOf(err) == apperr.KindValidation {
				fail(err.Error())
				continue
			}
			if ctx.Err() != nil {
				fail(reasonCancelled)
				continue
			}
			lg.Error("Import coupon row failed", zap.Int("row", i+1), zap.String("code", code), zap.Error(err))
			fail("internal error")
		}
	}

	lg.Info("Coupon import finished",
		zap.Int("rows", len(rows)),
		zap.Int("success", res.Success),
		zap.Int("duplicates", len(res.Duplicates)),
		zap.Int("errors", len(res.Errors)),
	)
	return res
}

package main

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/coupon"
)

// Recognised header columns. Only code is mandatory.
const (
	colCode            = "code"
	colDiscountPercent = "discount_percent"
	colDiscountType    = "discount_type"
	colDiscountValue   = "discount_value"
	colUsageLimit      = "usage_limit"
	colExpiresAt       = "expires_at"
)

// record is a decoded CSV row together with its line in the source file.
type record struct {
	line int
	row  coupon.ImportRow
}

type header map[string]int

func parseHeader(fields []string) (header, error) {
	h := make(header, len(fields))
	for i, f := range fields {
		name := strings.ToLower(strings.TrimSpace(f))
		if i == 0 {
			name = strings.TrimPrefix(name, "\ufeff")
		}
		if name == "" {
			continue
		}
		if _, ok := h[name]; ok {
			return nil, errors.Errorf("duplicate column %q", name)
		}
		h[name] = i
	}
	if _, ok := h[colCode]; !ok {
		return nil, errors.Errorf("missing %q column", colCode)
	}
	return h, nil
}

func (h header) get(fields []string, name string) string {
	i, ok := h[name]
	if !ok || i >= len(fields) {
		return ""
	}
	return strings.TrimSpace(fields[i])
}

// parseRecord decodes one CSV row. Field errors are stored on the row so the
// import reports them instead of stopping.
func (h header) parseRecord(fields []string) coupon.ImportRow {
	row := coupon.ImportRow{
		Code:         h.get(fields, colCode),
		DiscountType: h.get(fields, colDiscountType),
	}

	fieldErr := func(field, reason string) coupon.ImportRow {
		row.Err = &coupon.InvalidFieldError{Field: field, Reason: reason}
		return row
	}

	if row.Code == "" {
		return fieldErr(colCode, "is required")
	}
	if v := h.get(fields, colDiscountPercent); v != "" {
		d, err := decimal.NewFromString(v)
		if err != nil {
			return fieldErr(colDiscountPercent, "must be a number")
		}
		row.DiscountPercent = &d
	}
	if v := h.get(fields, colDiscountValue); v != "" {
		d, err := decimal.NewFromString(v)
		if err != nil {
			return fieldErr(colDiscountValue, "must be a number")
		}
		row.DiscountValue = &d
	}
	if v := h.get(fields, colUsageLimit); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fieldErr(colUsageLimit, "must be an integer")
		}
		row.UsageLimit = &n
	}
	if v := h.get(fields, colExpiresAt); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return fieldErr(colExpiresAt, "must be an RFC 3339 timestamp")
		}
		row.ExpiresAt = &t
	}
	return row
}

// streamFile reads a CSV coupon file, transparently decompressing .gz
// files, and calls fn for every data row.
func streamFile(ctx context.Context, path string, fn func(rec record) error) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	var src io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := pgzip.NewReader(f)
		if err != nil {
			return errors.Wrapf(err, "create gzip reader for %s", path)
		}
		defer func() { _ = gz.Close() }()
		src = gz
	}

	r := csv.NewReader(src)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	r.ReuseRecord = true

	first, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return errors.Errorf("%s: empty file", path)
		}
		return errors.Wrapf(err, "read header of %s", path)
	}
	h, err := parseHeader(first)
	if err != nil {
		return errors.Wrapf(err, "parse header of %s", path)
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		fields, err := r.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				// Malformed quoting only spoils the current row.
				if err := fn(record{line: perr.StartLine, row: coupon.ImportRow{Err: errors.New("malformed CSV row")}}); err != nil {
					return err
				}
				continue
			}
			return errors.Wrapf(err, "read %s", path)
		}
		if isBlank(fields) {
			continue
		}
		line, _ := r.FieldPos(0)
		if err := fn(record{line: line, row: h.parseRecord(fields)}); err != nil {
			return err
		}
	}
}

func isBlank(fields []string) bool {
	for _, f := range fields {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

package main

import (
	"context"
	"log/slog"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/storefront/internal/domain/coupon"
)

// crossFileDuplicates returns, per file, the codes already present in an
// earlier file. Pass 1 builds one bloom filter per file. Pass 2 records, for
// every file, the codes that hit an earlier or later file's filter. Since
// bloom filters have no false negatives, a code shared by files j < i is
// recorded by both scans, which lets the final step confirm candidates
// exactly.
func crossFileDuplicates(ctx context.Context, files []string, capacity uint, fpRate float64) ([]map[string]struct{}, error) {
	dups := make([]map[string]struct{}, len(files))
	if len(files) < 2 {
		for i := range dups {
			dups[i] = map[string]struct{}{}
		}
		return dups, nil
	}

	slog.Info("pass 1: building bloom filters", slog.Int("files", len(files)))
	filters, err := buildFilters(ctx, files, capacity, fpRate)
	if err != nil {
		return nil, errors.Wrap(err, "build bloom filters")
	}

	slog.Info("pass 2: finding candidate codes")
	seen := make([]map[string]struct{}, len(files))
	candidates := make([]map[string]struct{}, len(files))

	g, gctx := errgroup.WithContext(ctx)
	for i, path := range files {
		g.Go(func() error {
			s := make(map[string]struct{})
			c := make(map[string]struct{})
			err := streamCodes(gctx, path, func(code string) {
				for j, f := range filters {
					if j == i || !f.TestString(code) {
						continue
					}
					s[code] = struct{}{}
					if j < i {
						c[code] = struct{}{}
					}
				}
			})
			if err != nil {
				return errors.Wrapf(err, "scan %s for candidates", path)
			}
			seen[i], candidates[i] = s, c
			slog.Info("pass 2 complete", slog.String("file", path), slog.Int("candidates", len(c)))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for i := range files {
		dups[i] = make(map[string]struct{})
		for code := range candidates[i] {
			for j := range i {
				if _, ok := seen[j][code]; ok {
					dups[i][code] = struct{}{}
					break
				}
			}
		}
	}
	return dups, nil
}

func buildFilters(ctx context.Context, files []string, capacity uint, fpRate float64) ([]*bloom.BloomFilter, error) {
	filters := make([]*bloom.BloomFilter, len(files))

	g, ctx := errgroup.WithContext(ctx)
	for i, path := range files {
		g.Go(func() error {
			f := bloom.NewWithEstimates(capacity, fpRate)
			var n int
			if err := streamCodes(ctx, path, func(code string) {
				f.AddString(code)
				n++
			}); err != nil {
				return errors.Wrapf(err, "build filter for %s", path)
			}
			filters[i] = f
			slog.Info("pass 1 complete", slog.String("file", path), slog.Int("codes", n))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return filters, nil
}

// streamCodes calls fn with the normalized code of every decodable row.
func streamCodes(ctx context.Context, path string, fn func(code string)) error {
	return streamFile(ctx, path, func(rec record) error {
		if rec.row.Code != "" {
			fn(coupon.NormalizeCode(rec.row.Code))
		}
		return nil
	})
}

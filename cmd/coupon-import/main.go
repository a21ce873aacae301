package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"

	"github.com/xenking/storefront/internal/domain/coupon"
	"github.com/xenking/storefront/internal/storage/postgres"
)

const (
	defaultBatchSize = 500
	bloomCapacity    = 1_000_000
	bloomFPR         = 0.001
)

// Importer stores a batch of coupons. Implemented by *coupon.Service.
type Importer interface {
	BulkImport(ctx context.Context, rows []coupon.ImportRow) coupon.ImportResult
}

// summary aggregates the outcome of every file.
type summary struct {
	rows       int
	success    int
	duplicates int
	errors     int
}

func main() {
	var (
		databaseURL string
		batchSize   int
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.IntVar(&batchSize, "batch-size", defaultBatchSize, "rows per import batch")
	flag.Usage = func() {
		_, _ = os.Stderr.WriteString("usage: coupon-import [flags] file.csv[.gz]...\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	files := flag.Args()
	if len(files) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, files, batchSize); err != nil {
		slog.Error("coupon import failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("coupon import completed successfully")
}

func run(ctx context.Context, databaseURL string, files []string, batchSize int) error {
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			return errors.Wrapf(err, "check file %s", f)
		}
	}

	dups, err := crossFileDuplicates(ctx, files, bloomCapacity, bloomFPR)
	if err != nil {
		return errors.Wrap(err, "find cross-file duplicates")
	}

	slog.Info("connecting to database")
	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	svc := coupon.NewService(postgres.NewCouponRepository(pool))
	sum, err := importFiles(ctx, svc, files, dups, batchSize)
	if err != nil {
		return err
	}

	slog.Info("import summary",
		slog.Int("rows", sum.rows),
		slog.Int("success", sum.success),
		slog.Int("duplicates", sum.duplicates),
		slog.Int("errors", sum.errors),
	)
	return nil
}

// importFiles streams every file into imp in batches. A row whose code was
// already stored from an earlier file is counted as a duplicate without a
// write. Rows whose earlier occurrence was rejected still go to imp, so a
// valid row is never dropped because of an invalid one elsewhere.
func importFiles(ctx context.Context, imp Importer, files []string, dups []map[string]struct{}, batchSize int) (summary, error) {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	shared := make(map[string]struct{})
	for _, d := range dups {
		for code := range d {
			shared[code] = struct{}{}
		}
	}
	stored := make(map[string]struct{})

	var sum summary
	for i, path := range files {
		slog.Info("importing file", slog.String("file", path))

		batch := make([]coupon.ImportRow, 0, batchSize)
		lines := make([]int, 0, batchSize)
		flush := func() {
			if len(batch) == 0 {
				return
			}
			res := imp.BulkImport(ctx, batch)
			sum.success += res.Success
			sum.duplicates += len(res.Duplicates)
			sum.errors += len(res.Errors)

			rejected := make(map[int]struct{}, len(res.Errors))
			for _, e := range res.Errors {
				rejected[e.Row] = struct{}{}
				slog.Warn("row rejected",
					slog.String("file", path),
					slog.Int("line", lines[e.Row-1]),
					slog.String("code", e.Code),
					slog.String("reason", e.Reason),
				)
			}
			// Successes and collisions with an existing row both leave the
			// code stored.
			for k, row := range batch {
				if _, ok := rejected[k+1]; ok {
					continue
				}
				code := coupon.NormalizeCode(row.Code)
				if _, ok := shared[code]; ok {
					stored[code] = struct{}{}
				}
			}
			batch, lines = batch[:0], lines[:0]
		}

		err := streamFile(ctx, path, func(rec record) error {
			sum.rows++
			if rec.row.Err == nil {
				code := coupon.NormalizeCode(rec.row.Code)
				_, dup := dups[i][code]
				_, done := stored[code]
				if dup && done {
					sum.duplicates++
					return nil
				}
			}
			batch = append(batch, rec.row)
			lines = append(lines, rec.line)
			if len(batch) == batchSize {
				flush()
			}
			return nil
		})
		if err != nil {
			return sum, errors.Wrapf(err, "import %s", path)
		}
		flush()
	}
	return sum, nil
}

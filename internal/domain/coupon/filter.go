package coupon

import (
	"context"
	"sync"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
)

// CodeLister lists every stored coupon code.
type CodeLister interface {
	ListCodes(ctx context.Context) ([]string, error)
}

// CodeFilter is a bloom filter over known coupon codes. A negative answer
// means the code was not stored when the filter last learned about it; other
// writers may have stored it since, so callers confirm misses against
// storage. Until the first Refresh the filter answers positively for every
// code.
type CodeFilter struct {
	capacity uint
	fpRate   float64

	mu         sync.RWMutex
	bf         *bloom.BloomFilter
	ready      bool
	rebuilding bool
	pending    []string
}

// NewCodeFilter creates a filter sized for capacity codes at the given false
// positive rate.
func NewCodeFilter(capacity uint, fpRate float64) *CodeFilter {
	if capacity == 0 {
		capacity = 10_000
	}
	if fpRate <= 0 || fpRate >= 1 {
		fpRate = 0.001
	}
	return &CodeFilter{
		capacity: capacity,
		fpRate:   fpRate,
		bf:       bloom.NewWithEstimates(capacity, fpRate),
	}
}

// MayContain reports whether code may be a stored coupon code.
func (f *CodeFilter) MayContain(code string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if !f.ready {
		return true
	}
	return f.bf.TestString(code)
}

// Add records a newly stored code.
func (f *CodeFilter) Add(code string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bf.AddString(code)
	if f.rebuilding {
		f.pending = append(f.pending, code)
	}
}

// Refresh rebuilds the filter from the codes in storage. Codes added while
// the rebuild is in flight are carried over into the new filter.
func (f *CodeFilter) Refresh(ctx context.Context, src CodeLister) error {
	f.mu.Lock()
	f.rebuilding = true
	f.pending = nil
	f.mu.Unlock()

	codes, err := src.ListCodes(ctx)
	if err != nil {
		f.mu.Lock()
		f.rebuilding = false
		f.pending = nil
		f.mu.Unlock()
		return errors.Wrap(err, "list codes")
	}

	n := f.capacity
	if need := uint(len(codes)) * 2; need > n {
		n = need
	}
	bf := bloom.NewWithEstimates(n, f.fpRate)
	for _, c := range codes {
		bf.AddString(c)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.pending {
		bf.AddString(c)
	}
	f.bf = bf
	f.ready = true
	f.rebuilding = false
	f.pending = nil
	return nil
}

// Run refreshes the filter immediately and then on every interval until ctx
// is cancelled.
func (f *CodeFilter) Run(ctx context.Context, src CodeLister, interval time.Duration) {
	lg := zctx.From(ctx)
	refresh := func() {
		if err := f.Refresh(ctx, src); err != nil && ctx.Err() == nil {
			lg.Warn("Coupon code filter refresh failed", zap.Error(err))
		}
	}

	refresh()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			refresh()
		}
	}
}

// Ready reports whether the filter has completed its first refresh.
func (f *CodeFilter) Ready() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.ready
}

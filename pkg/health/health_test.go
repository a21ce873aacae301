package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func passing(context.Context) error { return nil }

func failing(msg string) CheckFunc {
	return func(context.Context) error { return errors.New(msg) }
}

func callEndpoint(t *testing.T, handler http.HandlerFunc) (int, statusResponse) {
	t.Helper()
	w := httptest.NewRecorder()
	handler(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var body statusResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	return w.Code, body
}

func runN(h *Health, n int) {
	for range n {
		for _, s := range h.checks {
			s.run(context.Background())
		}
	}
}

func TestLiveEndpoint(t *testing.T) {
	tests := []struct {
		name       string
		fn         CheckFunc
		runs       int
		wantStatus int
	}{
		{name: "passing", fn: passing, runs: 1, wantStatus: http.StatusOK},
		{name: "never run", fn: failing("x"), runs: 0, wantStatus: http.StatusOK},
		{name: "below threshold", fn: failing("temporary"), runs: 2, wantStatus: http.StatusOK},
		{name: "at threshold", fn: failing("connection refused"), runs: 3, wantStatus: http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := New()
			h.Register(Check{Name: "db", Kind: Liveness, Fn: tt.fn})
			runN(h, tt.runs)

			code, body := callEndpoint(t, h.LiveEndpoint)
			assert.Equal(t, tt.wantStatus, code)
			if tt.wantStatus != http.StatusOK {
				assert.Equal(t, "unhealthy", body.Status)
				assert.Equal(t, "connection refused", body.Checks["db"])
			} else {
				assert.Equal(t, "ok", body.Status)
			}
		})
	}
}

func TestReadyEndpoint(t *testing.T) {
	h := New()
	h.Register(Check{Name: "postgres", Kind: Readiness, Fn: failing("down"), FailureThreshold: 1})
	h.Register(Check{Name: "goroutines", Kind: Liveness, Fn: failing("leak"), FailureThreshold: 1})

	code, body := callEndpoint(t, h.ReadyEndpoint)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "service is not ready", body.Checks["_readiness"])

	h.SetReady(true)
	code, _ = callEndpoint(t, h.ReadyEndpoint)
	assert.Equal(t, http.StatusOK, code)
	assert.True(t, h.IsReady())

	runN(h, 1)
	code, body = callEndpoint(t, h.ReadyEndpoint)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "down", body.Checks["postgres"])
	assert.NotContains(t, body.Checks, "goroutines")
	assert.False(t, h.IsReady())
}

func TestCheck_Recovers(t *testing.T) {
	var fail atomic.Bool
	fail.Store(true)
	h := New()
	h.Register(Check{Name: "db", Kind: Liveness, FailureThreshold: 1, Fn: func(context.Context) error {
		if fail.Load() {
			return errors.New("down")
		}
		return nil
	}})

	runN(h, 1)
	code, _ := callEndpoint(t, h.LiveEndpoint)
	require.Equal(t, http.StatusServiceUnavailable, code)

	fail.Store(false)
	runN(h, 1)
	code, _ = callEndpoint(t, h.LiveEndpoint)
	assert.Equal(t, http.StatusOK, code)
}

func TestCheck_Timeout(t *testing.T) {
	h := New()
	h.Register(Check{Name: "slow", Kind: Readiness, Timeout: 10 * time.Millisecond, FailureThreshold: 1,
		Fn: func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		}})
	h.SetReady(true)
	runN(h, 1)
	assert.False(t, h.IsReady())
}

func TestStartStop(t *testing.T) {
	var calls atomic.Int32
	h := New()
	h.Register(Check{Name: "count", Kind: Liveness, Fn: func(context.Context) error {
		calls.Add(1)
		return nil
	}})

	h.Start(t.Context(), 5*time.Millisecond)
	require.Eventually(t, func() bool { return calls.Load() >= 2 }, time.Second, 5*time.Millisecond)
	h.Stop()
	h.Stop()

	time.Sleep(20 * time.Millisecond)
	n := calls.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, n, calls.Load())
}

type pingerFunc func(context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestCheckers(t *testing.T) {
	require.NoError(t, PingCheck(pingerFunc(passing))(context.Background()))
	err := PingCheck(pingerFunc(failing("refused")))(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "refused")

	require.NoError(t, GoroutineCountCheck(1_000_000)(context.Background()))
	require.Error(t, GoroutineCountCheck(0)(context.Background()))
}

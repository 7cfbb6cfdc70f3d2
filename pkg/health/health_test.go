package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type statusBody struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func fetch(t *testing.T, endpoint http.HandlerFunc) (int, statusBody) {
	t.Helper()
	w := httptest.NewRecorder()
	endpoint(w, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var body statusBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w.Code, body
}

func fail(msg string) CheckFunc {
	return func(context.Context) error { return errors.New(msg) }
}

func pass(context.Context) error { return nil }

func runN(c *check, n int) {
	for range n {
		c.run(context.Background())
	}
}

func TestLiveEndpoint(t *testing.T) {
	h := New()
	h.AddLivenessCheck("goroutines", time.Second, pass)
	h.AddLivenessCheck("postgres", time.Second, fail("connection refused"))

	code, body := fetch(t, h.LiveEndpoint)
	assert.Equal(t, http.StatusOK, code, "checks start healthy")
	assert.Equal(t, "ok", body.Status)

	runN(h.liveness[1], 2)
	code, _ = fetch(t, h.LiveEndpoint)
	assert.Equal(t, http.StatusOK, code, "below failure threshold")

	runN(h.liveness[1], 1)
	code, body = fetch(t, h.LiveEndpoint)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "unhealthy", body.Status)
	assert.Equal(t, map[string]string{"postgres": "connection refused"}, body.Checks)
}

func TestReadyEndpoint(t *testing.T) {
	h := New()
	h.AddReadinessCheck("postgres", time.Second, pass)
	h.AddReadinessCheck("redis", time.Second, fail("i/o timeout"), WithThresholds(1, 0))

	code, body := fetch(t, h.ReadyEndpoint)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Contains(t, body.Checks, "_readiness")
	assert.False(t, h.IsReady())

	h.SetReady(true)
	code, _ = fetch(t, h.ReadyEndpoint)
	assert.Equal(t, http.StatusOK, code)
	assert.True(t, h.IsReady())

	runN(h.readiness[1], 1)
	code, body = fetch(t, h.ReadyEndpoint)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "i/o timeout", body.Checks["redis"])
	assert.NotContains(t, body.Checks, "postgres")
	assert.False(t, h.IsReady())

	h.SetReady(false)
	_, body = fetch(t, h.ReadyEndpoint)
	assert.Len(t, body.Checks, 2)
}

func TestCheck_Thresholds(t *testing.T) {
	var down atomic.Bool
	down.Store(true)
	c := newCheck("flaky", time.Second, func(context.Context) error {
		if down.Load() {
			return errors.New("down")
		}
		return nil
	}, []CheckOption{WithThresholds(2, 2)})

	assert.Nil(t, c.lastError())
	runN(c, 1)
	assert.True(t, c.isHealthy())
	assert.EqualError(t, c.lastError(), "down")
	runN(c, 1)
	assert.False(t, c.isHealthy())

	down.Store(false)
	runN(c, 1)
	assert.False(t, c.isHealthy(), "needs two passes to recover")
	runN(c, 1)
	assert.True(t, c.isHealthy())
	assert.NoError(t, c.lastError())
}

func TestCheck_Timeout(t *testing.T) {
	c := newCheck("slow", 10*time.Millisecond, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}, []CheckOption{WithThresholds(1, 1)})

	runN(c, 1)
	assert.False(t, c.isHealthy())
	assert.ErrorIs(t, c.lastError(), context.DeadlineExceeded)
}

func TestStartStop(t *testing.T) {
	var runs atomic.Int32
	h := New()
	h.AddReadinessCheck("postgres", time.Second, func(context.Context) error {
		runs.Add(1)
		return nil
	})
	h.SetReady(true)

	h.Start(context.Background(), 5*time.Millisecond)
	assert.Eventually(t, func() bool { return runs.Load() >= 2 }, time.Second, 5*time.Millisecond)
	h.Stop()
	h.Stop()
}

func TestConcurrentChecks(t *testing.T) {
	h := New()
	h.AddLivenessCheck("flaky", time.Second, fail("err"))
	h.AddReadinessCheck("postgres", time.Second, pass)
	h.SetReady(true)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h.Start(ctx, time.Millisecond)
	defer h.Stop()

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 50 {
				h.IsReady()
				h.LiveEndpoint(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/livez", nil))
				h.ReadyEndpoint(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/readyz", nil))
			}
		}()
	}
	wg.Wait()
}

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

func TestPingCheck(t *testing.T) {
	assert.NoError(t, PingCheck("redis", pinger{})(context.Background()))

	err := PingCheck("redis", pinger{err: errors.New("refused")})(context.Background())
	assert.EqualError(t, err, "ping redis: refused")
}

func TestRuntimeChecks(t *testing.T) {
	assert.NoError(t, GoroutineCountCheck(100000)(context.Background()))
	assert.ErrorContains(t, GoroutineCountCheck(0)(context.Background()), "exceeds threshold")
	assert.NoError(t, GCMaxPauseCheck(time.Hour)(context.Background()))
}

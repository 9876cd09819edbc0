package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func probeGet(t *testing.T, h *Health, path string) (int, Response) {
	t.Helper()
	r := gin.New()
	h.Register(r)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))

	var resp Response
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	return w.Code, resp
}

type fakePinger struct{ err atomic.Pointer[error] }

func (p *fakePinger) Ping(context.Context) error {
	if e := p.err.Load(); e != nil {
		return *e
	}
	return nil
}

func (p *fakePinger) fail(err error) { p.err.Store(&err) }
func (p *fakePinger) heal()          { p.err.Store(nil) }

func TestHealth_Probes(t *testing.T) {
	db := &fakePinger{}
	backlog := atomic.Int64{}

	h := New()
	h.Add(Check{Name: "postgres", Kind: Readiness, FailureThreshold: 2, Func: PingCheck(db)})
	h.Add(Check{Name: "notify", Kind: Liveness, FailureThreshold: 1, Func: BacklogCheck(func() int { return int(backlog.Load()) }, 10)})
	h.Start(context.Background(), 5*time.Millisecond)
	defer h.Stop()

	code, resp := probeGet(t, h, "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "service is not ready", resp.Checks["_readiness"])

	h.SetReady(true)
	code, resp = probeGet(t, h, "/readyz")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, h.IsReady())

	db.fail(errors.New("connection refused"))
	require.Eventually(t, func() bool { return !h.IsReady() }, time.Second, 5*time.Millisecond)
	code, resp = probeGet(t, h, "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Contains(t, resp.Checks["postgres"], "connection refused")

	code, _ = probeGet(t, h, "/livez")
	assert.Equal(t, http.StatusOK, code, "readiness failures do not affect liveness")

	db.heal()
	require.Eventually(t, h.IsReady, time.Second, 5*time.Millisecond)

	backlog.Store(11)
	require.Eventually(t, func() bool {
		code, _ := probeGet(t, h, "/livez")
		return code == http.StatusServiceUnavailable
	}, time.Second, 5*time.Millisecond)
}

func TestProbe_Thresholds(t *testing.T) {
	var fail atomic.Bool
	p := &probe{Check: Check{
		Name: "x", Timeout: time.Second, FailureThreshold: 3, SuccessThreshold: 2,
		Func: func(context.Context) error {
			if fail.Load() {
				return errors.New("down")
			}
			return nil
		},
	}}
	p.healthy.Store(true)
	ctx := context.Background()

	fail.Store(true)
	p.run(ctx)
	p.run(ctx)
	_, failed := p.failure()
	assert.False(t, failed, "below failure threshold")

	p.run(ctx)
	msg, failed := p.failure()
	assert.True(t, failed)
	assert.Equal(t, "down", msg)

	fail.Store(false)
	p.run(ctx)
	_, failed = p.failure()
	assert.True(t, failed, "below success threshold")

	p.run(ctx)
	_, failed = p.failure()
	assert.False(t, failed)
}

func TestHealth_StopIsIdempotent(t *testing.T) {
	h := New()
	h.Add(Check{Name: "g", Func: GoroutineCountCheck(1 << 20)})
	h.Start(context.Background(), time.Millisecond)
	h.Stop()
	h.Stop()

	code, resp := probeGet(t, h, "/livez")
	assert.Equal(t, http.StatusOK, code)
	assert.Empty(t, resp.Checks)
}

func TestGoroutineCountCheck(t *testing.T) {
	require.NoError(t, GoroutineCountCheck(1<<20)(context.Background()))
	require.Error(t, GoroutineCountCheck(0)(context.Background()))
}

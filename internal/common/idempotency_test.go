package common_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/tokoanjar/pos-api/internal/common"
)

func idemHandler(t *testing.T) (http.Handler, *miniredis.Miniredis, *int) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	calls := 0
	idem := common.Idem{R: rdb, TTL: time.Minute}
	h := idem.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusCreated)
	}))
	return h, mr, &calls
}

func post(h http.Handler, key string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/checkout", nil)
	if key != "" {
		req.Header.Set("Idempotency-Key", key)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestIdempotencyFirstRequestPasses(t *testing.T) {
	h, _, calls := idemHandler(t)

	rr := post(h, "abc-123")
	require.Equal(t, http.StatusCreated, rr.Code)
	require.Equal(t, 1, *calls)
}

func TestIdempotencyReplayRejected(t *testing.T) {
	h, _, calls := idemHandler(t)

	require.Equal(t, http.StatusCreated, post(h, "abc-123").Code)

	rr := post(h, "abc-123")
	require.Equal(t, http.StatusConflict, rr.Code)
	require.Contains(t, rr.Body.String(), "IDEMPOTENT_REPLAY")
	require.Equal(t, 1, *calls)
}

func TestIdempotencyDistinctKeys(t *testing.T) {
	h, _, calls := idemHandler(t)

	require.Equal(t, http.StatusCreated, post(h, "key-one").Code)
	require.Equal(t, http.StatusCreated, post(h, "key-two").Code)
	require.Equal(t, 2, *calls)
}

func TestIdempotencyNoHeaderPassesThrough(t *testing.T) {
	h, _, calls := idemHandler(t)

	require.Equal(t, http.StatusCreated, post(h, "").Code)
	require.Equal(t, http.StatusCreated, post(h, "").Code)
	require.Equal(t, 2, *calls)
}

func TestIdempotencyKeyExpires(t *testing.T) {
	h, mr, calls := idemHandler(t)

	require.Equal(t, http.StatusCreated, post(h, "abc-123").Code)
	mr.FastForward(2 * time.Minute)
	require.Equal(t, http.StatusCreated, post(h, "abc-123").Code)
	require.Equal(t, 2, *calls)
}

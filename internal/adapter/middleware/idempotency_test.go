package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testReqID    = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	testBorrower = "B-1"
)

func setupEcho(rdb redis.Cmdable, handler echo.HandlerFunc) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Use(Idempotency(rdb, IdempotencyConfig{TTL: 2 * time.Minute}))
	e.POST("/repayments/pay", handler)
	e.GET("/repayments/pay", handler)
	return e
}

func validHeaders() map[string]string {
	return map[string]string{
		HeaderIdempotencyKey: testReqID,
		HeaderRequestAt:      time.Now().UTC().Format(time.RFC3339),
		HeaderBorrowerID:     testBorrower,
	}
}

func doReq(t *testing.T, e *echo.Echo, method string, body []byte, hdr map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}
	req := httptest.NewRequest(method, "/repayments/pay", r)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body["code"]
}

// countingHandler records how often the wrapped handler actually ran.
func countingHandler(n *atomic.Int32, status int) echo.HandlerFunc {
	return func(c echo.Context) error {
		n.Add(1)
		return c.JSON(status, map[string]any{"call": n.Load()})
	}
}

func TestIdempotency_BypassOnGET(t *testing.T) {
	_, rdb := newMiniRedis(t)
	var n atomic.Int32
	rec := doReq(t, setupEcho(rdb, countingHandler(&n, http.StatusOK)), http.MethodGet, nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, n.Load())
}

func TestIdempotency_HeaderValidation(t *testing.T) {
	_, rdb := newMiniRedis(t)
	var n atomic.Int32
	e := setupEcho(rdb, countingHandler(&n, http.StatusCreated))

	tests := []struct {
		name string
		mut  func(h map[string]string)
		code string
	}{
		{"missing key", func(h map[string]string) { delete(h, HeaderIdempotencyKey) }, "idempotency_key_required"},
		{"bad key", func(h map[string]string) { h[HeaderIdempotencyKey] = "NOT-VALID" }, "idempotency_key_invalid"},
		{"bad request-at", func(h map[string]string) { h[HeaderRequestAt] = "not-a-time" }, "request_at_invalid"},
		{"missing request-at", func(h map[string]string) { delete(h, HeaderRequestAt) }, "request_at_invalid"},
		{"skewed request-at", func(h map[string]string) {
			h[HeaderRequestAt] = time.Now().UTC().Add(-defaultMaxSkew - time.Minute).Format(time.RFC3339)
		}, "request_at_skewed"},
		{"bad borrower", func(h map[string]string) { h[HeaderBorrowerID] = "has space" }, "borrower_id_invalid"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := validHeaders()
			tt.mut(h)
			rec := doReq(t, e, http.MethodPost, []byte(`{"x":1}`), h)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.code, errorCode(t, rec))
		})
	}
	assert.EqualValues(t, 0, n.Load())
}

func TestIdempotency_UppercaseKeyIsNormalised(t *testing.T) {
	_, rdb := newMiniRedis(t)
	var n atomic.Int32
	e := setupEcho(rdb, countingHandler(&n, http.StatusCreated))

	h := validHeaders()
	h[HeaderIdempotencyKey] = strings.ToUpper(testReqID)
	require.Equal(t, http.StatusCreated, doReq(t, e, http.MethodPost, []byte(`{}`), h).Code)
	require.Equal(t, http.StatusCreated, doReq(t, e, http.MethodPost, []byte(`{}`), validHeaders()).Code)
	assert.EqualValues(t, 1, n.Load())
}

func TestIdempotency_ReplaysRecordedResponse(t *testing.T) {
	_, rdb := newMiniRedis(t)
	var n atomic.Int32
	e := setupEcho(rdb, countingHandler(&n, http.StatusCreated))
	body := []byte(`{"amount":"100.00"}`)

	rec1 := doReq(t, e, http.MethodPost, body, validHeaders())
	require.Equal(t, http.StatusCreated, rec1.Code, rec1.Body.String())

	rec2 := doReq(t, e, http.MethodPost, body, validHeaders())
	require.Equal(t, http.StatusCreated, rec2.Code)
	assert.Equal(t, rec1.Body.String(), rec2.Body.String())
	assert.Equal(t, "true", rec2.Header().Get(HeaderReplayed))
	assert.EqualValues(t, 1, n.Load(), "handler must run once")

	// another borrower gets its own key
	h := validHeaders()
	h[HeaderBorrowerID] = "B-2"
	doReq(t, e, http.MethodPost, body, h)
	assert.EqualValues(t, 2, n.Load())
}

func TestIdempotency_ClientErrorsAreRecorded(t *testing.T) {
	_, rdb := newMiniRedis(t)
	var n atomic.Int32
	e := setupEcho(rdb, countingHandler(&n, http.StatusBadRequest))

	doReq(t, e, http.MethodPost, []byte(`{}`), validHeaders())
	rec := doReq(t, e, http.MethodPost, []byte(`{}`), validHeaders())
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.EqualValues(t, 1, n.Load())
}

func TestIdempotency_ServerErrorsAreRetryable(t *testing.T) {
	_, rdb := newMiniRedis(t)
	var n atomic.Int32
	e := setupEcho(rdb, countingHandler(&n, http.StatusInternalServerError))

	doReq(t, e, http.MethodPost, []byte(`{}`), validHeaders())
	rec := doReq(t, e, http.MethodPost, []byte(`{}`), validHeaders())
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.EqualValues(t, 2, n.Load())
}

func TestIdempotency_HandlerErrorGoesThroughEcho(t *testing.T) {
	_, rdb := newMiniRedis(t)
	e := setupEcho(rdb, func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusConflict, "nope")
	})
	rec := doReq(t, e, http.MethodPost, []byte(`{}`), validHeaders())
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = doReq(t, e, http.MethodPost, []byte(`{}`), validHeaders())
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "true", rec.Header().Get(HeaderReplayed))
}

func TestIdempotency_ConflictWhenInProgress(t *testing.T) {
	_, rdb := newMiniRedis(t)
	var n atomic.Int32
	e := setupEcho(rdb, countingHandler(&n, http.StatusCreated))
	body := []byte(`{"x":1}`)

	key := buildKey(http.MethodPost, "/repayments/pay", testBorrower, testReqID)
	ok, err := store{rdb: rdb}.reserve(context.Background(), key, entry{InProgress: true, BodySHA256: bodyHash(body)})
	require.NoError(t, err)
	require.True(t, ok)

	rec := doReq(t, e, http.MethodPost, body, validHeaders())
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "request_in_progress", errorCode(t, rec))
	assert.EqualValues(t, 0, n.Load())
}

func TestIdempotency_ConflictOnDifferentBody(t *testing.T) {
	_, rdb := newMiniRedis(t)
	var n atomic.Int32
	e := setupEcho(rdb, countingHandler(&n, http.StatusCreated))

	require.Equal(t, http.StatusCreated, doReq(t, e, http.MethodPost, []byte(`{"x":1}`), validHeaders()).Code)
	rec := doReq(t, e, http.MethodPost, []byte(`{"x":2}`), validHeaders())
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "idempotency_key_reused", errorCode(t, rec))
}

func TestIdempotency_StoreUnavailable(t *testing.T) {
	mr, rdb := newMiniRedis(t)
	mr.Close()
	var n atomic.Int32
	rec := doReq(t, setupEcho(rdb, countingHandler(&n, http.StatusCreated)), http.MethodPost, []byte(`{}`), validHeaders())
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.EqualValues(t, 0, n.Load())
}

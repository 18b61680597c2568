package middleware

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	HeaderIdempotencyKey = "Idempotency-Key"
	HeaderRequestAt      = "X-Request-At"
	HeaderBorrowerID     = "X-Borrower-Id"
	HeaderReplayed       = "Idempotent-Replayed"

	// how long a request may hold its key before another attempt can take over
	reserveTTL = 60 * time.Second

	defaultTTL     = 24 * time.Hour
	defaultMaxSkew = 10 * time.Minute
	storeTimeout   = 2 * time.Second
)

type IdempotencyConfig struct {
	// TTL of a recorded response.
	TTL time.Duration
	// Allowed distance between X-Request-At and the server clock.
	MaxSkew time.Duration
	Logger  *zap.Logger
}

type entry struct {
	InProgress  bool      `json:"in_progress"`
	Code        int       `json:"code"`
	Body        []byte    `json:"body"`
	BodySHA256  string    `json:"body_sha256"`
	RequestID   string    `json:"request_id"`
	RequestAtMS int64     `json:"request_at_ms"`
	CreatedAt   time.Time `json:"created_at"`
}

type respRecorder struct {
	w    http.ResponseWriter
	buf  *bytes.Buffer
	code int
}

func (r *respRecorder) Header() http.Header { return r.w.Header() }
func (r *respRecorder) Write(b []byte) (int, error) {
	r.buf.Write(b)
	return r.w.Write(b)
}
func (r *respRecorder) WriteHeader(statusCode int) { r.code = statusCode; r.w.WriteHeader(statusCode) }

func reject(c echo.Context, status int, code, msg string) error {
	return c.JSON(status, map[string]string{"error": msg, "code": code})
}

// Idempotency replays the recorded response when a mutating request is
// retried with the same Idempotency-Key. The key is scoped by method, route
// and X-Borrower-Id. Reusing a key with a different body is a conflict.
// Server errors are not recorded so the client may retry them.
func Idempotency(rdb redis.Cmdable, cfg IdempotencyConfig) echo.MiddlewareFunc {
	if cfg.TTL <= 0 {
		cfg.TTL = defaultTTL
	}
	if cfg.MaxSkew <= 0 {
		cfg.MaxSkew = defaultMaxSkew
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	st := store{rdb: rdb}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			switch req.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				return next(c)
			}

			reqID := strings.ToLower(strings.TrimSpace(req.Header.Get(HeaderIdempotencyKey)))
			if reqID == "" {
				return reject(c, http.StatusBadRequest, "idempotency_key_required", "missing "+HeaderIdempotencyKey)
			}
			if !validRequestID(reqID) {
				return reject(c, http.StatusBadRequest, "idempotency_key_invalid", "invalid "+HeaderIdempotencyKey+" format")
			}

			reqAt, err := parseRequestAt(req.Header.Get(HeaderRequestAt))
			if err != nil {
				return reject(c, http.StatusBadRequest, "request_at_invalid", err.Error())
			}
			now := nowUTC()
			if reqAt.Before(now.Add(-cfg.MaxSkew)) || reqAt.After(now.Add(cfg.MaxSkew)) {
				return reject(c, http.StatusBadRequest, "request_at_skewed", HeaderRequestAt+" too skewed")
			}

			borrowerID := strings.TrimSpace(req.Header.Get(HeaderBorrowerID))
			if borrowerID != "" && !validBorrowerID(borrowerID) {
				return reject(c, http.StatusBadRequest, "borrower_id_invalid", "invalid "+HeaderBorrowerID)
			}

			var body []byte
			if req.Body != nil {
				body, _ = io.ReadAll(req.Body)
			}
			req.Body = io.NopCloser(bytes.NewReader(body))
			bhash := bodyHash(body)

			key := buildKey(req.Method, c.Path(), borrowerID, reqID)
			ctx, cancel := context.WithTimeout(req.Context(), storeTimeout)
			defer cancel()

			ok, err := st.reserve(ctx, key, entry{
				InProgress:  true,
				BodySHA256:  bhash,
				RequestID:   reqID,
				RequestAtMS: reqAt.UnixMilli(),
				CreatedAt:   now,
			})
			if err != nil {
				log.Error("idempotency reserve failed", zap.String("key", key), zap.Error(err))
				return reject(c, http.StatusServiceUnavailable, "idempotency_unavailable", "idempotency store unavailable")
			}
			if !ok {
				cur, err := st.load(ctx, key)
				if err != nil {
					log.Warn("idempotency load failed", zap.String("key", key), zap.Error(err))
				}
				if cur.BodySHA256 != "" && cur.BodySHA256 != bhash {
					return reject(c, http.StatusConflict, "idempotency_key_reused", HeaderIdempotencyKey+" reused with different body")
				}
				if !cur.InProgress && cur.Code != 0 {
					c.Response().Header().Set(HeaderReplayed, "true")
					return c.Blob(cur.Code, echo.MIMEApplicationJSONCharsetUTF8, cur.Body)
				}
				return reject(c, http.StatusConflict, "request_in_progress", "request is already in progress")
			}

			rec := &respRecorder{w: c.Response().Writer, buf: &bytes.Buffer{}, code: http.StatusOK}
			c.Response().Writer = rec
			if err := next(c); err != nil {
				c.Error(err)
			}

			saveCtx, cancelSave := context.WithTimeout(context.WithoutCancel(req.Context()), storeTimeout)
			defer cancelSave()
			if rec.code >= http.StatusInternalServerError {
				if err := st.release(saveCtx, key); err != nil {
					log.Warn("idempotency release failed", zap.String("key", key), zap.Error(err))
				}
				return nil
			}
			err = st.save(saveCtx, key, entry{
				Code:        rec.code,
				Body:        rec.buf.Bytes(),
				BodySHA256:  bhash,
				RequestID:   reqID,
				RequestAtMS: reqAt.UnixMilli(),
				CreatedAt:   nowUTC(),
			}, cfg.TTL)
			if err != nil {
				log.Warn("idempotency save failed", zap.String("key", key), zap.Error(err))
			}
			return nil
		}
	}
}

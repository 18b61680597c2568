package middleware

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"

	"loanledger/pkg/id"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "loanledger:idem:"

func bodyHash(b []byte) string { s := sha256.Sum256(b); return hex.EncodeToString(s[:]) }

func nowUTC() time.Time { return time.Now().UTC() }

func buildKey(method, route, borrowerID, requestID string) string {
	if borrowerID == "" {
		borrowerID = "-"
	}
	return keyPrefix + strings.ToLower(method) + ":" + route + ":" + borrowerID + ":" + requestID
}

var (
	reUUID     = regexp.MustCompile(`^[a-f0-9]{8}-[a-f0-9]{4}-[1-8][a-f0-9]{3}-[89ab][a-f0-9]{3}-[a-f0-9]{12}$`)
	reBorrower = regexp.MustCompile(`^[A-Za-z0-9_-]{1,32}$`)
)

// validRequestID accepts a lowercase UUID or a 32-char lowercase hex id.
func validRequestID(v string) bool {
	return reUUID.MatchString(v) || id.Valid(v)
}

func validBorrowerID(v string) bool { return reBorrower.MatchString(v) }

// parseRequestAt accepts epoch seconds, epoch milliseconds or RFC3339 with
// a zone. Naive local timestamps are rejected.
func parseRequestAt(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, errors.New("missing " + HeaderRequestAt)
	}
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		if n > 1e12 {
			return time.UnixMilli(n).UTC(), nil
		}
		return time.Unix(n, 0).UTC(), nil
	}
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, errors.New(HeaderRequestAt + " must be epoch (s/ms) or RFC3339 with timezone")
}

// store keeps idempotency entries in Redis. An entry is first reserved as
// in-progress with a short TTL, then overwritten with the final response.
type store struct {
	rdb redis.Cmdable
}

func (s store) reserve(ctx context.Context, key string, e entry) (bool, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return false, err
	}
	return s.rdb.SetNX(ctx, key, payload, reserveTTL).Result()
}

func (s store) load(ctx context.Context, key string) (entry, error) {
	var e entry
	v, err := s.rdb.Get(ctx, key).Bytes()
	if err != nil {
		return e, err
	}
	err = json.Unmarshal(v, &e)
	return e, err
}

func (s store) save(ctx context.Context, key string, e entry, ttl time.Duration) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, key, payload, ttl).Err()
}

func (s store) release(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, key).Err()
}

package middleware

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newMiniRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func Test_bodyHash(t *testing.T) {
	data := []byte("hello world")
	sum := sha256.Sum256(data)
	if got, want := bodyHash(data), hex.EncodeToString(sum[:]); got != want {
		t.Fatalf("bodyHash mismatch: got %s want %s", got, want)
	}
}

func Test_buildKey(t *testing.T) {
	k := buildKey("POST", "/repayments/pay", "B-1", strings.Repeat("a", 32))
	if want := "loanledger:idem:post:/repayments/pay:B-1:" + strings.Repeat("a", 32); k != want {
		t.Fatalf("buildKey = %q, want %q", k, want)
	}
	if k := buildKey("POST", "/loans/:loan_id/approve", "", "x"); !strings.Contains(k, ":-:x") {
		t.Fatalf("missing borrower placeholder: %q", k)
	}
}

func Test_validRequestID(t *testing.T) {
	for _, s := range []string{
		"3f9a6a1b-3d54-4fbe-8b3a-6b3e8d6b2c88",
		"0190d5c2-7a3b-7c4d-8e5f-0123456789ab",
		strings.Repeat("a", 32),
	} {
		if !validRequestID(s) {
			t.Fatalf("validRequestID should accept %q", s)
		}
	}
	for _, s := range []string{
		"",
		"3f9a6a1b3d544fbe8b3a6b3e8d6b2c8",
		"3f9a6a1b3d544fbe8b3a6b3e8d6b2c880",
		"zzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzz",
		"3f9a6a1b-3d54-9fbe-8b3a-6b3e8d6b2c88",
	} {
		if validRequestID(s) {
			t.Fatalf("validRequestID should reject %q", s)
		}
	}
}

func Test_validBorrowerID(t *testing.T) {
	if !validBorrowerID("B-1_x") || !validBorrowerID(strings.Repeat("b", 32)) {
		t.Fatal("expected valid borrower ids")
	}
	if validBorrowerID(strings.Repeat("b", 33)) || validBorrowerID("b 1") || validBorrowerID("") {
		t.Fatal("expected invalid borrower ids")
	}
}

func Test_parseRequestAt(t *testing.T) {
	sec := time.Now().UTC().Unix()
	ms := time.Now().UTC().UnixMilli()
	tests := []struct {
		raw  string
		want time.Time
	}{
		{strconv.FormatInt(sec, 10), time.Unix(sec, 0).UTC()},
		{strconv.FormatInt(ms, 10), time.UnixMilli(ms).UTC()},
		{"2025-09-05T10:00:00+07:00", time.Date(2025, 9, 5, 3, 0, 0, 0, time.UTC)},
		{"2025-09-05T03:00:00.5Z", time.Date(2025, 9, 5, 3, 0, 0, 5e8, time.UTC)},
	}
	for _, tt := range tests {
		got, err := parseRequestAt(tt.raw)
		if err != nil {
			t.Fatalf("parseRequestAt(%q): %v", tt.raw, err)
		}
		if !got.Equal(tt.want) {
			t.Fatalf("parseRequestAt(%q) = %v, want %v", tt.raw, got, tt.want)
		}
	}
	for _, raw := range []string{"", "not-a-time", "2025-09-05T10:00:00", "1736123456abc"} {
		if _, err := parseRequestAt(raw); err == nil {
			t.Fatalf("expected error for %q", raw)
		}
	}
}

func Test_store_ReserveLoadSaveRelease(t *testing.T) {
	_, rdb := newMiniRedis(t)
	st := store{rdb: rdb}
	ctx := context.Background()
	key := buildKey("POST", "/repayments/pay", "B-1", strings.Repeat("a", 32))
	e := entry{InProgress: true, BodySHA256: bodyHash([]byte(`{"a":1}`)), RequestID: strings.Repeat("a", 32)}

	ok, err := st.reserve(ctx, key, e)
	if err != nil || !ok {
		t.Fatalf("reserve 1: ok=%v err=%v", ok, err)
	}
	if ttl := rdb.TTL(ctx, key).Val(); ttl <= 0 || ttl > reserveTTL {
		t.Fatalf("reserve TTL = %v", ttl)
	}
	if ok, _ := st.reserve(ctx, key, e); ok {
		t.Fatal("second reserve must fail")
	}
	got, err := st.load(ctx, key)
	if err != nil || !got.InProgress || got.BodySHA256 != e.BodySHA256 {
		t.Fatalf("load: %+v err=%v", got, err)
	}

	final := entry{Code: 201, Body: []byte(`{"ok":true}`), BodySHA256: e.BodySHA256}
	if err := st.save(ctx, key, final, 5*time.Second); err != nil {
		t.Fatalf("save: %v", err)
	}
	if ttl := rdb.TTL(ctx, key).Val(); ttl <= 0 || ttl > 5*time.Second {
		t.Fatalf("final TTL = %v", ttl)
	}
	got, _ = st.load(ctx, key)
	if got.InProgress || got.Code != 201 || string(got.Body) != `{"ok":true}` {
		t.Fatalf("final entry mismatch: %+v", got)
	}

	if err := st.release(ctx, key); err != nil {
		t.Fatalf("release: %v", err)
	}
	if ok, _ := st.reserve(ctx, key, e); !ok {
		t.Fatal("reserve after release must succeed")
	}
}

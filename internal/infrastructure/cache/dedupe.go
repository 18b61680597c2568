package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const dedupePrefix = "loanledger:delivered:"

// Deduper records delivered notification event keys.
type Deduper struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewDeduper(rdb *redis.Client, ttl time.Duration) *Deduper {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &Deduper{rdb: rdb, ttl: ttl}
}

func (d *Deduper) Seen(ctx context.Context, eventKey string) (bool, error) {
	n, err := d.rdb.Exists(ctx, dedupePrefix+eventKey).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (d *Deduper) Mark(ctx context.Context, eventKey string) error {
	return d.rdb.Set(ctx, dedupePrefix+eventKey, time.Now().UTC().Format(time.RFC3339), d.ttl).Err()
}

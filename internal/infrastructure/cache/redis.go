package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	// PingTimeout bounds the startup ping. Zero means 5s.
	PingTimeout time.Duration
}

// OpenRedis returns a client that has answered a PING.
func OpenRedis(ctx context.Context, o RedisOptions) (*redis.Client, error) {
	if o.PingTimeout <= 0 {
		o.PingTimeout = 5 * time.Second
	}
	c := redis.NewClient(&redis.Options{
		Addr:         o.Addr,
		Password:     o.Password,
		DB:           o.DB,
		DialTimeout:  3 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
	pctx, cancel := context.WithTimeout(ctx, o.PingTimeout)
	defer cancel()
	if err := c.Ping(pctx).Err(); err != nil {
		_ = c.Close()
		return nil, err
	}
	return c, nil
}

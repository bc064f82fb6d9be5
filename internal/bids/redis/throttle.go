package redis

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

// Throttle limits bids per bidder per lot with an INCR + EXPIRE counter.
type Throttle struct {
	Client *redis.Client
	Limit  int
	Window time.Duration
}

func NewThrottle(client *redis.Client, limit int, window time.Duration) *Throttle {
	if limit <= 0 {
		limit = 3
	}
	if window <= 0 {
		window = time.Minute
	}
	return &Throttle{Client: client, Limit: limit, Window: window}
}

// Allow counts this attempt and reports whether the bidder is still under
// the limit for the lot.
func (t *Throttle) Allow(lotID, bidderID string) (bool, error) {
	ctx := context.Background()
	key := "bid_rate:" + lotID + ":" + bidderID

	n, err := t.Client.Incr(ctx, key).Result()
	if err != nil {
		return false, err
	}
	if n == 1 {
		if err := t.Client.Expire(ctx, key, t.Window).Err(); err != nil {
			return false, err
		}
	}
	return n <= int64(t.Limit), nil
}

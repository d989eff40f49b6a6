package external

import (
	"time"

	"golang.org/x/time/rate"
)

// quota gates requests to a single provider at a fixed per-minute cap,
// the same rate.Limiter-per-key shape the teacher's auth middleware uses
// for per-IP limiting (one token refilled every window/requests, burst =
// requests per window), applied here per-provider instead of per-client.
type quota struct {
	limiter *rate.Limiter
}

// newQuota builds a quota allowing up to perMinute requests per minute.
func newQuota(perMinute int) *quota {
	if perMinute < 1 {
		perMinute = 1
	}
	return &quota{limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), perMinute)}
}

func (q *quota) allow() bool {
	return q.limiter.Allow()
}

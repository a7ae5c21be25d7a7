// Package syncclient connects a canvas engine to a whiteboard room over a websocket and to the
// REST API for persistence.
package syncclient

import (
	"errors"
	"time"
)

var ErrRetriesExhausted = errors.New("reconnect attempts exhausted")

// RetryPolicy drives reconnection. Endpoints are tried round robin, one per attempt, so a list
// like {primary, fallback} alternates between the two.
type RetryPolicy struct {
	// MaxAttempts is the number of consecutive failed dials allowed. Zero retries forever.
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Multiplier     float64
	Endpoints      []string
}

func DefaultRetryPolicy(endpoints ...string) RetryPolicy {
	return RetryPolicy{
		MaxAttempts:    10,
		InitialBackoff: 500 * time.Millisecond,
		MaxBackoff:     10 * time.Second,
		Multiplier:     2,
		Endpoints:      endpoints,
	}
}

// Backoff is the wait after the given failed attempt, counting from zero.
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	mult := p.Multiplier
	if mult < 1 {
		mult = 1
	}
	d := float64(p.InitialBackoff)
	for i := 0; i < attempt; i++ {
		d *= mult
		if p.MaxBackoff > 0 && d >= float64(p.MaxBackoff) {
			return p.MaxBackoff
		}
	}
	if p.MaxBackoff > 0 && time.Duration(d) > p.MaxBackoff {
		return p.MaxBackoff
	}
	return time.Duration(d)
}

// Endpoint returns the endpoint for the given attempt.
func (p RetryPolicy) Endpoint(attempt int) string {
	if len(p.Endpoints) == 0 {
		return ""
	}
	return p.Endpoints[attempt%len(p.Endpoints)]
}

func (p RetryPolicy) exhausted(failures int) bool {
	return p.MaxAttempts > 0 && failures >= p.MaxAttempts
}

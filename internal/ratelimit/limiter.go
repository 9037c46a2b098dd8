// Package ratelimit admits or throttles requests per (subject, tier) using
// fixed-window counters kept in memory or in Redis.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"
)

// Tier names used by the HTTP routes.
const (
	TierAPI    = "api"
	TierAuth   = "auth"
	TierWrites = "writes"
)

// ErrUnknownTier is returned by Admit for a tier missing from the table.
var ErrUnknownTier = errors.New("unknown rate limit tier")

// Limit allows Capacity requests per Window.
type Limit struct {
	Capacity int
	Window   time.Duration
}

// Tier is a named set of limits. A request is admitted only when every limit
// has room.
type Tier struct {
	Name   string
	Limits []Limit
	// ByAddress makes the tier key on the client address even for authenticated callers.
	ByAddress bool
	// Message is the 429 response message.
	Message string
}

// Decision is the outcome of one admission attempt. Limit and Remaining
// describe the most constrained limit of the tier.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

// Store increments the counter at key, starting a new window of the given
// length when none is running, and returns the new count and the time left
// in the window.
type Store interface {
	Incr(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
}

// Limiter admits requests against a fixed tier table.
type Limiter struct {
	tiers  map[string]Tier
	store  Store
	prefix string
}

// New creates a Limiter over tiers. Keys are namespaced with prefix.
func New(tiers map[string]Tier, store Store, prefix string) *Limiter {
	return &Limiter{tiers: tiers, store: store, prefix: prefix}
}

// Tier returns the named tier.
func (l *Limiter) Tier(name string) (Tier, bool) {
	t, ok := l.tiers[name]
	return t, ok
}

// Admit counts one attempt by subject against every limit of the tier.
// Rejected attempts are counted too.
func (l *Limiter) Admit(ctx context.Context, subject, tierName string) (Decision, error) {
	tier, ok := l.tiers[tierName]
	if !ok {
		return Decision{}, fmt.Errorf("%w: %s", ErrUnknownTier, tierName)
	}

	d := Decision{Allowed: true, Remaining: -1}
	for i, lim := range tier.Limits {
		key := l.prefix + ":" + tier.Name + ":" + strconv.Itoa(i) + ":" + subject
		count, ttl, err := l.store.Incr(ctx, key, lim.Window)
		if err != nil {
			return Decision{}, fmt.Errorf("failed to count request: %w", err)
		}

		remaining := lim.Capacity - int(count)
		if remaining < 0 {
			remaining = 0
		}
		if d.Remaining < 0 || remaining < d.Remaining {
			d.Limit = lim.Capacity
			d.Remaining = remaining
		}
		if count > int64(lim.Capacity) {
			d.Allowed = false
			if ttl > d.RetryAfter {
				d.RetryAfter = ttl
			}
		}
	}
	if d.Remaining < 0 {
		d.Remaining = 0
	}
	return d, nil
}

// DefaultTiers is the tier table used when none is configured.
func DefaultTiers() map[string]Tier {
	return map[string]Tier{
		TierAPI: {
			Name:    TierAPI,
			Limits:  []Limit{{Capacity: 60, Window: time.Minute}},
			Message: "Too many requests. Please slow down.",
		},
		TierAuth: {
			Name:      TierAuth,
			Limits:    []Limit{{Capacity: 5, Window: time.Minute}, {Capacity: 20, Window: time.Hour}},
			ByAddress: true,
			Message:   "Too many authentication attempts. Please try again later.",
		},
		TierWrites: {
			Name:    TierWrites,
			Limits:  []Limit{{Capacity: 30, Window: time.Minute}},
			Message: "Too many write operations. Please slow down.",
		},
	}
}

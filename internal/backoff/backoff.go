// Copyright (c) 2026, The shipit project contributors
//
// SPDX-License-Identifier: Apache-2.0

// Package backoff provides jittered backoff sleeps used when connecting
// to external services like the NATS notification target
package backoff

import (
	"context"
	"math/rand"
	"time"
)

// Policy is a backoff policy, delays saturate at the last entry
type Policy struct {
	// Millis is the list of base delays in milliseconds
	Millis []int
}

// Default is a policy suitable for retrying network connections
var Default = Policy{
	Millis: []int{500, 1000, 2000, 5000, 10000, 20000},
}

// Duration returns the jittered delay for attempt n, jitter is within
// [0.5 * base .. 1.5 * base]
func (p Policy) Duration(n int) time.Duration {
	if len(p.Millis) == 0 {
		return 0
	}

	if n >= len(p.Millis) {
		n = len(p.Millis) - 1
	}

	return jitter(p.Millis[n])
}

// Sleep sleeps for the given duration unless the context is canceled first
func (p Policy) Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TrySleep sleeps for the jittered delay appropriate for attempt n
func (p Policy) TrySleep(ctx context.Context, n int) error {
	return p.Sleep(ctx, p.Duration(n))
}

// For calls cb with an incrementing try number until it returns nil or
// the context is canceled, sleeping between attempts per the policy
func (p Policy) For(ctx context.Context, cb func(try int) error) error {
	try := 1

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		err := cb(try)
		if err == nil {
			return nil
		}

		err = p.TrySleep(ctx, try-1)
		if err != nil {
			return err
		}

		try++
	}
}

func jitter(millis int) time.Duration {
	if millis == 0 {
		return 0
	}

	base := time.Duration(millis) * time.Millisecond

	return base/2 + time.Duration(rand.Float64()*float64(base))
}

// Copyright (c) 2017-2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

// Package backoff polls a condition with jittered delays until it holds
package backoff

import (
	"context"
	"math/rand/v2"
	"time"
)

// Policy is a backoff policy with a delay in milliseconds for each try, tries past the end use the last delay
type Policy struct {
	Millis []int
}

// RecoveryPoll checks immediately and then backs off to 5 seconds between checks
var RecoveryPoll = Policy{Millis: []int{0, 500, 1000, 1500, 2000, 2500, 3000, 3500, 4000, 5000}}

// Duration is the jittered delay after try n, counting from 0
func (p Policy) Duration(n int) time.Duration {
	if len(p.Millis) == 0 {
		return 0
	}

	n = max(0, min(n, len(p.Millis)-1))

	return time.Duration(jitter(p.Millis[n])) * time.Millisecond
}

// For calls cb until it succeeds or ctx is done, sleeping between tries, tries are numbered from 1
func (p Policy) For(ctx context.Context, cb func(try int) error) error {
	for try := 1; ; try++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		if cb(try) == nil {
			return nil
		}

		err := sleep(ctx, p.Duration(try-1))
		if err != nil {
			return err
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// jitter returns a value between 0.5 and 1.5 times millis
func jitter(millis int) int {
	if millis <= 0 {
		return 0
	}

	return millis/2 + rand.IntN(millis+1)
}

/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package throttle relays items from one channel to another with a random
// delay inserted between items, so a scan does not hit every target at a
// fixed, easily fingerprinted cadence.
package throttle

import (
	"context"
	"math/rand/v2"
	"time"
)

// Relay forwards every item read from in to the returned channel. The first
// item is forwarded immediately; after that, and after every subsequent
// item, Relay sleeps a random duration in [minDelay, maxDelay) before
// pulling the next item from in. The sleep happens between items, not
// before the one just forwarded, so a slow upstream producer never stalls
// behind a throttle delay it didn't need.
func Relay[T any](ctx context.Context, in <-chan T, minDelay, maxDelay time.Duration) <-chan T {
	out := make(chan T)

	go func() {
		defer close(out)

		for {
			select {
			case item, ok := <-in:
				if !ok {
					return
				}

				select {
				case out <- item:
				case <-ctx.Done():
					return
				}

				if !sleep(ctx, randomDelay(minDelay, maxDelay)) {
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	return out
}

func randomDelay(minDelay, maxDelay time.Duration) time.Duration {
	if maxDelay <= minDelay {
		return minDelay
	}

	span := int64(maxDelay - minDelay)

	return minDelay + time.Duration(rand.Int64N(span))
}

// sleep waits for d or ctx cancellation, reporting whether it completed the
// full sleep (false means ctx was canceled first).
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}

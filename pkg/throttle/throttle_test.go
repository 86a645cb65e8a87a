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

package throttle

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRelayForwardsFirstItemImmediately(t *testing.T) {
	in := make(chan int, 1)
	in <- 1

	out := Relay(context.Background(), in, 100*time.Millisecond, 300*time.Millisecond)

	start := time.Now()

	select {
	case v := <-out:
		assert.Equal(t, 1, v)
		assert.Less(t, time.Since(start), 50*time.Millisecond)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for first item")
	}
}

func TestRelayDelaysBetweenItems(t *testing.T) {
	in := make(chan int, 2)
	in <- 1
	in <- 2

	out := Relay(context.Background(), in, 80*time.Millisecond, 120*time.Millisecond)

	first := <-out
	start := time.Now()
	second := <-out
	elapsed := time.Since(start)

	assert.Equal(t, 1, first)
	assert.Equal(t, 2, second)
	assert.GreaterOrEqual(t, elapsed, 60*time.Millisecond, "second item arrived too soon")
	assert.Less(t, elapsed, time.Second, "second item took implausibly long")
}

func TestRelayClosesWhenInputCloses(t *testing.T) {
	in := make(chan int)
	close(in)

	out := Relay(context.Background(), in, time.Millisecond, 2*time.Millisecond)

	select {
	case _, ok := <-out:
		require.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("relay did not close output after input closed")
	}
}

func TestRelayStopsOnContextCancel(t *testing.T) {
	in := make(chan int)
	ctx, cancel := context.WithCancel(context.Background())

	out := Relay(ctx, in, time.Second, 2*time.Second)
	cancel()

	select {
	case _, ok := <-out:
		require.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("relay did not close output after context cancellation")
	}
}

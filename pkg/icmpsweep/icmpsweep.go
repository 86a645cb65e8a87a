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

// Package icmpsweep drives pkg/icmpio with pkg/reactor to ping-sweep a list
// of target instances: one echo request per instance, correlated against
// incoming replies by the echo sequence number each instance was sent
// under, with a synthesized timeout for any instance that never answers.
package icmpsweep

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/carverauto/bowbend/internal/logx"
	"github.com/carverauto/bowbend/pkg/icmpio"
	"github.com/carverauto/bowbend/pkg/models"
	"github.com/carverauto/bowbend/pkg/reactor"
	"github.com/carverauto/bowbend/pkg/target"
)

// DefaultTimeout is the resolved answer to this module's one genuine open
// question: how long to wait for an echo reply before giving up on it. The
// reactor's own garbage collector wakes every DefaultTimeout/5 to enforce
// it.
const DefaultTimeout = 10 * time.Second

// Result pairs a target instance with the outcome of pinging it.
type Result struct {
	Instance target.Instance
	Ping     models.PingResult
}

type pingContext struct {
	start time.Time
}

func (c pingContext) StartTime() time.Time { return c.start }

func (c pingContext) TimeoutResult() models.PingResult {
	return models.PingResult{Status: models.PingTimeout, TimeSent: c.start}
}

// Sweep sends one echo request per instance over conn and returns a channel
// with exactly one Result per instance, in no particular order. limiter may
// be nil to send without pacing. timeout <= 0 uses DefaultTimeout.
func Sweep(
	ctx context.Context,
	conn icmpio.Conn,
	instances []target.Instance,
	timeout time.Duration,
	limiter *rate.Limiter,
	logger logx.Logger,
) <-chan Result {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	if logger == nil {
		logger = logx.NewTestLogger()
	}

	// conn.Replies() never closes on its own (the raw socket stays open for
	// the lifetime of the scan), so the reactor cannot use "both inputs
	// closed" to know when this sweep is done. sweepCtx instead gets
	// canceled explicitly once every instance has produced a Result,
	// tearing down the reactor loop and the reply relay together.
	sweepCtx, cancel := context.WithCancel(ctx)

	contexts := make(chan reactor.IndexedContext[int, pingContext])
	replies := make(chan reactor.IndexedReply[int, models.PingResult])

	r := reactor.New[int, models.PingResult, pingContext](contexts, replies, timeout, logger)
	conclusions := r.Run(sweepCtx)

	var mu sync.Mutex

	// byIndex/sentAt are keyed by the echo sequence number assigned to each
	// instance, not by destination address: two instances resolving to the
	// same address (two hostnames pointing at one IP, for instance) would
	// otherwise collide on a shared reactor Index, and the reply meant for
	// one would delete the other's bookkeeping out from under it.
	byIndex := make(map[int]target.Instance, len(instances))
	sentAt := make(map[int]time.Time, len(instances))

	go sendAll(sweepCtx, conn, instances, limiter, contexts, &mu, byIndex, sentAt, logger)
	go relayReplies(sweepCtx, conn, replies)

	out := make(chan Result)

	go func() {
		defer cancel()
		defer close(out)

		remaining := len(instances)
		if remaining == 0 {
			return
		}

		for c := range conclusions {
			mu.Lock()
			inst, known := byIndex[c.Index]
			sent, hadSent := sentAt[c.Index]
			delete(byIndex, c.Index)
			delete(sentAt, c.Index)
			mu.Unlock()

			if !known {
				// A reactor conclusion for a sequence number we never sent
				// should not be possible; skip defensively rather than
				// publish a Result with no Instance.
				continue
			}

			ping := c.Result
			if !c.TimedOut && hadSent && !ping.TimeReplied.IsZero() {
				ping.TimeSent = sent
				ping.RTT = ping.TimeReplied.Sub(sent)
			}

			select {
			case out <- Result{Instance: inst, Ping: ping}:
			case <-ctx.Done():
				return
			}

			remaining--
			if remaining == 0 {
				return
			}
		}
	}()

	return out
}

func sendAll(
	ctx context.Context,
	conn icmpio.Conn,
	instances []target.Instance,
	limiter *rate.Limiter,
	contexts chan<- reactor.IndexedContext[int, pingContext],
	mu *sync.Mutex,
	byIndex map[int]target.Instance,
	sentAt map[int]time.Time,
	logger logx.Logger,
) {
	defer close(contexts)

	for seq, inst := range instances {
		addr := inst.Addr()

		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return
			}
		}

		now := time.Now()

		mu.Lock()
		byIndex[seq] = inst
		sentAt[seq] = now
		mu.Unlock()

		// An instance with no address is still registered, so it times out
		// and gets its Result like every other instance.
		if addr == nil {
			logger.Warn().Int("seq", seq).Msg("icmpsweep: instance has no address, echo not sent")
		} else if err := conn.SendEcho(addr, seq); err != nil {
			logger.Warn().Err(err).Str("target", addr.String()).Msg("icmpsweep: send failed")
		}

		select {
		case contexts <- reactor.IndexedContext[int, pingContext]{Index: seq, Context: pingContext{start: now}}:
		case <-ctx.Done():
			return
		}
	}
}

func relayReplies(ctx context.Context, conn icmpio.Conn, replies chan<- reactor.IndexedReply[int, models.PingResult]) {
	defer close(replies)

	for {
		select {
		case reply, ok := <-conn.Replies():
			if !ok {
				return
			}

			if reply.Source == nil {
				continue
			}

			result := models.PingResult{Status: models.PingReply, TimeReplied: reply.Received}

			select {
			case replies <- reactor.IndexedReply[int, models.PingResult]{Index: reply.Seq, Reply: result}:
			case <-ctx.Done():
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

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

// Package reactor implements the generic index-correlated request/response
// engine every async probe in bowbend is built on: a Context goes in keyed
// by an Index, a Reply comes back keyed by the same Index (in any order, on
// any schedule), and the reactor emits exactly one Conclusion per Context —
// either the matched Reply or a synthesized timeout.
//
// This is the component every probe depends on (ICMP echo correlation,
// eventually SYN correlation) and the one most worth getting exactly right:
// it must never drop a Context without a Conclusion, never emit two
// Conclusions for the same Context, and tolerate replies that arrive before
// their Context is even registered.
package reactor

import (
	"container/list"
	"context"
	"time"

	"github.com/carverauto/bowbend/internal/logx"
)

// Context is anything that can time out. StartTime anchors the garbage
// collection sweep; TimeoutResult is what gets emitted if no Reply ever
// arrives for it within the reactor's timeout window.
type Context[R any] interface {
	StartTime() time.Time
	TimeoutResult() R
}

// IndexedContext pairs a Context with the Index a matching Reply will carry.
type IndexedContext[I comparable, C any] struct {
	Index   I
	Context C
}

// IndexedReply pairs a Reply with the Index of the Context it answers.
type IndexedReply[I comparable, R any] struct {
	Index I
	Reply R
}

// Conclusion is the reactor's output: one per registered Context, carrying
// either its matched Reply or a timeout result.
type Conclusion[I comparable, R any] struct {
	Index  I
	Result R
	// TimedOut is true when Result came from Context.TimeoutResult rather
	// than a matching Reply.
	TimedOut bool
}

type waitingEntry[I comparable, C any] struct {
	index I
	ctx   C
}

// Reactor correlates IndexedContext values against IndexedReply values by
// Index. Construct one with New and drive it with Run.
type Reactor[I comparable, R any, C Context[R]] struct {
	contexts <-chan IndexedContext[I, C]
	replies  <-chan IndexedReply[I, R]
	timeout  time.Duration
	logger   logx.Logger
}

// New builds a Reactor. timeout bounds how long a Context may wait for its
// Reply before the reactor synthesizes a timeout Conclusion for it; the
// garbage-collection sweep that enforces this runs every timeout/5, so a
// Context's real wall-clock timeout lands somewhere in
// [timeout, timeout + timeout/5) while the inputs are open. Once both input
// channels are closed, every Context still waiting times out immediately.
func New[I comparable, R any, C Context[R]](
	contexts <-chan IndexedContext[I, C],
	replies <-chan IndexedReply[I, R],
	timeout time.Duration,
	logger logx.Logger,
) *Reactor[I, R, C] {
	if logger == nil {
		logger = logx.NewTestLogger()
	}

	return &Reactor[I, R, C]{contexts: contexts, replies: replies, timeout: timeout, logger: logger}
}

// Run starts the correlation loop and returns the channel Conclusions are
// published on. The channel is closed once both input channels are closed
// and every registered Context has produced a Conclusion. Run exits early,
// without draining pending Contexts, if ctx is canceled.
func (r *Reactor[I, R, C]) Run(ctx context.Context) <-chan Conclusion[I, R] {
	out := make(chan Conclusion[I, R])

	go r.loop(ctx, out)

	return out
}

func (r *Reactor[I, R, C]) loop(ctx context.Context, out chan<- Conclusion[I, R]) {
	defer close(out)

	waiting := make(map[I]*list.Element)
	order := list.New()
	outOfOrder := make(map[I]R)

	gcInterval := r.timeout / 5
	if gcInterval <= 0 {
		gcInterval = time.Millisecond
	}

	ticker := time.NewTicker(gcInterval)
	defer ticker.Stop()

	contexts := r.contexts
	replies := r.replies

	for {
		if contexts == nil && replies == nil {
			// Final pass: no Reply can arrive any more, so every Context
			// still waiting times out now rather than at its deadline.
			for elem := order.Front(); elem != nil; elem = order.Front() {
				entry := elem.Value.(waitingEntry[I, C]) //nolint:errcheck // list only ever holds waitingEntry

				order.Remove(elem)
				delete(waiting, entry.index)

				if !r.emit(ctx, out, Conclusion[I, R]{Index: entry.index, Result: entry.ctx.TimeoutResult(), TimedOut: true}) {
					return
				}
			}

			return
		}

		select {
		case <-ctx.Done():
			return

		case ic, ok := <-contexts:
			if !ok {
				contexts = nil
				continue
			}

			if result, found := outOfOrder[ic.Index]; found {
				delete(outOfOrder, ic.Index)

				if !r.emit(ctx, out, Conclusion[I, R]{Index: ic.Index, Result: result}) {
					return
				}

				continue
			}

			if old, collided := waiting[ic.Index]; collided {
				// Replacing an existing waiting entry is a programming
				// error: the caller registered two Contexts under the same
				// Index before the first was resolved. Remove the
				// superseded list element now, so the GC sweep below never
				// walks a stale node whose delete(waiting, ...) would
				// clobber the entry we're about to insert.
				r.logger.Warn().Interface("index", ic.Index).Msg("reactor: context index collision, superseding previous context")
				order.Remove(old)
			}

			elem := order.PushBack(waitingEntry[I, C]{index: ic.Index, ctx: ic.Context})
			waiting[ic.Index] = elem

		case ir, ok := <-replies:
			if !ok {
				replies = nil
				continue
			}

			if elem, found := waiting[ir.Index]; found {
				order.Remove(elem)
				delete(waiting, ir.Index)

				if !r.emit(ctx, out, Conclusion[I, R]{Index: ir.Index, Result: ir.Reply}) {
					return
				}

				continue
			}

			// No Context is waiting for this Index yet — it may arrive
			// later, or this may be a stray/duplicate reply. Either way we
			// hold onto it rather than discard it, so a Context that
			// registers moments later still gets an immediate match.
			r.logger.Warn().Interface("index", ir.Index).Msg("reactor: reply with no waiting context, holding out of order")
			outOfOrder[ir.Index] = ir.Reply

		case <-ticker.C:
			if !r.sweep(ctx, out, waiting, order) {
				return
			}
		}
	}
}

// sweep walks the waiting set in insertion order and emits a timeout
// Conclusion for every Context whose start time is at or before the cutoff.
// Insertion order does not guarantee StartTime order (a caller could hand
// the reactor a Context with an already-old StartTime), so every entry is
// checked rather than stopping at the first unexpired one.
func (r *Reactor[I, R, C]) sweep(
	ctx context.Context,
	out chan<- Conclusion[I, R],
	waiting map[I]*list.Element,
	order *list.List,
) bool {
	cutoff := time.Now().Add(-r.timeout)

	var next *list.Element

	for elem := order.Front(); elem != nil; elem = next {
		next = elem.Next()

		entry := elem.Value.(waitingEntry[I, C]) //nolint:errcheck // list only ever holds waitingEntry

		if entry.ctx.StartTime().After(cutoff) {
			continue
		}

		order.Remove(elem)
		delete(waiting, entry.index)

		concl := Conclusion[I, R]{Index: entry.index, Result: entry.ctx.TimeoutResult(), TimedOut: true}
		if !r.emit(ctx, out, concl) {
			return false
		}
	}

	return true
}

func (r *Reactor[I, R, C]) emit(ctx context.Context, out chan<- Conclusion[I, R], c Conclusion[I, R]) bool {
	select {
	case out <- c:
		return true
	case <-ctx.Done():
		return false
	}
}

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

// Package tcpscan implements the full-open TCP port scan: for each target
// instance, dial every requested port and classify it open or closed by
// whether the three-way handshake completes within the probe timeout.
//
// Connects against a single host are issued one at a time, jittered, rather
// than fanned out — a burst of simultaneous SYNs from one source to one
// destination is exactly the signature a target's rate limiter or IDS looks
// for. Different hosts are still scanned concurrently; that fan-out is the
// caller's job, coordinated through Options.Global.
package tcpscan

import (
	"context"
	"math/rand/v2"
	"net"
	"strconv"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/carverauto/bowbend/internal/logx"
	"github.com/carverauto/bowbend/pkg/models"
)

// DefaultTimeout is how long a single connect attempt gets before it counts
// as closed. Full-open scanning cares about response latency far less than
// an ICMP sweep does, since a closed port usually resets the connection
// immediately rather than needing the probe to time out at all.
const DefaultTimeout = 500 * time.Millisecond

// Options configures a single host's port scan.
type Options struct {
	Timeout time.Duration
	// ThrottleRange, if set, is a random delay slept between successive
	// connect initiations against the same host. A nil ThrottleRange scans
	// as fast as the timeout and Global budget allow.
	ThrottleRange *models.ThrottleRange
	// Global, if set, is acquired once per port probe — the shared
	// cross-stage in-flight budget the scanner owns across every host.
	Global *semaphore.Weighted
	Logger logx.Logger
}

// ScanHost dials every port in ports against addr, one connect at a time in
// a randomized order with a jittered delay between connects, and returns one
// PortReport per port in the order ports was given (not the randomized probe
// order used internally — randomizing the dial order, not the report order,
// is what avoids a predictable scan signature).
func ScanHost(ctx context.Context, addr net.IP, ports []uint16, opts Options) []models.PortReport {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}

	if opts.Logger == nil {
		opts.Logger = logx.NewTestLogger()
	}

	results := make([]models.PortReport, len(ports))
	for i, p := range ports {
		results[i] = models.PortReport{Port: p}
	}

	order := rand.Perm(len(ports))

	for i, idx := range order {
		if ctx.Err() != nil {
			return results
		}

		port := ports[idx]

		if opts.Global != nil {
			if err := opts.Global.Acquire(ctx, 1); err != nil {
				return results
			}
		}

		results[idx].Status = probe(ctx, addr, port, opts.Timeout, opts.Logger)

		if opts.Global != nil {
			opts.Global.Release(1)
		}

		if i == len(order)-1 {
			continue
		}

		if !sleepJitter(ctx, opts.ThrottleRange) {
			return results
		}
	}

	return results
}

// sleepJitter waits out a random delay in [range.Min, range.Max) before
// the next connect initiation. A nil range or ctx cancellation returns
// immediately; the bool return reports whether ctx is still live.
func sleepJitter(ctx context.Context, r *models.ThrottleRange) bool {
	if r == nil {
		return ctx.Err() == nil
	}

	delay := r.Min
	if span := r.Max - r.Min; span > 0 {
		delay += time.Duration(rand.Int64N(int64(span)))
	}

	if delay <= 0 {
		return ctx.Err() == nil
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}

func probe(ctx context.Context, addr net.IP, port uint16, timeout time.Duration, logger logx.Logger) models.PortStatus {
	probeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var dialer net.Dialer

	conn, err := dialer.DialContext(probeCtx, "tcp", net.JoinHostPort(addr.String(), strconv.Itoa(int(port))))
	if err != nil {
		logger.Debug().Str("target", addr.String()).Uint16("port", port).Err(err).Msg("tcpscan: port closed")
		return models.PortClosed
	}

	_ = conn.Close()

	return models.PortOpen
}

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

// Package scanner wires pkg/target, pkg/throttle, pkg/icmpio, pkg/icmpsweep,
// pkg/tcpscan and pkg/servicedetect together into the one entry point this
// module exposes: StartScan. It owns the shared in-flight semaphore that TCP
// connect probes and service-detection rule requests acquire against, so a
// caller's MaxInFlight setting bounds both stages together. ICMP echo
// requests do not acquire it; they are paced by a rate limiter instead.
package scanner

import (
	"context"
	"net"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/rs/zerolog"

	"github.com/carverauto/bowbend/internal/logx"
	"github.com/carverauto/bowbend/pkg/icmpio"
	"github.com/carverauto/bowbend/pkg/icmpsweep"
	"github.com/carverauto/bowbend/pkg/models"
	"github.com/carverauto/bowbend/pkg/scanid"
	"github.com/carverauto/bowbend/pkg/servicedetect"
	_ "github.com/carverauto/bowbend/pkg/servicedetect/rules" // registers the built-in rule set
	"github.com/carverauto/bowbend/pkg/target"
	"github.com/carverauto/bowbend/pkg/tcpscan"
	"github.com/carverauto/bowbend/pkg/throttle"
)

// pendingInstance carries one target instance through the pipeline stages
// that run before the final Report is assembled.
type pendingInstance struct {
	instance target.Instance
	ping     *models.PingResult // nil until the ICMP stage runs (or when Ping is disabled)
}

// StartScan expands cfg.Targets, runs every enabled stage over the
// resulting instances, and streams one Report per instance (plus one per
// target that failed to resolve) on the returned channel. The channel
// closes once every instance has produced a Report or ctx is canceled.
//
// Opening a raw ICMP socket when cfg.Ping is set can fail outright (most
// often insufficient privilege); that failure is returned directly rather
// than folded into the report stream, since it means the scan could not
// start at all.
func StartScan(ctx context.Context, cfg models.Config) (<-chan models.Report, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = logx.New(logx.DefaultConfig())
	}

	if cfg.Tracing {
		logger.SetLevel(zerolog.TraceLevel)
	}

	logger = logger.WithComponent("scanner")

	id := scanid.New()

	maxInFlight := cfg.MaxInFlight
	if maxInFlight <= 0 {
		maxInFlight = 1
	}

	sem := semaphore.NewWeighted(maxInFlight)

	resolver := net.DefaultResolver

	instances, failed := target.Expand(ctx, resolver, cfg.Targets)

	var conn icmpio.Conn

	if cfg.Ping {
		var err error

		conn, err = icmpio.Open(uint16(id[0])<<8|uint16(id[1]), logger) //nolint:gosec // folding a uuid byte pair into an ICMP identity field, not a cryptographic use
		if err != nil {
			return nil, err
		}
	}

	out := make(chan models.Report)

	go func() {
		defer close(out)

		if conn != nil {
			defer conn.Close()
		}

		for _, f := range failed {
			report := models.Report{ScanID: id, Target: f.Target, Err: models.FailedToResolveHostname(f.Err)}

			select {
			case out <- report:
			case <-ctx.Done():
				return
			}
		}

		if len(instances) == 0 {
			return
		}

		pipeline := buildPipeline(ctx, instances, cfg, conn, sem, logger)

		reports := assembleReports(ctx, id, pipeline, cfg, sem, logger)

		if cfg.RunServiceDetection {
			reports = servicedetect.Run(ctx, reports, servicedetect.Options{
				Semaphore:     sem,
				ThrottleRange: cfg.ThrottleRange,
				SNMPCommunity: cfg.SNMPCommunity,
				Logger:        logger.WithComponent("servicedetect"),
			})
		}

		for report := range reports {
			select {
			case out <- report:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}

// buildPipeline runs target throttling and the optional ICMP sweep,
// producing one pendingInstance per target instance.
func buildPipeline(
	ctx context.Context,
	instances []target.Instance,
	cfg models.Config,
	conn icmpio.Conn,
	sem *semaphore.Weighted,
	logger logx.Logger,
) <-chan pendingInstance {
	instanceCh := make(chan target.Instance)

	go func() {
		defer close(instanceCh)

		for _, inst := range instances {
			select {
			case instanceCh <- inst:
			case <-ctx.Done():
				return
			}
		}
	}()

	var throttled <-chan target.Instance = instanceCh

	if cfg.ThrottleRange != nil {
		throttled = throttle.Relay(ctx, instanceCh, cfg.ThrottleRange.Min, cfg.ThrottleRange.Max)
	}

	if !cfg.Ping || conn == nil {
		out := make(chan pendingInstance)

		go func() {
			defer close(out)

			for inst := range throttled {
				logger.Trace().Str("host", inst.Hostname).Msg("scanner: instance ready for tcp scan")

				select {
				case out <- pendingInstance{instance: inst}:
				case <-ctx.Done():
					return
				}
			}
		}()

		return out
	}

	buffered := make([]target.Instance, 0, len(instances))
	for inst := range throttled {
		buffered = append(buffered, inst)
	}

	limiter := defaultICMPRateLimiter()

	sweepResults := icmpsweep.Sweep(ctx, conn, buffered, icmpsweep.DefaultTimeout, limiter, logger.WithComponent("icmpsweep"))

	out := make(chan pendingInstance)

	go func() {
		defer close(out)

		for result := range sweepResults {
			ping := result.Ping

			select {
			case out <- pendingInstance{instance: result.Instance, ping: &ping}:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out
}

// assembleReports runs the TCP scan stage over every pending instance and
// produces the final per-instance Report, with service-detection fields
// left for a later stage to fill in.
func assembleReports(
	ctx context.Context,
	id scanid.ID,
	pending <-chan pendingInstance,
	cfg models.Config,
	sem *semaphore.Weighted,
	logger logx.Logger,
) <-chan models.Report {
	out := make(chan models.Report)

	go func() {
		defer close(out)

		g, gctx := errgroup.WithContext(ctx)

		for p := range pending {
			p := p

			g.Go(func() error {
				ports := tcpscan.ScanHost(gctx, p.instance.Addr(), cfg.Ports, tcpscan.Options{
					Global:        sem,
					ThrottleRange: cfg.ThrottleRange,
					Logger:        logger.WithComponent("tcpscan"),
				})

				instance := p.instance
				report := models.Report{
					ScanID:   id,
					Target:   instance.Origin,
					Instance: &instance,
					Contents: models.ReportContents{
						ICMP:  p.ping,
						Ports: ports,
					},
				}

				logger.Trace().Int("ports_scanned", len(ports)).Msg("scanner: assembled report")

				select {
				case out <- report:
				case <-gctx.Done():
				}

				return nil
			})
		}

		_ = g.Wait()
	}()

	return out
}

// defaultICMPRateLimiter paces echo requests gently enough that a large
// scan does not look like a flood: a generous but finite burst, matching
// the teacher's own default ICMP pacing in pkg/scan's unix ICMP listener.
func defaultICMPRateLimiter() *rate.Limiter {
	return rate.NewLimiter(rate.Limit(1000), 100)
}

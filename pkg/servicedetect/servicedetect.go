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

package servicedetect

import (
	"context"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/carverauto/bowbend/internal/logx"
	"github.com/carverauto/bowbend/pkg/models"
	"github.com/carverauto/bowbend/pkg/target"
)

// Options configures a Run call.
type Options struct {
	// Rules is the set considered for every port. Defaults to rules.All()
	// when left nil, via the pkg/servicedetect/rules package's registry —
	// callers needing a trimmed or privilege-pruned set build it themselves.
	Rules []Rule
	// Semaphore, if set, is the cross-stage in-flight budget every rule's
	// WaitForClearance call also acquires against before it probes the
	// network.
	Semaphore *semaphore.Weighted
	// ThrottleRange, if set, is a random delay every rule's
	// WaitForClearance call waits out before probing the network.
	ThrottleRange *models.ThrottleRange
	// SNMPCommunity is passed to rules.All when building the default rule
	// set; it has no effect when Rules is set explicitly.
	SNMPCommunity string
	Logger        logx.Logger
}

// Run decorates reports flowing through it with service-detection
// conclusions for every open port, then forwards them on the returned
// channel. A report with no open ports, or one already carrying an error,
// passes through untouched. Run closes its output once reports closes.
//
// Every open port on every report is analyzed concurrently: the original
// scanner this module descends from awaited one port's rule waves to
// completion before starting the next port on the same report, which
// serialized an operation advertised as concurrent. Fanning every port out
// through its own goroutine, bounded only by the shared semaphore rules
// already acquire for their network probes, removes that bottleneck
// without changing how any individual rule runs.
func Run(ctx context.Context, reports <-chan models.Report, opts Options) <-chan models.Report {
	if opts.Rules == nil {
		opts.Rules = defaultRules(opts.SNMPCommunity)
	}

	if opts.Logger == nil {
		opts.Logger = logx.NewTestLogger()
	}

	out := make(chan models.Report)

	go func() {
		defer close(out)

		var g errgroup.Group

		for report := range reports {
			report := report

			g.Go(func() error {
				decorated := decorate(ctx, report, opts)

				select {
				case out <- decorated:
				case <-ctx.Done():
				}

				return nil
			})
		}

		_ = g.Wait()
	}()

	return out
}

// defaultRuleSource is installed by pkg/servicedetect/rules.init via
// RegisterDefaultRuleSource to avoid an import cycle (rules imports this
// package to implement Rule).
var defaultRuleSource func(snmpCommunity string) []Rule

// RegisterDefaultRuleSource installs the function Run uses to obtain its
// default rule set when Options.Rules is nil. The rules package calls this
// from its own init.
func RegisterDefaultRuleSource(f func(snmpCommunity string) []Rule) {
	defaultRuleSource = f
}

func defaultRules(snmpCommunity string) []Rule {
	if defaultRuleSource == nil {
		return nil
	}

	return defaultRuleSource(snmpCommunity)
}

func decorate(ctx context.Context, report models.Report, opts Options) models.Report {
	if report.Err != nil || report.Instance == nil {
		return report
	}

	openPorts := make([]uint16, 0, len(report.Contents.Ports))

	for _, p := range report.Contents.Ports {
		if p.Status == models.PortOpen {
			openPorts = append(openPorts, p.Port)
		}
	}

	if len(openPorts) == 0 {
		return report
	}

	conclusions := make([][]models.ServiceDetectionConclusion, len(openPorts))

	g, gctx := errgroup.WithContext(ctx)

	for i, port := range openPorts {
		i, port := i, port

		g.Go(func() error {
			conclusions[i] = runPort(gctx, *report.Instance, port, opts)
			return nil
		})
	}

	_ = g.Wait()

	if report.Contents.ServiceDetections == nil {
		report.Contents.ServiceDetections = make(map[uint16][]models.ServiceDetectionConclusion, len(openPorts))
	}

	for i, port := range openPorts {
		if len(conclusions[i]) > 0 {
			report.Contents.ServiceDetections[port] = conclusions[i]
		}
	}

	return report
}

// runPort plans and executes every applicable rule against one port,
// running each dependency wave to completion before starting the next, but
// running every rule within a wave concurrently.
func runPort(ctx context.Context, instance target.Instance, port uint16, opts Options) []models.ServiceDetectionConclusion {
	portCtx := NewPortContext(opts.Semaphore, opts.ThrottleRange, instance, port)
	results := NewRuleResults()
	plan := newPortTestPlan(port, opts.Rules)

	for plan.hasActionsToRun() {
		wave := plan.rulesToRun()
		succeeded := make([]RuleID, 0, len(wave))

		g, gctx := errgroup.WithContext(ctx)
		outcomes := make([]RuleResult, len(wave))

		for i, rule := range wave {
			i, rule := i, rule

			g.Go(func() error {
				result, err := rule.Execute(gctx, portCtx, results)
				if err != nil {
					opts.Logger.Debug().Str("rule", string(rule.ID())).Err(err).Msg("servicedetect: rule failed")
					return nil //nolint:nilerr // one rule failing must not cancel the rest of the wave
				}

				outcomes[i] = result

				return nil
			})
		}

		_ = g.Wait()

		for _, result := range outcomes {
			if result == nil {
				continue
			}

			results.Insert(result)
			succeeded = append(succeeded, result.RuleID())
		}

		plan.buildNextStage(succeeded)
	}

	return results.Conclusions()
}

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

// Package servicedetect plans and runs rule-based service detection against
// an open port: a set of Rules, some depending on others' output, staged so
// each wave only runs once its dependencies have produced a result.
package servicedetect

import (
	"context"
	"fmt"
	"math/rand/v2"
	"net"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/carverauto/bowbend/pkg/models"
	"github.com/carverauto/bowbend/pkg/target"
)

// RuleID names a Rule. Built-in rules key this on their own type name; it
// only needs to be stable and unique within one rule set.
type RuleID string

// PortLikeliness is a rule's hint at how likely its service is to be
// listening on a given port. The planner does not yet use this to prune
// rules from a scan, but every rule still reports it so that capability
// lands ahead of the policy that will consume it.
type PortLikeliness int

const (
	LikelinessStandard PortLikeliness = iota
	LikelinessCommon
	LikelinessUnusual
	LikelinessRare
)

// PortHint describes a half-open port range a Rule applies to, and how
// likely it is that the rule's service listens there.
type PortHint struct {
	Start, End uint16 // half-open: [Start, End)
	Likeliness PortLikeliness
}

// NewPortHint returns a hint covering exactly one port.
func NewPortHint(port uint16, likeliness PortLikeliness) PortHint {
	return PortHint{Start: port, End: port + 1, Likeliness: likeliness}
}

// NewPortHintRange returns a hint covering the half-open range [start, end).
func NewPortHintRange(start, end uint16, likeliness PortLikeliness) PortHint {
	return PortHint{Start: start, End: end, Likeliness: likeliness}
}

// AnyPortHint covers the half-open range [0, 65535) with standard
// likeliness, so port 65535 itself is not matched. Rules that probe
// the wire directly regardless of the expected service, like the TLS probe,
// use this.
func AnyPortHint() PortHint {
	return PortHint{Start: 0, End: 65535, Likeliness: LikelinessStandard}
}

// Contains reports whether port falls within the hint's range.
func (h PortHint) Contains(port uint16) bool {
	return port >= h.Start && port < h.End
}

// RuleLoudness describes how much traffic a rule generates, and how likely
// it is to be noticed by the service it is probing. The planner does not
// filter on this yet, but every rule reports it so a future quiet-scan mode
// has the data it needs.
type RuleLoudness int

const (
	LoudnessBangingTogetherPotsAndPans RuleLoudness = iota
	LoudnessNoisy
	LoudnessStandard
	LoudnessQuiet
	LoudnessSilent
)

// PortContext is everything a Rule needs to know about the port it is
// analyzing and the throttling it must respect while probing it.
type PortContext struct {
	sem      *semaphore.Weighted
	throttle *models.ThrottleRange

	instance target.Instance
	port     uint16
}

// NewPortContext builds the context one port's rule evaluation runs under.
// sem may be nil to run unthrottled by any shared in-flight budget.
func NewPortContext(sem *semaphore.Weighted, throttle *models.ThrottleRange, instance target.Instance, port uint16) *PortContext {
	return &PortContext{sem: sem, throttle: throttle, instance: instance, port: port}
}

// WaitForClearance blocks until this rule run is clear to make a network
// request: it sleeps a random delay within the configured throttle range,
// if any, then acquires one slot of the shared in-flight semaphore, if one
// was configured. The returned release func must be called exactly once,
// when the rule is done with the network, or the acquired slot leaks for
// the rest of the scan.
func (p *PortContext) WaitForClearance(ctx context.Context) (release func(), err error) {
	if p.throttle != nil {
		span := p.throttle.Max - p.throttle.Min
		delay := p.throttle.Min
		if span > 0 {
			delay += time.Duration(rand.Int64N(int64(span)))
		}

		timer := time.NewTimer(delay)
		defer timer.Stop()

		select {
		case <-timer.C:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if p.sem == nil {
		return func() {}, nil
	}

	if err := p.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}

	return func() { p.sem.Release(1) }, nil
}

// Hostname returns the name to use in requests that need one, such as the
// HTTP Host header or the TLS SNI extension: the original hostname for a
// Hostname instance, otherwise the bare address.
func (p *PortContext) Hostname() string {
	if p.instance.Kind == target.InstanceKindHostname {
		return p.instance.Hostname
	}

	return p.instance.Addr().String()
}

// Addr returns the IP address to connect to.
func (p *PortContext) Addr() net.IP {
	return p.instance.Addr()
}

// Port returns the port under analysis.
func (p *PortContext) Port() uint16 {
	return p.port
}

// HostPort formats Addr:Port for use with net.Dial and similar.
func (p *PortContext) HostPort() string {
	return fmt.Sprintf("%s:%d", p.Addr().String(), p.port)
}

// RuleResult is the minimum every rule run must produce: its own identity,
// and an optional conclusion about what service is listening. A rule used
// only as an intermediate step for other rules returns a nil conclusion.
type RuleResult interface {
	RuleID() RuleID
	Conclusion() *models.ServiceDetectionConclusion
}

// Rule is one step of service detection: a probe, a piece of analysis over
// an earlier probe's output, or both. Rules form a DAG through Dependencies;
// the planner runs them in dependency order, one wave per stage.
type Rule interface {
	ID() RuleID
	Dependencies() []RuleID
	PortHints() []PortHint
	Loudness() RuleLoudness
	// RequiresPrivilegedAccess reports whether this rule needs a raw socket.
	// The planner does not consult it: every rule whose PortHints cover the
	// port is planned regardless of the process's privileges.
	RequiresPrivilegedAccess() bool
	// Execute runs the rule. results holds every dependency's RuleResult,
	// keyed by RuleID, and is safe to read concurrently with other rules'
	// Execute calls in the same wave.
	Execute(ctx context.Context, port *PortContext, results *RuleResults) (RuleResult, error)
}

// RuleResults collects the RuleResult of every rule that has run so far for
// one port, so dependent rules can read what they depend on.
type RuleResults struct {
	mu    sync.RWMutex
	store map[RuleID]RuleResult
}

// NewRuleResults returns an empty result store.
func NewRuleResults() *RuleResults {
	return &RuleResults{store: make(map[RuleID]RuleResult)}
}

// Insert records one rule's result. The planner calls this as each rule in
// a wave finishes; rules themselves never call it.
func (r *RuleResults) Insert(result RuleResult) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.store[result.RuleID()] = result
}

// Get returns the result recorded for id, if any. A rule calling Get for an
// ID it did not declare as a dependency may legitimately get ok == false:
// the planner only guarantees declared dependencies have run first.
func (r *RuleResults) Get(id RuleID) (RuleResult, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result, ok := r.store[id]

	return result, ok
}

// Conclusions returns every conclusion reached so far, across all rules
// that have produced one. Order is unspecified.
func (r *RuleResults) Conclusions() []models.ServiceDetectionConclusion {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.ServiceDetectionConclusion, 0, len(r.store))

	for _, result := range r.store {
		if c := result.Conclusion(); c != nil {
			out = append(out, *c)
		}
	}

	return out
}

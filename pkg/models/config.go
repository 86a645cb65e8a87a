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

package models

import (
	"time"

	"github.com/carverauto/bowbend/internal/logx"
	"github.com/carverauto/bowbend/pkg/target"
)

// defaultMaxInFlight matches the teacher scanner's unbounded-but-sane
// default: big enough that the semaphore never throttles a normal scan,
// small enough that a typo'd /0 target list cannot exhaust file descriptors.
const defaultMaxInFlight = 500_000

// ThrottleRange bounds the random inter-item delay the throttle stage
// inserts between targets. A nil *ThrottleRange on Config disables
// throttling entirely.
type ThrottleRange struct {
	Min time.Duration
	Max time.Duration
}

// Config is the fully resolved set of options a scan runs with. Build one
// with NewConfigBuilder rather than constructing it directly: StartScan
// treats the zero value's MaxInFlight of 0 as 1, which serializes every
// probe.
type Config struct {
	Targets             []target.Target
	Ports               []uint16
	RunServiceDetection bool
	Ping                bool
	Tracing             bool
	ThrottleRange       *ThrottleRange
	MaxInFlight         int64
	SNMPCommunity       string
	Logger              logx.Logger
}

// ConfigBuilder incrementally assembles a Config. Method names mirror the
// scan entry point's fluent setters (AddTarget, SetPorts, ...) so a caller
// reads as a short pipeline rather than a struct literal with a dozen
// optional fields.
type ConfigBuilder struct {
	cfg Config
}

// NewConfigBuilder returns a builder seeded with the scanner's defaults:
// port 80 only, every optional stage disabled, no throttling, and a
// max-in-flight budget generous enough not to matter for ordinary scans.
func NewConfigBuilder() *ConfigBuilder {
	return &ConfigBuilder{
		cfg: Config{
			Ports:         []uint16{80},
			MaxInFlight:   defaultMaxInFlight,
			SNMPCommunity: "public",
		},
	}
}

// AddTarget appends one target to the scan's target list.
func (b *ConfigBuilder) AddTarget(t target.Target) *ConfigBuilder {
	b.cfg.Targets = append(b.cfg.Targets, t)
	return b
}

// AddTargetString parses s with target.Parse and appends the result.
func (b *ConfigBuilder) AddTargetString(s string) *ConfigBuilder {
	return b.AddTarget(target.Parse(s))
}

// SetPorts replaces the port list outright; it does not append to it.
func (b *ConfigBuilder) SetPorts(ports []uint16) *ConfigBuilder {
	b.cfg.Ports = ports
	return b
}

// SetRunServiceDetection toggles the C7/C8 service-detection stage.
func (b *ConfigBuilder) SetRunServiceDetection(enabled bool) *ConfigBuilder {
	b.cfg.RunServiceDetection = enabled
	return b
}

// SetPing toggles the ICMP sweep stage. When disabled, every target
// instance proceeds directly to the TCP scan and its Report's ICMP field is
// nil.
func (b *ConfigBuilder) SetPing(enabled bool) *ConfigBuilder {
	b.cfg.Ping = enabled
	return b
}

// SetTracing toggles verbose per-stage tracing in the injected Logger.
func (b *ConfigBuilder) SetTracing(enabled bool) *ConfigBuilder {
	b.cfg.Tracing = enabled
	return b
}

// SetThrottle enables the C1 throttle stage with a random per-item delay in
// [min, max).
func (b *ConfigBuilder) SetThrottle(minDelay, maxDelay time.Duration) *ConfigBuilder {
	b.cfg.ThrottleRange = &ThrottleRange{Min: minDelay, Max: maxDelay}
	return b
}

// ClearThrottle disables the throttle stage.
func (b *ConfigBuilder) ClearThrottle() *ConfigBuilder {
	b.cfg.ThrottleRange = nil
	return b
}

// SetMaxInFlight bounds the number of TCP connect probes and
// service-detection rule requests outstanding at once, across all targets.
// ICMP echo requests are not counted against it.
func (b *ConfigBuilder) SetMaxInFlight(n int64) *ConfigBuilder {
	b.cfg.MaxInFlight = n
	return b
}

// SetSNMPCommunity sets the community string the SNMP sysDescr rule uses.
func (b *ConfigBuilder) SetSNMPCommunity(community string) *ConfigBuilder {
	b.cfg.SNMPCommunity = community
	return b
}

// SetLogger injects a Logger. When never called, StartScan builds one from
// logx.DefaultConfig().
func (b *ConfigBuilder) SetLogger(l logx.Logger) *ConfigBuilder {
	b.cfg.Logger = l
	return b
}

// Build returns the assembled Config.
func (b *ConfigBuilder) Build() Config {
	return b.cfg
}

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

// Package models holds the scan configuration, report, and result types
// shared across every bowbend component. A single shared package avoids the
// import cycles a tagged-union Target/Report data model would otherwise
// create between the expander, the scanners, and the orchestrator.
package models

import (
	"time"

	"github.com/carverauto/bowbend/pkg/scanid"
	"github.com/carverauto/bowbend/pkg/target"
)

// PingStatus classifies how an ICMP echo probe against a TargetInstance
// concluded.
type PingStatus int

const (
	PingTimeout PingStatus = iota
	PingReply
	PingSkipped
)

func (s PingStatus) String() string {
	switch s {
	case PingReply:
		return "reply"
	case PingSkipped:
		return "skipped"
	default:
		return "timeout"
	}
}

// PingResult is the outcome of one ICMP echo probe.
type PingResult struct {
	Status      PingStatus
	RTT         time.Duration
	TimeSent    time.Time
	TimeReplied time.Time
}

// PortStatus classifies a single TCP full-open probe.
type PortStatus int

const (
	PortClosed PortStatus = iota
	PortOpen
)

func (s PortStatus) String() string {
	if s == PortOpen {
		return "open"
	}

	return "closed"
}

// PortReport is the outcome of probing a single port on a target.
type PortReport struct {
	Port   uint16
	Status PortStatus
}

// ServiceDetectionCertainty records how confident a service-detection rule
// is in its conclusion.
type ServiceDetectionCertainty int

const (
	CertaintyLow ServiceDetectionCertainty = iota
	CertaintyMedium
	CertaintyHigh
	CertaintyAdvertised
)

// ServiceDetectionConclusion is the positive output of a service-detection
// rule: a guess (or, for CertaintyAdvertised, a direct read) of what is
// listening on a port.
type ServiceDetectionConclusion struct {
	Certainty      ServiceDetectionCertainty
	ServiceName    string
	ServiceVersion string // empty when the rule could not determine a version
}

// ReportContents is the body of a successful Report: whatever the enabled
// scan stages produced for one target instance.
type ReportContents struct {
	ICMP *PingResult

	Ports []PortReport

	// ServiceDetections is keyed by port; a port only appears here if at
	// least one rule reached a conclusion for it.
	ServiceDetections map[uint16][]ServiceDetectionConclusion
}

// Report is the unit of output streamed back to a StartScan caller: one per
// target instance the expander produced, plus one per target that failed to
// resolve before it could be expanded at all.
type Report struct {
	ScanID scanid.ID

	Target   target.Target
	Instance *target.Instance // nil when Err is set and resolution never happened

	Contents ReportContents
	Err      error
}

// Succeeded reports whether this Report carries scan results rather than a
// terminal per-target error.
func (r Report) Succeeded() bool {
	return r.Err == nil
}

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

// Package target models scan targets as supplied by a caller (bare IPs,
// CIDR networks, hostnames) and expands them into the concrete addresses a
// scan actually probes.
package target

import (
	"net"
)

// Kind tags which variant of Target a value holds.
type Kind int

const (
	KindIP Kind = iota
	KindNetwork
	KindHostname
)

// Target is a caller-supplied scan target. Exactly one of the fields
// matching Kind is populated.
type Target struct {
	Kind Kind

	IP       net.IP
	Network  *net.IPNet
	Hostname string
}

// Parse accepts a bare IP, a CIDR network, or a hostname, trying each in
// that order and falling back to Hostname when neither parses. This mirrors
// the permissive FromStr used by the scanner this module descends from: any
// string the caller provides is accepted, and ambiguity is resolved in favor
// of assuming it names a host to resolve.
func Parse(s string) Target {
	if ip := net.ParseIP(s); ip != nil {
		return Target{Kind: KindIP, IP: ip}
	}

	if _, ipnet, err := net.ParseCIDR(s); err == nil {
		return Target{Kind: KindNetwork, Network: ipnet}
	}

	return Target{Kind: KindHostname, Hostname: s}
}

func (t Target) String() string {
	switch t.Kind {
	case KindIP:
		return t.IP.String()
	case KindNetwork:
		return t.Network.String()
	case KindHostname:
		return t.Hostname
	default:
		return "<invalid target>"
	}
}

// InstanceKind tags which variant of TargetInstance a value holds.
type InstanceKind int

const (
	InstanceKindIP InstanceKind = iota
	InstanceKindNetwork
	InstanceKindHostname
)

// Instance is one concrete address produced by expanding a Target. For a
// Network target every host address keeps a pointer back to the network it
// came from, since C7's service-detection rules and reports need to report
// both the originating network and the specific address that answered.
type Instance struct {
	Kind InstanceKind

	IP          net.IP       // populated for InstanceKindIP
	Network     *net.IPNet   // populated for InstanceKindNetwork
	InstanceIP  net.IP       // the concrete address probed, for Network and Hostname instances
	Hostname    string       // populated for InstanceKindHostname
	ResolvedIP  net.IP       // alias of InstanceIP kept for readability at call sites
	Origin      Target       // the Target this instance was expanded from
}

// Addr returns the concrete address this instance should be probed at,
// regardless of which variant it is.
func (i Instance) Addr() net.IP {
	switch i.Kind {
	case InstanceKindIP:
		return i.IP
	case InstanceKindNetwork, InstanceKindHostname:
		return i.InstanceIP
	default:
		return nil
	}
}

func (i Instance) String() string {
	if a := i.Addr(); a != nil {
		return a.String()
	}

	return "<invalid instance>"
}

// FailedResolution describes a Hostname target that did not resolve, so the
// expander can hand the caller a failure Report instead of silently
// dropping the target.
type FailedResolution struct {
	Target Target
	Err    error
}

func instanceFromIP(origin Target, ip net.IP) Instance {
	return Instance{Kind: InstanceKindIP, IP: ip, Origin: origin}
}

func instanceFromNetwork(origin Target, network *net.IPNet, hostIP net.IP) Instance {
	return Instance{
		Kind:       InstanceKindNetwork,
		Network:    network,
		InstanceIP: hostIP,
		ResolvedIP: hostIP,
		Origin:     origin,
	}
}

func instanceFromHostname(origin Target, hostname string, resolved net.IP) Instance {
	return Instance{
		Kind:       InstanceKindHostname,
		Hostname:   hostname,
		InstanceIP: resolved,
		ResolvedIP: resolved,
		Origin:     origin,
	}
}

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

package target

import (
	"context"
	"math/rand/v2"
	"net"
)

// Expand turns caller-supplied Targets into the concrete Instances a scan
// will probe. IP targets produce exactly one instance. Network targets are
// expanded to every host address in the CIDR block, excluding the network
// and broadcast addresses for IPv4 (mirroring the CIDR expansion the raw
// TCP/ICMP scanners this module descends from perform before sweeping a
// subnet). Hostname targets are resolved via resolver and produce one
// instance per resolved address; a hostname that fails to resolve produces a
// FailedResolution instead of an Instance so the caller still gets a report
// for it. The final instance list is shuffled so a scan does not walk a
// subnet in a predictable, easily fingerprinted order.
func Expand(ctx context.Context, resolver *net.Resolver, targets []Target) ([]Instance, []FailedResolution) {
	if resolver == nil {
		resolver = net.DefaultResolver
	}

	var (
		instances []Instance
		failed    []FailedResolution
	)

	for _, t := range targets {
		switch t.Kind {
		case KindIP:
			instances = append(instances, instanceFromIP(t, t.IP))
		case KindNetwork:
			for _, ip := range expandCIDR(t.Network) {
				instances = append(instances, instanceFromNetwork(t, t.Network, ip))
			}
		case KindHostname:
			addrs, err := resolver.LookupIP(ctx, "ip", t.Hostname)
			if err != nil {
				failed = append(failed, FailedResolution{Target: t, Err: err})
				continue
			}

			for _, ip := range addrs {
				instances = append(instances, instanceFromHostname(t, t.Hostname, ip))
			}
		}
	}

	rand.Shuffle(len(instances), func(i, j int) {
		instances[i], instances[j] = instances[j], instances[i]
	})

	return instances, failed
}

// expandCIDR walks every host address in network. For IPv4 networks larger
// than a /31 or /32 it drops the network and broadcast addresses, since
// neither is ever a usable host.
func expandCIDR(network *net.IPNet) []net.IP {
	var out []net.IP

	ip4 := network.IP.To4()
	if ip4 == nil {
		// IPv6: walk the block as-is. There is no broadcast address concept,
		// and host counts that would make this intractable are the caller's
		// problem to avoid, not this function's to guess at.
		for ip := cloneIP(network.IP); network.Contains(ip); incIP(ip) {
			out = append(out, cloneIP(ip))
		}

		return out
	}

	ones, bits := network.Mask.Size()
	if ones >= bits-1 {
		// /31 or /32: every address is usable (RFC 3021 / single host).
		for ip := cloneIP(network.IP); network.Contains(ip); incIP(ip) {
			out = append(out, cloneIP(ip))
		}

		return out
	}

	broadcast := broadcastAddr(network)

	for ip := cloneIP(network.IP); network.Contains(ip); incIP(ip) {
		if ip.Equal(network.IP) || ip.Equal(broadcast) {
			continue
		}

		out = append(out, cloneIP(ip))
	}

	return out
}

func cloneIP(ip net.IP) net.IP {
	out := make(net.IP, len(ip))
	copy(out, ip)

	return out
}

// incIP increments an IP address in place, treating it as a big-endian
// counter (so 10.0.0.255 becomes 10.0.1.0, and so on).
func incIP(ip net.IP) {
	for i := len(ip) - 1; i >= 0; i-- {
		ip[i]++
		if ip[i] != 0 {
			break
		}
	}
}

func broadcastAddr(network *net.IPNet) net.IP {
	ip4 := network.IP.To4()
	mask := network.Mask

	broadcast := make(net.IP, len(ip4))
	for i := range ip4 {
		broadcast[i] = ip4[i] | ^mask[i]
	}

	return broadcast
}

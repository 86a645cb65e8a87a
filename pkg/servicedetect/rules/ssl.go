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

// Package rules holds the built-in service-detection rules and their
// registry.
package rules

import (
	"context"
	"crypto/tls"
	"net"

	"github.com/carverauto/bowbend/pkg/models"
	"github.com/carverauto/bowbend/pkg/servicedetect"
)

// BasicSSLProbeID identifies BasicSSLProbe for rules that depend on it.
const BasicSSLProbeID servicedetect.RuleID = "ssl.BasicSSLProbe"

// BasicSSLProbe checks whether a port completes a TLS handshake. It doesn't
// capture the negotiated cipher or protocol version, only whether TLS is
// there at all — enough for later rules to decide whether to speak HTTPS or
// HTTP.
type BasicSSLProbe struct{}

func (BasicSSLProbe) ID() servicedetect.RuleID { return BasicSSLProbeID }

func (BasicSSLProbe) Dependencies() []servicedetect.RuleID { return nil }

func (BasicSSLProbe) PortHints() []servicedetect.PortHint {
	return []servicedetect.PortHint{servicedetect.AnyPortHint()}
}

func (BasicSSLProbe) Loudness() servicedetect.RuleLoudness {
	return servicedetect.LoudnessStandard
}

func (BasicSSLProbe) RequiresPrivilegedAccess() bool { return false }

func (r BasicSSLProbe) Execute(ctx context.Context, port *servicedetect.PortContext, _ *servicedetect.RuleResults) (servicedetect.RuleResult, error) {
	release, err := port.WaitForClearance(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	var dialer net.Dialer

	conn, err := dialer.DialContext(ctx, "tcp", port.HostPort())
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	tlsConn := tls.Client(conn, &tls.Config{
		ServerName:         port.Hostname(),
		InsecureSkipVerify: true, //nolint:gosec // detecting TLS presence, not validating trust
	})
	defer tlsConn.Close()

	handshakeErr := tlsConn.HandshakeContext(ctx)

	return basicSSLProbeResult{sslEnabled: handshakeErr == nil}, nil
}

type basicSSLProbeResult struct {
	sslEnabled bool
}

func (basicSSLProbeResult) RuleID() servicedetect.RuleID { return BasicSSLProbeID }

func (basicSSLProbeResult) Conclusion() *models.ServiceDetectionConclusion { return nil }

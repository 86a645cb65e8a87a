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

package rules

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"

	"github.com/carverauto/bowbend/pkg/models"
	"github.com/carverauto/bowbend/pkg/servicedetect"
)

// BasicHTTPGetProbeID identifies BasicHTTPGetProbe for rules that depend on
// it.
const BasicHTTPGetProbeID servicedetect.RuleID = "http.BasicHTTPGetProbe"

// BasicHTTPGetProbe issues a GET / against the port, over HTTPS when
// BasicSSLProbe found TLS there and plain HTTP otherwise, and captures the
// response headers and status for later rules to examine. It reaches no
// conclusion of its own.
type BasicHTTPGetProbe struct{}

func (BasicHTTPGetProbe) ID() servicedetect.RuleID { return BasicHTTPGetProbeID }

func (BasicHTTPGetProbe) Dependencies() []servicedetect.RuleID {
	return []servicedetect.RuleID{BasicSSLProbeID}
}

func (BasicHTTPGetProbe) PortHints() []servicedetect.PortHint {
	return []servicedetect.PortHint{
		servicedetect.NewPortHint(80, servicedetect.LikelinessStandard),
		servicedetect.NewPortHint(443, servicedetect.LikelinessStandard),
		servicedetect.NewPortHint(8080, servicedetect.LikelinessCommon),
		servicedetect.NewPortHintRange(8081, 8089, servicedetect.LikelinessUnusual),
	}
}

func (BasicHTTPGetProbe) Loudness() servicedetect.RuleLoudness {
	return servicedetect.LoudnessStandard
}

func (BasicHTTPGetProbe) RequiresPrivilegedAccess() bool { return false }

func (r BasicHTTPGetProbe) Execute(ctx context.Context, port *servicedetect.PortContext, results *servicedetect.RuleResults) (servicedetect.RuleResult, error) {
	sslResult, _ := results.Get(BasicSSLProbeID)

	sslEnabled := false
	if probe, ok := sslResult.(basicSSLProbeResult); ok {
		sslEnabled = probe.sslEnabled
	}

	release, err := port.WaitForClearance(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	scheme := "http"
	if sslEnabled {
		scheme = "https"
	}

	url := fmt.Sprintf("%s://%s/", scheme, port.HostPort())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	req.Host = port.Hostname()

	client := &http.Client{
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true}, //nolint:gosec // probing, not validating trust
		},
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	headers := make(map[string]string, len(resp.Header))
	for key := range resp.Header {
		headers[key] = resp.Header.Get(key)
	}

	return basicHTTPGetProbeResult{statusCode: resp.StatusCode, headers: headers}, nil
}

type basicHTTPGetProbeResult struct {
	statusCode int
	headers    map[string]string
}

func (basicHTTPGetProbeResult) RuleID() servicedetect.RuleID { return BasicHTTPGetProbeID }

func (basicHTTPGetProbeResult) Conclusion() *models.ServiceDetectionConclusion { return nil }

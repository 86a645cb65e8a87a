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
	"strings"

	"github.com/carverauto/bowbend/pkg/models"
	"github.com/carverauto/bowbend/pkg/servicedetect"
)

// NginxDetectionID identifies NginxDetectionRule.
const NginxDetectionID servicedetect.RuleID = "http.NginxDetectionRule"

// NginxDetectionRule looks for an nginx Server banner in the headers
// BasicHTTPGetProbe captured. It makes no network requests of its own.
type NginxDetectionRule struct{}

func (NginxDetectionRule) ID() servicedetect.RuleID { return NginxDetectionID }

func (NginxDetectionRule) Dependencies() []servicedetect.RuleID {
	return []servicedetect.RuleID{BasicHTTPGetProbeID}
}

func (NginxDetectionRule) PortHints() []servicedetect.PortHint {
	return []servicedetect.PortHint{servicedetect.AnyPortHint()}
}

func (NginxDetectionRule) Loudness() servicedetect.RuleLoudness {
	return servicedetect.LoudnessSilent
}

func (NginxDetectionRule) RequiresPrivilegedAccess() bool { return false }

func (r NginxDetectionRule) Execute(_ context.Context, _ *servicedetect.PortContext, results *servicedetect.RuleResults) (servicedetect.RuleResult, error) {
	httpResult, ok := results.Get(BasicHTTPGetProbeID)
	if !ok {
		return nginxDetectionResult{}, nil
	}

	probe, ok := httpResult.(basicHTTPGetProbeResult)
	if !ok {
		return nginxDetectionResult{}, nil
	}

	server := probe.headers["Server"]

	version, ok := parseNginxServerHeader(server)
	if !ok {
		return nginxDetectionResult{}, nil
	}

	return nginxDetectionResult{
		conclusion: &models.ServiceDetectionConclusion{
			Certainty:      models.CertaintyAdvertised,
			ServiceName:    "nginx HTTP server",
			ServiceVersion: version,
		},
	}, nil
}

// parseNginxServerHeader extracts the version out of a "nginx/1.18.0
// (Ubuntu)"-shaped Server header. Deliberately simple: it only recognizes
// the common "nginx/<version>" prefix and gives up on anything else.
func parseNginxServerHeader(header string) (version string, ok bool) {
	const prefix = "nginx/"

	if !strings.HasPrefix(header, prefix) {
		return "", false
	}

	rest := header[len(prefix):]

	if end := strings.IndexByte(rest, ' '); end >= 0 {
		rest = rest[:end]
	}

	if rest == "" {
		return "", false
	}

	return rest, true
}

type nginxDetectionResult struct {
	conclusion *models.ServiceDetectionConclusion
}

func (nginxDetectionResult) RuleID() servicedetect.RuleID { return NginxDetectionID }

func (r nginxDetectionResult) Conclusion() *models.ServiceDetectionConclusion { return r.conclusion }

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
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/bowbend/pkg/models"
	"github.com/carverauto/bowbend/pkg/target"
)

// concludingRule always reaches a conclusion naming itself, independent of
// any other rule, so tests can assert Run wires a conclusion onto the right
// port without depending on the built-in rules' network probes.
type concludingRule struct {
	name string
}

func (r concludingRule) ID() RuleID                   { return RuleID(r.name) }
func (concludingRule) Dependencies() []RuleID         { return nil }
func (concludingRule) PortHints() []PortHint          { return []PortHint{AnyPortHint()} }
func (concludingRule) Loudness() RuleLoudness         { return LoudnessSilent }
func (concludingRule) RequiresPrivilegedAccess() bool { return false }

func (r concludingRule) Execute(context.Context, *PortContext, *RuleResults) (RuleResult, error) {
	return concludingResult{name: r.name}, nil
}

type concludingResult struct {
	name string
}

func (r concludingResult) RuleID() RuleID { return RuleID(r.name) }

func (r concludingResult) Conclusion() *models.ServiceDetectionConclusion {
	return &models.ServiceDetectionConclusion{ServiceName: r.name, Certainty: models.CertaintyHigh}
}

func TestRunSkipsReportsWithNoOpenPorts(t *testing.T) {
	instance := target.Instance{Kind: target.InstanceKindIP, IP: net.ParseIP("192.0.2.1")}

	reports := make(chan models.Report, 1)
	reports <- models.Report{
		Instance: &instance,
		Contents: models.ReportContents{Ports: []models.PortReport{{Port: 80, Status: models.PortClosed}}},
	}
	close(reports)

	out := Run(context.Background(), reports, Options{Rules: []Rule{concludingRule{name: "x"}}})

	select {
	case r := <-out:
		assert.Nil(t, r.Contents.ServiceDetections)
	case <-time.After(time.Second):
		t.Fatal("Run did not produce a report")
	}
}

func TestRunDecoratesOpenPorts(t *testing.T) {
	instance := target.Instance{Kind: target.InstanceKindIP, IP: net.ParseIP("192.0.2.1")}

	reports := make(chan models.Report, 1)
	reports <- models.Report{
		Instance: &instance,
		Contents: models.ReportContents{Ports: []models.PortReport{
			{Port: 80, Status: models.PortOpen},
			{Port: 81, Status: models.PortClosed},
		}},
	}
	close(reports)

	out := Run(context.Background(), reports, Options{Rules: []Rule{concludingRule{name: "x"}}})

	select {
	case r := <-out:
		require.Contains(t, r.Contents.ServiceDetections, uint16(80))
		assert.Equal(t, "x", r.Contents.ServiceDetections[80][0].ServiceName)
		assert.NotContains(t, r.Contents.ServiceDetections, uint16(81))
	case <-time.After(time.Second):
		t.Fatal("Run did not produce a report")
	}
}

func TestRunPassesThroughFailedReports(t *testing.T) {
	reports := make(chan models.Report, 1)
	reports <- models.Report{Err: assert.AnError}
	close(reports)

	out := Run(context.Background(), reports, Options{Rules: []Rule{concludingRule{name: "x"}}})

	r, ok := <-out
	require.True(t, ok)
	assert.Equal(t, assert.AnError, r.Err)
}

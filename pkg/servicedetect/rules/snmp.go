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
	"time"

	"github.com/gosnmp/gosnmp"

	"github.com/carverauto/bowbend/pkg/models"
	"github.com/carverauto/bowbend/pkg/servicedetect"
)

const oidSysDescr = ".1.3.6.1.2.1.1.1.0"

// SNMPSysDescrID identifies SNMPSysDescrRule.
const SNMPSysDescrID servicedetect.RuleID = "snmp.SNMPSysDescrRule"

// SNMPSysDescrRule polls sysDescr.0 over SNMPv2c when port 161 is open. A
// successful response almost always names the vendor and OS outright, so a
// hit is reported at CertaintyAdvertised the same as a banner grab.
//
// This rule requires no raw socket; gosnmp speaks SNMP over a plain UDP
// DialContext, so it runs unprivileged.
type SNMPSysDescrRule struct {
	Community string
	Timeout   time.Duration
}

// NewSNMPSysDescrRule builds the rule with the community string a scan was
// configured with. An empty community falls back to "public".
func NewSNMPSysDescrRule(community string) SNMPSysDescrRule {
	if community == "" {
		community = "public"
	}

	return SNMPSysDescrRule{Community: community, Timeout: 2 * time.Second}
}

func (SNMPSysDescrRule) ID() servicedetect.RuleID { return SNMPSysDescrID }

func (SNMPSysDescrRule) Dependencies() []servicedetect.RuleID { return nil }

func (SNMPSysDescrRule) PortHints() []servicedetect.PortHint {
	return []servicedetect.PortHint{servicedetect.NewPortHint(161, servicedetect.LikelinessStandard)}
}

func (SNMPSysDescrRule) Loudness() servicedetect.RuleLoudness {
	return servicedetect.LoudnessStandard
}

func (SNMPSysDescrRule) RequiresPrivilegedAccess() bool { return false }

func (r SNMPSysDescrRule) Execute(ctx context.Context, port *servicedetect.PortContext, _ *servicedetect.RuleResults) (servicedetect.RuleResult, error) {
	release, err := port.WaitForClearance(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	timeout := r.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}

	client := &gosnmp.GoSNMP{
		Target:             port.Addr().String(),
		Port:               port.Port(),
		Community:          r.Community,
		Version:            gosnmp.Version2c,
		Timeout:            timeout,
		Retries:            1,
		MaxOids:            gosnmp.MaxOids,
		ExponentialTimeout: true,
	}

	if err := client.Connect(); err != nil {
		return nil, err
	}
	defer client.Conn.Close()

	resp, err := client.Get([]string{oidSysDescr})
	if err != nil {
		return nil, err
	}

	if len(resp.Variables) == 0 {
		return snmpSysDescrResult{}, nil
	}

	descr, ok := resp.Variables[0].Value.([]byte)
	if !ok || len(descr) == 0 {
		return snmpSysDescrResult{}, nil
	}

	return snmpSysDescrResult{
		conclusion: &models.ServiceDetectionConclusion{
			Certainty:   models.CertaintyAdvertised,
			ServiceName: string(descr),
		},
	}, nil
}

type snmpSysDescrResult struct {
	conclusion *models.ServiceDetectionConclusion
}

func (snmpSysDescrResult) RuleID() servicedetect.RuleID { return SNMPSysDescrID }

func (r snmpSysDescrResult) Conclusion() *models.ServiceDetectionConclusion { return r.conclusion }

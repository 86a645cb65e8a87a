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

import "github.com/carverauto/bowbend/pkg/servicedetect"

func init() {
	servicedetect.RegisterDefaultRuleSource(All)
}

// All returns one instance of every built-in rule, ready to hand to
// servicedetect.Options.Rules. snmpCommunity configures SNMPSysDescrRule;
// pass "" to use its "public" default.
func All(snmpCommunity string) []servicedetect.Rule {
	return []servicedetect.Rule{
		BasicSSLProbe{},
		BasicHTTPGetProbe{},
		NginxDetectionRule{},
		NewSNMPSysDescrRule(snmpCommunity),
	}
}

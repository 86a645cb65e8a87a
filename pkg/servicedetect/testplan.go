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

// portTestPlan tracks which rules are ready to run against one port, which
// are still waiting on a dependency, and which have already run
// successfully. Rules not applicable to the port (by PortHints) are dropped
// up front and never considered again.
type portTestPlan struct {
	toRun            []Rule
	alreadySucceeded map[RuleID]bool
	// blocked is keyed by the first unmet dependency; when that dependency
	// succeeds every rule filed under it is re-checked.
	blocked map[RuleID][]Rule
}

func newPortTestPlan(port uint16, rules []Rule) *portTestPlan {
	plan := &portTestPlan{
		alreadySucceeded: make(map[RuleID]bool),
		blocked:          make(map[RuleID][]Rule),
	}

	for _, rule := range rules {
		if !ruleAppliesToPort(rule, port) {
			continue
		}

		deps := rule.Dependencies()
		if len(deps) == 0 {
			plan.toRun = append(plan.toRun, rule)
			continue
		}

		first := deps[0]
		plan.blocked[first] = append(plan.blocked[first], rule)
	}

	return plan
}

func ruleAppliesToPort(rule Rule, port uint16) bool {
	for _, hint := range rule.PortHints() {
		if hint.Contains(port) {
			return true
		}
	}

	return false
}

// hasActionsToRun reports whether there is another wave to execute.
func (p *portTestPlan) hasActionsToRun() bool {
	return len(p.toRun) > 0
}

// rulesToRun returns this wave's rules. Valid until the next call to
// buildNextStage.
func (p *portTestPlan) rulesToRun() []Rule {
	return p.toRun
}

// buildNextStage records succeeded as done and recomputes which blocked
// rules are now unblocked, becoming the next wave.
func (p *portTestPlan) buildNextStage(succeeded []RuleID) {
	p.toRun = nil

	var candidates []Rule

	for _, id := range succeeded {
		if rules, ok := p.blocked[id]; ok {
			candidates = append(candidates, rules...)
			delete(p.blocked, id)
		}

		p.alreadySucceeded[id] = true
	}

	for _, rule := range candidates {
		var firstUnmet RuleID

		unmet := false

		for _, dep := range rule.Dependencies() {
			if !p.alreadySucceeded[dep] {
				firstUnmet = dep
				unmet = true
				break
			}
		}

		if unmet {
			p.blocked[firstUnmet] = append(p.blocked[firstUnmet], rule)
			continue
		}

		p.toRun = append(p.toRun, rule)
	}
}

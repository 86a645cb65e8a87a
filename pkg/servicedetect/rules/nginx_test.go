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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/bowbend/pkg/servicedetect"
)

func TestParseNginxServerHeader(t *testing.T) {
	version, ok := parseNginxServerHeader("nginx/1.18.0 (Ubuntu)")
	require.True(t, ok)
	assert.Equal(t, "1.18.0", version)

	_, ok = parseNginxServerHeader("apache")
	assert.False(t, ok)

	_, ok = parseNginxServerHeader("")
	assert.False(t, ok)
}

func TestNginxDetectionRuleNoConclusionWithoutHTTPResult(t *testing.T) {
	results := servicedetect.NewRuleResults()

	rule := NginxDetectionRule{}
	result, err := rule.Execute(context.Background(), nil, results)
	require.NoError(t, err)
	assert.Nil(t, result.Conclusion())
}

func TestNginxDetectionRuleConcludesFromServerHeader(t *testing.T) {
	results := servicedetect.NewRuleResults()
	results.Insert(basicHTTPGetProbeResult{
		statusCode: 200,
		headers:    map[string]string{"Server": "nginx/1.24.0"},
	})

	rule := NginxDetectionRule{}
	result, err := rule.Execute(context.Background(), nil, results)
	require.NoError(t, err)
	require.NotNil(t, result.Conclusion())
	assert.Equal(t, "nginx HTTP server", result.Conclusion().ServiceName)
	assert.Equal(t, "1.24.0", result.Conclusion().ServiceVersion)
}

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
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/bowbend/pkg/servicedetect"
)

func TestBasicHTTPGetProbeCapturesHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Server", "nginx/1.24.0")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	ln := srv.Listener

	results := servicedetect.NewRuleResults()

	rule := BasicHTTPGetProbe{}
	result, err := rule.Execute(context.Background(), portContextFor(ln), results)
	require.NoError(t, err)

	probe, ok := result.(basicHTTPGetProbeResult)
	require.True(t, ok)
	assert.Equal(t, http.StatusOK, probe.statusCode)
	assert.Equal(t, "nginx/1.24.0", probe.headers["Server"])
}

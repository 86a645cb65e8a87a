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

package tcpscan

import (
	"context"
	"net"

	"github.com/carverauto/bowbend/pkg/models"
)

// SYNOptions configures a SYN (half-open) scan. It exists so the call shape
// already matches what a working implementation would need; none of these
// fields do anything yet.
type SYNOptions struct {
	Interface string
	RateLimit int
}

// ScanHostSYN is a placeholder for a future half-open TCP scanner. Building
// one requires a raw socket, OS-level RST suppression, and (on Linux) an
// AF_PACKET ring buffer to read replies fast enough not to drop them under
// load — none of which this module builds out. Every call fails with
// models.ErrNotImplemented so a caller can detect the gap rather than
// silently getting full-open-scan-shaped results back from a different
// code path.
func ScanHostSYN(_ context.Context, _ net.IP, _ []uint16, _ SYNOptions) ([]models.PortReport, error) {
	return nil, models.ErrNotImplemented
}

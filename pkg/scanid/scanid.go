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

// Package scanid assigns a correlation identifier to a single scan run so that
// log lines and reports produced by independent goroutines can be tied back
// together.
package scanid

import "github.com/google/uuid"

// ID uniquely identifies one StartScan invocation.
type ID uuid.UUID

// New generates a fresh scan ID.
func New() ID {
	return ID(uuid.New())
}

func (i ID) String() string {
	return uuid.UUID(i).String()
}

// IsZero reports whether the ID was never assigned.
func (i ID) IsZero() bool {
	return uuid.UUID(i) == uuid.Nil
}

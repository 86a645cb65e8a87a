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

package models

import "errors"

// ErrInsufficientPermission is returned when opening a raw ICMP socket fails
// because the process lacks CAP_NET_RAW (or is not running as root/Administrator).
var ErrInsufficientPermission = errors.New("insufficient permission to open raw socket")

// ErrNotImplemented is returned by scan strategies that are part of the
// reactor's contract but have no working implementation yet, such as the SYN
// scanner.
var ErrNotImplemented = errors.New("not implemented")

// ScanError wraps a hard failure encountered while resolving or probing a
// single target. It is carried in Report.Err rather than aborting the whole
// scan, matching the per-target soft-failure model.
type ScanError struct {
	// Op names the stage that failed: "resolve" or "io".
	Op  string
	Err error
}

func (e *ScanError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *ScanError) Unwrap() error {
	return e.Err
}

// FailedToResolveHostname wraps a DNS resolution failure for a Target.
func FailedToResolveHostname(cause error) error {
	return &ScanError{Op: "resolve", Err: cause}
}

// IoError wraps a soft, per-target I/O failure (a dial error, a raw socket
// write failure, and similar). It never aborts the scan.
func IoError(cause error) error {
	return &ScanError{Op: "io", Err: cause}
}

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

//go:generate mockgen -destination=mock_icmpio.go -package=icmpio github.com/carverauto/bowbend/pkg/icmpio Conn

// Package icmpio owns the raw-socket ICMP echo wire codec: opening the
// sockets, encoding echo requests, and decoding echo replies. It knows
// nothing about targets, timeouts, or correlation — pkg/icmpsweep builds
// that on top of the Conn interface this package exposes.
package icmpio

import (
	"net"
	"time"
)

// Reply is one decoded ICMP echo reply.
type Reply struct {
	Source   net.IP
	ID       uint16
	Seq      int
	Received time.Time
}

// Conn sends ICMP echo requests and surfaces decoded echo replies on a
// channel. Implementations filter replies to their own identifier: a reply
// carrying any other ID belongs to some other process's ping traffic on the
// same host and is invisible to a Conn, never published on Replies.
type Conn interface {
	// SendEcho writes one ICMP echo request to dst with the given sequence
	// number, using the identifier the Conn was opened with.
	SendEcho(dst net.IP, seq int) error

	// Replies returns the channel decoded, identifier-matched echo replies
	// are published on. The channel is never closed; stop reading from it
	// once Close has been called.
	Replies() <-chan Reply

	Close() error
}

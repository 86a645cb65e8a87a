//go:build linux

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

package icmpio

import (
	"golang.org/x/net/icmp"
	"golang.org/x/sys/unix"
)

// rcvBufBytes widens the kernel receive buffer on the raw ICMP sockets this
// package opens. A large sweep can return thousands of echo replies in a
// short burst; the kernel's default SO_RCVBUF is sized for interactive
// ping use and starts dropping datagrams well before this package's read
// loop can drain them under that kind of load.
const rcvBufBytes = 4 << 20

func init() {
	tuneSocketBuffers = linuxTuneSocketBuffers
}

// linuxTuneSocketBuffers raises SO_RCVBUF on both raw sockets. Failure is
// not fatal: the sockets still work at the kernel default size, just with
// a higher chance of dropped replies under heavy load.
func linuxTuneSocketBuffers(v4, v6 *icmp.PacketConn) {
	if raw, err := v4.IPv4PacketConn().SyscallConn(); err == nil {
		_ = raw.Control(func(fd uintptr) {
			_ = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_RCVBUF, rcvBufBytes)
		})
	}

	if raw, err := v6.IPv6PacketConn().SyscallConn(); err == nil {
		_ = raw.Control(func(fd uintptr) {
			_ = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_RCVBUF, rcvBufBytes)
		})
	}
}

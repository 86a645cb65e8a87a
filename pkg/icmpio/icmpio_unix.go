//go:build !windows

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
	"net"
	"os"
	"sync"
	"time"

	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"
	"golang.org/x/net/ipv6"

	"github.com/carverauto/bowbend/internal/logx"
	"github.com/carverauto/bowbend/pkg/models"
)

const (
	protocolICMP   = 1
	protocolICMPv6 = 58
	readDeadline   = time.Second
	repliesBuffer  = 256
)

// echoPayload matches the fixed 4-byte payload the scanner this package
// descends from sends with every echo request; its contents carry no
// meaning, it just pads the packet to a conventional ping size.
var echoPayload = []byte{1, 2, 3, 4}

// tuneSocketBuffers is overridden on linux to widen SO_RCVBUF on the raw
// sockets Open creates; it is a no-op on other unix variants.
var tuneSocketBuffers = func(v4, v6 *icmp.PacketConn) {}

type rawConn struct {
	v4         *icmp.PacketConn
	v6         *icmp.PacketConn
	identifier uint16
	logger     logx.Logger

	replies   chan Reply
	done      chan struct{}
	closeOnce sync.Once
}

// Open opens raw ICMPv4 and ICMPv6 sockets bound to the wildcard address.
// It requires CAP_NET_RAW (or root); a permission failure is reported as
// models.ErrInsufficientPermission rather than the raw syscall error, so
// callers can branch on it without knowing this package uses raw sockets.
func Open(identifier uint16, logger logx.Logger) (Conn, error) {
	if logger == nil {
		logger = logx.NewTestLogger()
	}

	v4conn, err := icmp.ListenPacket("ip4:icmp", "0.0.0.0")
	if err != nil {
		return nil, permissionErr(err)
	}

	v6conn, err := icmp.ListenPacket("ip6:ipv6-icmp", "::")
	if err != nil {
		_ = v4conn.Close()
		return nil, permissionErr(err)
	}

	tuneSocketBuffers(v4conn, v6conn)

	c := &rawConn{
		v4:         v4conn,
		v6:         v6conn,
		identifier: identifier,
		logger:     logger,
		replies:    make(chan Reply, repliesBuffer),
		done:       make(chan struct{}),
	}

	go c.listen(v4conn, protocolICMP)
	go c.listen(v6conn, protocolICMPv6)

	return c, nil
}

func permissionErr(err error) error {
	if os.IsPermission(err) {
		return models.ErrInsufficientPermission
	}

	return models.IoError(err)
}

func (c *rawConn) listen(conn *icmp.PacketConn, proto int) {
	buf := make([]byte, 1500)

	for {
		select {
		case <-c.done:
			return
		default:
		}

		_ = conn.SetReadDeadline(time.Now().Add(readDeadline))

		n, peer, err := conn.ReadFrom(buf)
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}

			select {
			case <-c.done:
				return
			default:
			}

			c.logger.Warn().Err(err).Msg("icmpio: read failed")

			continue
		}

		msg, err := icmp.ParseMessage(proto, buf[:n])
		if err != nil {
			continue
		}

		echo, ok := msg.Body.(*icmp.Echo)
		if !ok {
			continue
		}

		// Identity mismatch: this echo reply belongs to some other
		// identifier (another process pinging the same host, or a stray
		// packet). Drop it silently rather than surfacing it — whatever
		// Context is actually waiting for it keeps waiting.
		if uint16(echo.ID) != c.identifier { //nolint:gosec // ID is always in range [0,65535]
			continue
		}

		var source net.IP
		if ipAddr, ok := peer.(*net.IPAddr); ok {
			source = ipAddr.IP
		}

		select {
		case c.replies <- Reply{Source: source, ID: uint16(echo.ID), Seq: echo.Seq, Received: time.Now()}: //nolint:gosec
		case <-c.done:
			return
		}
	}
}

func (c *rawConn) SendEcho(dst net.IP, seq int) error {
	body := &icmp.Echo{ID: int(c.identifier), Seq: seq, Data: echoPayload}

	var (
		msgType icmp.Type
		conn    *icmp.PacketConn
	)

	if dst.To4() != nil {
		msgType, conn = ipv4.ICMPTypeEcho, c.v4
	} else {
		msgType, conn = ipv6.ICMPTypeEchoRequest, c.v6
	}

	wb, err := (&icmp.Message{Type: msgType, Code: 0, Body: body}).Marshal(nil)
	if err != nil {
		return models.IoError(err)
	}

	if _, err := conn.WriteTo(wb, &net.IPAddr{IP: dst}); err != nil {
		return models.IoError(err)
	}

	return nil
}

func (c *rawConn) Replies() <-chan Reply {
	return c.replies
}

func (c *rawConn) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
	})

	errV4 := c.v4.Close()
	errV6 := c.v6.Close()

	if errV4 != nil {
		return errV4
	}

	return errV6
}

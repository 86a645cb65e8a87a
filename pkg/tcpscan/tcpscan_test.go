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
	"errors"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/bowbend/pkg/models"
)

func TestScanHostClassifiesOpenAndClosed(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	defer ln.Close()

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}

			_ = conn.Close()
		}
	}()

	openPort := ln.Addr().(*net.TCPAddr).Port

	// Bind and immediately release a second port so the OS is unlikely to
	// have anything else listening on it for the duration of the test.
	closedLn, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	closedPort := closedLn.Addr().(*net.TCPAddr).Port
	require.NoError(t, closedLn.Close())

	ports := []uint16{uint16(openPort), uint16(closedPort)}

	results := ScanHost(context.Background(), net.ParseIP("127.0.0.1"), ports, Options{Timeout: 500 * time.Millisecond})

	require.Len(t, results, 2)

	byPort := map[uint16]models.PortStatus{}
	for _, r := range results {
		byPort[r.Port] = r.Status
	}

	assert.Equal(t, models.PortOpen, byPort[uint16(openPort)], "port %d should be open", openPort)
	assert.Equal(t, models.PortClosed, byPort[uint16(closedPort)], "port %d should be closed", closedPort)
}

func TestScanHostEmptyPorts(t *testing.T) {
	results := ScanHost(context.Background(), net.ParseIP("127.0.0.1"), nil, Options{})
	assert.Empty(t, results)
}

func TestScanHostRespectsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ports := make([]uint16, 10)
	for i := range ports {
		ports[i] = uint16(20000 + i)
	}

	results := ScanHost(ctx, net.ParseIP("127.0.0.1"), ports, Options{Timeout: 50 * time.Millisecond})
	require.Len(t, results, len(ports))
}

// TestScanHostConnectsSequentially asserts that connects against one host
// never overlap: each listener holds its accepted connection open briefly
// and records whether any other listener was mid-accept at the same time.
func TestScanHostConnectsSequentially(t *testing.T) {
	const numPorts = 6

	var inFlight atomic.Int32

	var sawOverlap atomic.Bool

	ports := make([]uint16, numPorts)

	for i := 0; i < numPorts; i++ {
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		require.NoError(t, err)

		defer ln.Close()

		ports[i] = uint16(ln.Addr().(*net.TCPAddr).Port)

		go func(ln net.Listener) {
			for {
				conn, err := ln.Accept()
				if err != nil {
					return
				}

				if inFlight.Add(1) > 1 {
					sawOverlap.Store(true)
				}

				time.Sleep(20 * time.Millisecond)

				inFlight.Add(-1)
				_ = conn.Close()
			}
		}(ln)
	}

	results := ScanHost(context.Background(), net.ParseIP("127.0.0.1"), ports, Options{Timeout: time.Second})

	require.Len(t, results, numPorts)
	assert.False(t, sawOverlap.Load(), "tcpscan: connects against a single host overlapped, expected sequential dialing")
}

// TestScanHostJittersBetweenConnects asserts ThrottleRange introduces a
// measurable delay between successive connect initiations.
func TestScanHostJittersBetweenConnects(t *testing.T) {
	ports := []uint16{20100, 20101, 20102}

	start := time.Now()

	results := ScanHost(context.Background(), net.ParseIP("127.0.0.1"), ports, Options{
		Timeout:       50 * time.Millisecond,
		ThrottleRange: &models.ThrottleRange{Min: 30 * time.Millisecond, Max: 40 * time.Millisecond},
	})

	elapsed := time.Since(start)

	require.Len(t, results, len(ports))
	assert.GreaterOrEqual(t, elapsed, 60*time.Millisecond, "expected jitter delay between the 3 connects")
}

func TestScanHostSYNNotImplemented(t *testing.T) {
	_, err := ScanHostSYN(context.Background(), net.ParseIP("127.0.0.1"), []uint16{80}, SYNOptions{})
	assert.True(t, errors.Is(err, models.ErrNotImplemented))
}

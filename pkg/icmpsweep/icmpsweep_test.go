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

package icmpsweep

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/bowbend/pkg/icmpio"
	"github.com/carverauto/bowbend/pkg/models"
	"github.com/carverauto/bowbend/pkg/target"
)

// fakeConn is a hand-rolled icmpio.Conn for tests that need to script which
// destinations get a reply, rather than asserting on mock call expectations.
type fakeConn struct {
	mu      sync.Mutex
	sent    []net.IP
	replies chan icmpio.Reply
	// noReply marks destinations that should never get a reply, so the
	// reactor times them out.
	noReply map[string]bool
}

func newFakeConn(noReply ...string) *fakeConn {
	skip := make(map[string]bool, len(noReply))
	for _, s := range noReply {
		skip[s] = true
	}

	return &fakeConn{replies: make(chan icmpio.Reply, 16), noReply: skip}
}

func (f *fakeConn) SendEcho(dst net.IP, seq int) error {
	f.mu.Lock()
	f.sent = append(f.sent, dst)
	skip := f.noReply[dst.String()]
	f.mu.Unlock()

	if skip {
		return nil
	}

	go func() {
		time.Sleep(5 * time.Millisecond)
		f.replies <- icmpio.Reply{Source: dst, ID: 1, Seq: seq, Received: time.Now()}
	}()

	return nil
}

func (f *fakeConn) Replies() <-chan icmpio.Reply { return f.replies }
func (f *fakeConn) Close() error                 { return nil }

func TestSweepAllReply(t *testing.T) {
	conn := newFakeConn()

	instances := []target.Instance{
		{Kind: target.InstanceKindIP, IP: net.ParseIP("192.0.2.1")},
		{Kind: target.InstanceKindIP, IP: net.ParseIP("192.0.2.2")},
		{Kind: target.InstanceKindIP, IP: net.ParseIP("192.0.2.3")},
	}

	out := Sweep(context.Background(), conn, instances, time.Second, nil, nil)

	got := map[string]models.PingResult{}

	for r := range out {
		got[r.Instance.Addr().String()] = r.Ping
	}

	require.Len(t, got, 3)

	for _, inst := range instances {
		r, ok := got[inst.Addr().String()]
		require.True(t, ok, "missing result for %s", inst.Addr())
		assert.Equal(t, models.PingReply, r.Status)
		assert.Greater(t, r.RTT, time.Duration(0))
	}
}

func TestSweepTimeout(t *testing.T) {
	conn := newFakeConn("192.0.2.9")

	instances := []target.Instance{
		{Kind: target.InstanceKindIP, IP: net.ParseIP("192.0.2.9")},
	}

	out := Sweep(context.Background(), conn, instances, 100*time.Millisecond, nil, nil)

	select {
	case r, ok := <-out:
		require.True(t, ok)
		assert.Equal(t, models.PingTimeout, r.Ping.Status)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for sweep result")
	}

	_, open := <-out
	assert.False(t, open)
}

// TestSweepDuplicateAddressInstances covers two instances that resolve to
// the same address — two hostnames pointing at one IP is a routine case.
// Correlating by address alone would collide both instances onto the same
// reactor index; the single real reply would clear one instance's
// bookkeeping and leave the other's `remaining` count never reaching zero,
// hanging the sweep forever. Keying by sequence number keeps them distinct.
func TestSweepDuplicateAddressInstances(t *testing.T) {
	conn := newFakeConn()

	shared := net.ParseIP("192.0.2.5")

	instances := []target.Instance{
		{Kind: target.InstanceKindHostname, Hostname: "a.example.com", InstanceIP: shared},
		{Kind: target.InstanceKindHostname, Hostname: "b.example.com", InstanceIP: shared},
	}

	out := Sweep(context.Background(), conn, instances, time.Second, nil, nil)

	got := 0

	for range out {
		got++
	}

	assert.Equal(t, 2, got, "both instances sharing an address must each produce a Result")
}

func TestSweepEmptyInstances(t *testing.T) {
	conn := newFakeConn()

	out := Sweep(context.Background(), conn, nil, time.Second, nil, nil)

	_, open := <-out
	assert.False(t, open, "sweep of zero instances should close immediately")
}

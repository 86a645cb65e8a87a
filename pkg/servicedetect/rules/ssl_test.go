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
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/bowbend/pkg/servicedetect"
	"github.com/carverauto/bowbend/pkg/target"
)

func selfSignedTLSConfig(t *testing.T) *tls.Config {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	template := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "127.0.0.1"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		IPAddresses:  []net.IP{net.ParseIP("127.0.0.1")},
	}

	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	require.NoError(t, err)

	cert := tls.Certificate{
		Certificate: [][]byte{der},
		PrivateKey:  key,
	}

	return &tls.Config{Certificates: []tls.Certificate{cert}}
}

func portContextFor(ln net.Listener) *servicedetect.PortContext {
	addr := ln.Addr().(*net.TCPAddr)
	instance := target.Instance{Kind: target.InstanceKindIP, IP: addr.IP}

	return servicedetect.NewPortContext(nil, nil, instance, uint16(addr.Port))
}

func TestBasicSSLProbeDetectsTLS(t *testing.T) {
	ln, err := tls.Listen("tcp", "127.0.0.1:0", selfSignedTLSConfig(t))
	require.NoError(t, err)
	defer ln.Close()

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}

			// A tls.Conn does not handshake until asked to; closing it
			// straight away would look like a plain TCP server.
			if tc, ok := conn.(*tls.Conn); ok {
				_ = tc.Handshake()
			}

			_ = conn.Close()
		}
	}()

	rule := BasicSSLProbe{}
	result, err := rule.Execute(context.Background(), portContextFor(ln), nil)
	require.NoError(t, err)

	probe, ok := result.(basicSSLProbeResult)
	require.True(t, ok)
	assert.True(t, probe.sslEnabled)
}

func TestBasicSSLProbeNoTLS(t *testing.T) {
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

	rule := BasicSSLProbe{}
	result, err := rule.Execute(context.Background(), portContextFor(ln), nil)
	require.NoError(t, err)

	probe, ok := result.(basicSSLProbeResult)
	require.True(t, ok)
	assert.False(t, probe.sslEnabled)
}

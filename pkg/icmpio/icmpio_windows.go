//go:build windows

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
	"github.com/carverauto/bowbend/internal/logx"
	"github.com/carverauto/bowbend/pkg/models"
)

// Open is not implemented on Windows: opening a raw ICMPv4/ICMPv6 socket
// there requires IcmpSendEcho2Ex or a WinSock raw socket with administrator
// privileges and a different wire path than golang.org/x/net/icmp's
// unix-oriented raw socket support. Callers see this the same way they'd
// see any other missing privilege, by the same sentinel error the unix
// build returns when CAP_NET_RAW is missing.
func Open(_ uint16, _ logx.Logger) (Conn, error) {
	return nil, models.ErrInsufficientPermission
}

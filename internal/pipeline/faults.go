// Copyright 2025 Esteban Alvarez. All Rights Reserved.
//
// Created: October 2025
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package pipeline

import (
	"fmt"
	"net"
	"net/http"
)

// Fault kinds understood by WriteFault. stub.FaultConfig.Kind uses these
// names directly; Execute maps scripting.Result.ErrKind "tcp_reset" and
// "garbage" onto them, and any other kind just closes the connection.
const (
	FaultConnectionResetByPeer = "CONNECTION_RESET_BY_PEER"
	FaultRandomDataThenClose   = "RANDOM_DATA_THEN_CLOSE"
)

// WriteFault hijacks w's underlying connection and terminates it the way
// kind requests, bypassing the normal HTTP response path entirely. Grounded
// on go-tartuffe's handleFault. If w does not support hijacking, it falls
// back to a bare 200 since there is no lower-level way to reach the socket.
func WriteFault(w http.ResponseWriter, kind string) error {
	hijacker, ok := w.(http.Hijacker)
	if !ok {
		w.WriteHeader(http.StatusOK)
		return nil
	}

	conn, _, err := hijacker.Hijack()
	if err != nil {
		w.WriteHeader(http.StatusOK)
		return fmt.Errorf("pipeline: hijack for fault %q: %w", kind, err)
	}

	switch kind {
	case FaultConnectionResetByPeer:
		if tcpConn, ok := conn.(*net.TCPConn); ok {
			tcpConn.SetLinger(0)
		}
		return conn.Close()

	case FaultRandomDataThenClose:
		garbage := make([]byte, 32)
		for i := range garbage {
			garbage[i] = byte(i * 17 % 256)
		}
		if _, err := conn.Write(garbage); err != nil {
			conn.Close()
			return fmt.Errorf("pipeline: write garbage for fault: %w", err)
		}
		return conn.Close()

	default:
		return conn.Close()
	}
}

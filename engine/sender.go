/*
Copyright (c) Facebook, Inc. and its affiliates.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package engine

import (
	"fmt"
	"time"

	"github.com/vaporio/ptpslave/protocol"
	"github.com/vaporio/ptpslave/rxqueue"
	"github.com/vaporio/ptpslave/session"
)

// sessionSender implements session.DelayReqSender (§4.7): it builds
// the padded Delay_Req frame, hands it to the session's tx_port_id
// queue (which may differ from the session's rx_port_id, per the
// asymmetric-routing requirement in §1), and reports the t3 samples
// taken immediately around the send call.
type sessionSender struct {
	builder *protocol.DelayReqBuilder
	clock   rxqueue.Clock
	tx      map[int]rxqueue.TxPort
}

// newSessionSender resolves a TxPort for every distinct tx_port_id a
// configured session routes through.
func newSessionSender(ports PortProvider, builder *protocol.DelayReqBuilder, clock rxqueue.Clock, txPortIDs []int) (*sessionSender, error) {
	tx := make(map[int]rxqueue.TxPort, len(txPortIDs))
	for _, portID := range txPortIDs {
		port, err := ports.TxPort(portID)
		if err != nil {
			return nil, fmt.Errorf("engine: tx port %d: %w", portID, err)
		}
		tx[portID] = port
	}
	return &sessionSender{builder: builder, clock: clock, tx: tx}, nil
}

// SendDelayReq implements session.DelayReqSender.
func (s *sessionSender) SendDelayReq(cfg session.Config, seqID uint16) (bool, int64, time.Duration, error) {
	tx, ok := s.tx[cfg.TxPortID]
	if !ok {
		return false, 0, 0, fmt.Errorf("engine: no tx port registered for port %d", cfg.TxPortID)
	}

	frame, err := s.builder.Build(protocol.DelayReqFrameParams{
		TxVLANID: cfg.TxVLAN,
		TxVLIdx:  cfg.TxVLIdx,
	}, seqID)
	if err != nil {
		return false, 0, 0, fmt.Errorf("engine: build delay_req: %w", err)
	}

	monoBefore := s.clock.Monotonic()
	accepted, err := tx.Send(frame)
	monoAfter := s.clock.Monotonic()
	wallNs := s.clock.WallNs()
	if err != nil {
		return false, 0, 0, fmt.Errorf("engine: tx_burst: %w", err)
	}
	if accepted == 0 {
		return false, 0, 0, fmt.Errorf("engine: tx_burst queued 0 packets")
	}

	// §4.7 step 4: the monotonic sample used downstream for pacing is
	// the midpoint of the window straddling the send call.
	mono := (monoBefore + monoAfter) / 2
	return true, wallNs, mono, nil
}

var _ session.DelayReqSender = (*sessionSender)(nil)

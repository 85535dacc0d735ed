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

// Package worker implements the per-ingress-port busy-poll RX loop
// that parses PTP frames and dispatches them to the owning session
// (§4.3). Every Session mutation happens on exactly one PortWorker's
// goroutine.
package worker

import (
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vaporio/ptpslave/protocol"
	"github.com/vaporio/ptpslave/rxqueue"
	"github.com/vaporio/ptpslave/session"
)

// pollInterval is the brief per-iteration yield when a poll returns
// nothing, matching §5's "explicit short pause".
const pollInterval = 200 * time.Microsecond

// PortWorker owns one ingress port's session array.
type PortWorker struct {
	PortID int

	rx     rxqueue.RxPort
	port   *session.Port
	sender session.DelayReqSender
	clock  rxqueue.Clock

	stop atomic.Bool
}

// New builds a worker for one port. port must be the table's entry
// for PortID; sender implements the Delay_Req transmit collaborator
// for sessions whose tx_port_id may differ from PortID.
func New(portID int, rx rxqueue.RxPort, port *session.Port, sender session.DelayReqSender, clock rxqueue.Clock) *PortWorker {
	return &PortWorker{
		PortID: portID,
		rx:     rx,
		port:   port,
		sender: sender,
		clock:  clock,
	}
}

// Stop raises the shared stop flag; Run finishes its current batch
// and returns.
func (w *PortWorker) Stop() {
	w.stop.Store(true)
}

// Run executes the busy-poll loop until Stop is called. It returns
// nil on a clean stop; it never returns an error for per-frame
// problems, which are logged and skipped (§4.3, §7: "the RX worker
// never returns an error").
func (w *PortWorker) Run() error {
	for !w.stop.Load() {
		frames, err := w.rx.PollBatch(rxqueue.MaxBatch)
		if err != nil {
			log.Warningf("worker[port %d]: poll failed: %v", w.PortID, err)
		}
		for _, f := range frames {
			w.dispatch(f)
		}
		now := w.clock.Monotonic()
		for _, s := range w.port.Sessions {
			if s != nil {
				s.Tick(now, w.sender)
			}
		}
		if len(frames) == 0 {
			time.Sleep(pollInterval)
		}
	}
	return nil
}

// dispatch classifies one frame and, if it is PTP and matches a
// configured session on this port, invokes the session's handler.
func (w *PortWorker) dispatch(f rxqueue.Frame) {
	classified, ok := protocol.Classify(f.Data)
	if !ok {
		return
	}
	s := w.lookup(classified.VLANID)
	if s == nil {
		// PTP-typed frame with no matching VLAN session: a transient,
		// counted-nowhere drop per §7 (no per-port "unmatched" counter
		// is specified).
		return
	}

	hdr, err := protocol.DecodeHeader(classified.Payload)
	if err != nil {
		log.Debugf("worker[port %d]: short ptp header: %v", w.PortID, err)
		return
	}

	switch hdr.MessageType() {
	case protocol.MessageSync:
		sync, err := protocol.DecodeSync(classified.Payload)
		if err != nil {
			log.Debugf("worker[port %d]: malformed sync: %v", w.PortID, err)
			return
		}
		s.HandleSync(sync.Header, sync.OriginTimestamp, f.RxWallNs, f.RxMonotonic)
	case protocol.MessageDelayResp:
		resp, err := protocol.DecodeDelayResp(classified.Payload)
		if err != nil {
			log.Debugf("worker[port %d]: malformed delay_resp: %v", w.PortID, err)
			return
		}
		s.HandleDelayResp(resp.Header, resp.ReceiveTimestamp, f.RxMonotonic)
	case protocol.MessageFollowUp, protocol.MessageAnnounce:
		// Accepted and ignored (§4.4, one-step mode only).
	default:
		// Ignored without counting as an error (§4.1).
	}
}

// lookup finds the session on this port whose rx_vlan matches.
func (w *PortWorker) lookup(vlanID uint16) *session.Session {
	for _, s := range w.port.Sessions {
		if s != nil && s.Config.RxVLAN == vlanID {
			return s
		}
	}
	return nil
}

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

package session

import (
	"time"

	"github.com/fatih/color"
	log "github.com/sirupsen/logrus"

	"github.com/vaporio/ptpslave/protocol"
)

// DelayReqSender transmits a Delay_Req for a session and reports the
// wall-clock and monotonic samples taken immediately around the send
// call (§4.7 steps 3-4). A returned error or sent=false means the NIC
// rejected or failed to queue the frame.
type DelayReqSender interface {
	SendDelayReq(cfg Config, seqID uint16) (sent bool, wallNs int64, mono time.Duration, err error)
}

// HandleSync applies an inbound Sync per §4.4. t2WallNs and
// t2Monotonic are sampled by the caller (the RX worker) as close to
// frame dequeue as the runtime permits.
func (s *Session) HandleSync(hdr protocol.Header, origin protocol.Timestamp, t2WallNs int64, t2Monotonic time.Duration) {
	s.Counters.SyncRx++
	s.MasterPortIdentity = hdr.SourcePortIdentity
	s.MasterDomain = hdr.DomainNumber
	s.SyncSeqID = hdr.SequenceID
	s.LastSyncMonotonic = t2Monotonic

	s.traceSync(hdr, origin)

	// t1/t2 and the state transition only happen when no Delay_Req is
	// outstanding for this session (§4.4): accepting mid-cycle would
	// corrupt the in-flight pair bound to SyncReceived/DelayReqSent.
	switch s.State {
	case StateListening, StateSynced, StateError:
		s.T1 = origin.Nanoseconds64()
		s.T2 = t2WallNs
		s.T2Monotonic = t2Monotonic
		s.State = StateSyncReceived
		// A fresh Sync while Synced restarts the pacing window even
		// if the prior cycle's Delay_Resp never arrived — specified
		// behavior, see DESIGN.md Open Question 2.
		s.LastTransition = t2Monotonic
	case StateSyncReceived, StateDelayReqSent:
		// Master info and counters above are still updated; t1/t2 of
		// the in-flight cycle are preserved (§8 boundary behavior 3).
	}
}

// HandleDelayResp applies an inbound Delay_Resp per §4.4.
func (s *Session) HandleDelayResp(hdr protocol.Header, t4Wire protocol.Timestamp, now time.Duration) {
	if hdr.SequenceID != s.LastDelayReqSeqID {
		// Stale or foreign reply: drop silently, not an error (§4.4, §7).
		return
	}
	s.Counters.DelayRespRx++
	s.traceDelayResp(hdr, t4Wire)
	// The requesting-port-identity field is intentionally not
	// consulted: VLAN + sequence id is authoritative in this
	// deployment (§4.4).
	s.T4 = t4Wire.Nanoseconds64()

	if s.State != StateDelayReqSent {
		return
	}
	s.calculateOffsetDelay()
	wasSynced := s.IsSynced
	s.State = StateSynced
	s.IsSynced = true
	s.Counters.CompletedCycles++
	s.LastTransition = now
	if !wasSynced {
		log.Infof(color.GreenString("session[%d/%d]: synced offset=%dns delay=%dns",
			s.Config.RxPortID, s.Config.RxVLAN, s.OffsetNs, s.DelayNs))
	}
}

// calculateOffsetDelay implements §4.6. t4 == 0 means the master
// omitted the receive timestamp: the cycle still completes at the
// protocol level but offset/delay are published as zero rather than a
// misleading number.
func (s *Session) calculateOffsetDelay() {
	if s.T4 == 0 {
		s.OffsetNs = 0
		s.DelayNs = 0
		return
	}
	forward := s.T2 - s.T1
	reverse := s.T4 - s.T3
	s.OffsetNs = (forward - reverse) / 2
	s.DelayNs = (forward + reverse) / 2
}

// Tick advances the state machine for one worker iteration (§4.5).
// now is the current monotonic tick.
func (s *Session) Tick(now time.Duration, tx DelayReqSender) {
	switch s.State {
	case StateInit:
		s.State = StateListening
		s.LastTransition = now

	case StateListening:
		if s.LastSyncMonotonic != 0 && now-s.LastSyncMonotonic > SyncTimeout {
			s.Counters.SyncTimeouts++
		}

	case StateSyncReceived:
		if now-s.LastTransition >= DelayReqInterval {
			s.emitDelayReq(now, tx)
		}

	case StateDelayReqSent:
		if now-s.LastTransition > DelayRespTimeout {
			s.State = StateListening
			s.Counters.SyncTimeouts++
		}

	case StateSynced:
		if now-s.LastSyncMonotonic > SyncTimeout {
			log.Warningf(color.YellowString("session[%d/%d]: sync lost, no Sync in %s",
				s.Config.RxPortID, s.Config.RxVLAN, SyncTimeout))
			s.State = StateListening
			s.IsSynced = false
			s.Counters.SyncTimeouts++
		}

	case StateError:
		if now-s.LastTransition > SyncTimeout {
			s.State = StateListening
		}
	}
}

// emitDelayReq implements §4.7: sample t3 around the transmit call,
// bind the sequence id, and transition on success/failure.
func (s *Session) emitDelayReq(now time.Duration, tx DelayReqSender) {
	seqID := s.DelayReqSeqID
	sent, wallNs, mono, err := tx.SendDelayReq(s.Config, seqID)
	if err != nil || !sent {
		log.Warningf(color.RedString("session[%d/%d]: delay_req tx failed: %v",
			s.Config.RxPortID, s.Config.RxVLAN, err))
		s.State = StateError
		s.Counters.SyncErrors++
		s.LastTransition = now
		return
	}
	s.T3 = wallNs
	s.T3Monotonic = mono
	s.LastDelayReqSeqID = seqID
	s.DelayReqSeqID = seqID + 1
	s.Counters.DelayReqTx++
	s.State = StateDelayReqSent
	s.LastTransition = now
}

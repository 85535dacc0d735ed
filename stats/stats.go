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

// Package stats implements the snapshot-style statistics surface
// exposed to external collaborators (§6 snapshot_stats), plus a
// Prometheus collector for the health-monitor's scrape path.
package stats

import (
	"github.com/vaporio/ptpslave/session"
)

// SessionSnapshot is one session's externally-visible state, exactly
// the field set named in §6.
type SessionSnapshot struct {
	PortID      int
	VLANID      uint16
	State       string
	OffsetNs    int64
	DelayNs     int64
	SyncRx      uint64
	DelayReqTx  uint64
	DelayRespRx uint64
	IsSynced    bool
}

// Snapshot reads every configured session's statistics field-by-field
// without locking. §5 accepts torn reads here: counters are
// monotonically non-decreasing and the offset/delay pair may briefly
// disagree with the sequence number it was computed from; a caller
// needing coherence should seqlock-retry around this call, which this
// package does not do itself.
func Snapshot(t *session.Table) []SessionSnapshot {
	sessions := t.AllSessions()
	out := make([]SessionSnapshot, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, SessionSnapshot{
			PortID:      s.Config.RxPortID,
			VLANID:      s.Config.RxVLAN,
			State:       s.State.String(),
			OffsetNs:    s.OffsetNs,
			DelayNs:     s.DelayNs,
			SyncRx:      s.Counters.SyncRx,
			DelayReqTx:  s.Counters.DelayReqTx,
			DelayRespRx: s.Counters.DelayRespRx,
			IsSynced:    s.IsSynced,
		})
	}
	return out
}

// Reset zeros every configured session's counters without touching
// state or any in-flight cycle (§6 reset_stats).
func Reset(t *session.Table) {
	for _, s := range t.AllSessions() {
		s.ResetStats()
	}
}

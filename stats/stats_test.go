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

package stats

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaporio/ptpslave/session"
)

func newTestTable(t *testing.T) *session.Table {
	tbl := session.NewTable()
	require.NoError(t, tbl.Configure([]session.Config{
		{RxPortID: 5, RxVLAN: 225, TxPortID: 2, TxVLAN: 97, TxVLIdx: 4420},
	}))
	return tbl
}

func TestSnapshotReflectsSessionFields(t *testing.T) {
	tbl := newTestTable(t)
	s := tbl.AllSessions()[0]
	s.Counters.SyncRx = 7
	s.IsSynced = true

	snap := Snapshot(tbl)
	require.Len(t, snap, 1)
	assert.Equal(t, uint64(7), snap[0].SyncRx)
	assert.True(t, snap[0].IsSynced)
	assert.Equal(t, 5, snap[0].PortID)
	assert.Equal(t, uint16(225), snap[0].VLANID)
}

func TestSnapshotTwiceWithNoTrafficIsStable(t *testing.T) {
	tbl := newTestTable(t)
	first := Snapshot(tbl)
	second := Snapshot(tbl)
	assert.Equal(t, first, second)
}

func TestResetZeroesCountersNotState(t *testing.T) {
	tbl := newTestTable(t)
	s := tbl.AllSessions()[0]
	s.Counters.SyncRx = 3
	s.State = session.StateSynced

	Reset(tbl)

	assert.Equal(t, uint64(0), s.Counters.SyncRx)
	assert.Equal(t, session.StateSynced, s.State)
}

func TestCollectorGathersWithoutError(t *testing.T) {
	tbl := newTestTable(t)
	c := NewCollector(tbl)
	// Gathering through a pedantic registry checks that every collected
	// metric matches a described one; one session yields one sample for
	// each of the six metric families.
	reg := prometheus.NewPedanticRegistry()
	require.NoError(t, reg.Register(c))
	mfs, err := reg.Gather()
	require.NoError(t, err)
	assert.Len(t, mfs, 6)
}

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
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaporio/ptpslave/flowsteer"
	"github.com/vaporio/ptpslave/rxqueue"
	"github.com/vaporio/ptpslave/session"
)

// fakeInstaller accepts every flow rule pattern, so InstallAll always
// succeeds for a test's enabled ports.
type fakeInstaller struct{}

func (fakeInstaller) Validate(flowsteer.Rule) error                { return nil }
func (fakeInstaller) Create(flowsteer.Rule) (flowsteer.Handle, error) { return "handle", nil }
func (fakeInstaller) Destroy(int, flowsteer.Handle) error          { return nil }

// fakeRx never has a frame ready; it exists purely to let a worker's
// Run loop start without error.
type fakeRx struct{}

func (fakeRx) PollBatch(max int) ([]rxqueue.Frame, error) { return nil, nil }

type fakeTx struct {
	mu   sync.Mutex
	sent int
}

func (t *fakeTx) Send(data []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sent++
	return len(data), nil
}

type fakeProvider struct{}

func (fakeProvider) RxPort(portID int) (rxqueue.RxPort, error) { return fakeRx{}, nil }
func (fakeProvider) TxPort(portID int) (rxqueue.TxPort, error) { return &fakeTx{}, nil }

func testConfigs() []session.Config {
	return []session.Config{
		{RxPortID: 5, RxVLAN: 225, TxPortID: 2, TxVLAN: 97, TxVLIdx: 4420},
		{RxPortID: 5, RxVLAN: 226, TxPortID: 3, TxVLAN: 98, TxVLIdx: 4421},
	}
}

func TestConfigureBeforeInitFails(t *testing.T) {
	e := New(fakeProvider{}, fakeInstaller{}, rxqueue.NewSystemClock(), 0)
	err := e.Configure(testConfigs())
	require.Error(t, err)
}

func TestStartWithZeroSessionsFails(t *testing.T) {
	e := New(fakeProvider{}, fakeInstaller{}, rxqueue.NewSystemClock(), 0)
	require.NoError(t, e.Init())
	err := e.Start()
	require.Error(t, err)
}

func TestConfigureAfterStartFails(t *testing.T) {
	e := New(fakeProvider{}, fakeInstaller{}, rxqueue.NewSystemClock(), 0)
	require.NoError(t, e.Init())
	require.NoError(t, e.Configure(testConfigs()))
	require.NoError(t, e.Start())
	defer e.Stop()

	err := e.Configure(testConfigs())
	require.Error(t, err)
}

func TestStartStopLifecycle(t *testing.T) {
	e := New(fakeProvider{}, fakeInstaller{}, rxqueue.NewSystemClock(), 0)
	require.NoError(t, e.Init())
	require.NoError(t, e.Configure(testConfigs()))

	var assigned WorkerHandle
	var mu sync.Mutex
	e.AssignWorker(5, func(h WorkerHandle) {
		mu.Lock()
		assigned = h
		mu.Unlock()
	})

	require.NoError(t, e.Start())
	time.Sleep(10 * time.Millisecond)

	mu.Lock()
	assert.Equal(t, 5, assigned.PortID)
	mu.Unlock()

	snap := e.SnapshotStats()
	assert.Len(t, snap, 2)

	require.NoError(t, e.Stop())
}

func TestSnapshotAndResetStats(t *testing.T) {
	e := New(fakeProvider{}, fakeInstaller{}, rxqueue.NewSystemClock(), 0)
	require.NoError(t, e.Init())
	require.NoError(t, e.Configure(testConfigs()))

	sessions := e.Table().AllSessions()
	sessions[0].Counters.SyncRx = 7

	snap := e.SnapshotStats()
	require.Len(t, snap, 2)
	assert.Equal(t, uint64(7), snap[0].SyncRx)

	e.ResetStats()
	snap = e.SnapshotStats()
	assert.Equal(t, uint64(0), snap[0].SyncRx)
}

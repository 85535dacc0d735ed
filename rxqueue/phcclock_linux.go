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

package rxqueue

import (
	"time"

	"github.com/vaporio/ptpslave/phc"
)

// PHCClock reads wall-clock time directly from a NIC's PTP Hardware
// Clock instead of the host's system clock. §4.6 requires t2/t3 to be
// sampled from the same epoch as t1/t4 (the master's clock); on an
// appliance whose NIC disciplines its own PHC independently of the
// kernel's system clock, reading the PHC directly is the more
// faithful wall-clock source for the RX/TX worker to sample.
type PHCClock struct {
	iface  string
	method phc.TimeMethod
	start  time.Time
}

// NewPHCClock returns a Clock backed by the PHC device behind iface.
// method selects how the device's time is read; phc.Time supports
// only phc.MethodSyscallClockGettime, and any other value makes every
// read fall back to the host system clock (see WallNs).
func NewPHCClock(iface string, method phc.TimeMethod) *PHCClock {
	return &PHCClock{iface: iface, method: method, start: time.Now()}
}

// WallNs returns the PHC's current time as Unix-epoch nanoseconds. A
// read failure (device unplugged, ioctl unsupported) falls back to
// the host system clock rather than propagating an error, since no
// caller in this package's collaborator interfaces can fail a sample.
func (c *PHCClock) WallNs() int64 {
	t, err := phc.Time(c.iface, c.method)
	if err != nil {
		return time.Now().UnixNano()
	}
	return t.UnixNano()
}

// Monotonic returns elapsed time since the clock was constructed,
// independent of the PHC or any wall-clock adjustment (§4.6).
func (c *PHCClock) Monotonic() time.Duration {
	return time.Since(c.start)
}

var _ Clock = (*PHCClock)(nil)

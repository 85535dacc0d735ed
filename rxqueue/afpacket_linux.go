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
	"fmt"
	"time"

	"golang.org/x/sys/unix"

	"github.com/vaporio/ptpslave/timestamp"
)

// AFPacketPort binds a non-blocking AF_PACKET socket to one
// interface. It stands in for the appliance's real hardware PTP
// queue in environments where only a plain NIC is available: the
// production RuleInstaller/RxPort pairing in the control surface
// targets a dedicated hardware queue, but this adapter gives the
// engine something real to poll and send on in a dev/test
// environment.
//
// When hardware timestamping is available on the bound interface,
// RxWallNs is the NIC's own HW RX timestamp rather than a
// post-dequeue software read, matching §4.3's "as close to the
// dequeue as the runtime permits" for the wall-clock side of t2.
type AFPacketPort struct {
	fd       int
	clock    Clock
	kernelTS bool
}

// NewAFPacketPort opens and binds a non-blocking AF_PACKET socket on
// ifIndex, filtering for the PTP EtherType at the kernel's BPF layer
// is left to flowsteer; this socket simply receives whatever the
// interface delivers to it. If iface's driver supports it, hardware
// RX timestamping is enabled on the socket (TX hardware timestamping
// stays off); otherwise the port
// falls back to software kernel timestamps, and finally to a bare
// Clock.WallNs() read if neither socket option applies.
func NewAFPacketPort(ifIndex int, iface string, clock Clock) (*AFPacketPort, error) {
	fd, err := unix.Socket(unix.AF_PACKET, unix.SOCK_RAW|unix.SOCK_NONBLOCK, int(htons(unix.ETH_P_ALL)))
	if err != nil {
		return nil, fmt.Errorf("afpacket: socket: %w", err)
	}
	addr := &unix.SockaddrLinklayer{
		Protocol: htons(unix.ETH_P_ALL),
		Ifindex:  ifIndex,
	}
	if err := unix.Bind(fd, addr); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("afpacket: bind: %w", err)
	}

	p := &AFPacketPort{fd: fd, clock: clock}
	if err := timestamp.EnableHWTimestamps(fd, iface); err == nil {
		p.kernelTS = true
	} else if err := timestamp.EnableSWTimestampsRx(fd); err == nil {
		p.kernelTS = true
	}
	return p, nil
}

// htons converts a 16-bit value from host to network byte order, the
// same conversion the kernel's AF_PACKET protocol field expects.
func htons(v uint16) uint16 {
	return (v<<8)&0xff00 | v>>8
}

// Close releases the underlying socket.
func (p *AFPacketPort) Close() error {
	return unix.Close(p.fd)
}

// PollBatch reads up to max frames without blocking, sampling both
// clocks immediately after each successful read (§4.3 step 1). When
// the socket has kernel timestamping enabled, RxWallNs comes from the
// kernel's own RX timestamp (hardware if the driver supports it,
// software otherwise) instead of a post-dequeue time.Now().
func (p *AFPacketPort) PollBatch(max int) ([]Frame, error) {
	if max > MaxBatch {
		max = MaxBatch
	}
	frames := make([]Frame, 0, max)
	buf := make([]byte, 9000)
	oob := make([]byte, timestamp.ControlSizeBytes)
	for i := 0; i < max; i++ {
		var n int
		var wallNs int64
		var err error
		if p.kernelTS {
			var ts time.Time
			n, _, ts, err = timestamp.ReadPacketWithRXTimestampBuf(p.fd, buf, oob)
			if err == nil && n > 0 {
				wallNs = ts.UnixNano()
			}
		} else {
			n, _, err = unix.Recvfrom(p.fd, buf, unix.MSG_DONTWAIT)
		}
		mono := p.clock.Monotonic()
		if err != nil {
			if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
				break
			}
			return frames, fmt.Errorf("afpacket: recv: %w", err)
		}
		if n <= 0 {
			break
		}
		if wallNs == 0 {
			wallNs = p.clock.WallNs()
		}
		data := make([]byte, n)
		copy(data, buf[:n])
		frames = append(frames, Frame{
			Data:        data,
			RxWallNs:    wallNs,
			RxMonotonic: mono,
		})
	}
	return frames, nil
}

// Send transmits a fully-framed Ethernet payload on the bound
// interface. AF_PACKET accepts or rejects the whole write; there is
// no partial "accepted count" the way a DPDK tx_burst has, so the
// returned count is either 0 (write failed or was short) or the full
// len(data), matching the TxPort contract callers actually rely on.
func (p *AFPacketPort) Send(data []byte) (int, error) {
	n, err := unix.Write(p.fd, data)
	if err != nil {
		return 0, fmt.Errorf("afpacket: write: %w", err)
	}
	if n != len(data) {
		return 0, fmt.Errorf("afpacket: short write: %d of %d bytes", n, len(data))
	}
	return len(data), nil
}

var _ RxPort = (*AFPacketPort)(nil)
var _ TxPort = (*AFPacketPort)(nil)

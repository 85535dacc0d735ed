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

	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcap"
	"golang.org/x/sys/unix"

	"github.com/vaporio/ptpslave/flowsteer"
)

// BPFInstaller is a flowsteer.RuleInstaller that implements the
// classifier cascade with a classic BPF program attached directly to
// an AF_PACKET socket (SO_ATTACH_FILTER), rather than a dedicated
// hardware queue. It stands in for the appliance's real NIC
// control-plane surface on hosts that only expose a plain multi-queue
// NIC: the installed program still steers the socket to deliver only
// PTP frames, it just shares the kernel's generic socket filtering
// machinery instead of flow-director hardware.
type BPFInstaller struct {
	ports map[int]*AFPacketPort
}

// NewBPFInstaller returns an installer that attaches filters to the
// AFPacketPort bound to each port id.
func NewBPFInstaller(ports map[int]*AFPacketPort) *BPFInstaller {
	return &BPFInstaller{ports: ports}
}

// Validate compiles the pattern's classifier string with the same
// standalone BPF compiler flowsteer.ValidateClassifier uses.
func (b *BPFInstaller) Validate(rule flowsteer.Rule) error {
	return flowsteer.ValidateClassifier(rule.Pattern)
}

// Create compiles the pattern's classifier into a BPF program and
// attaches it to the port's bound socket via SO_ATTACH_FILTER. The
// returned Handle is the instruction count, used only so Destroy can
// log a matching message.
func (b *BPFInstaller) Create(rule flowsteer.Rule) (flowsteer.Handle, error) {
	port, ok := b.ports[rule.PortID]
	if !ok {
		return nil, fmt.Errorf("bpfinstaller: no socket bound for port %d", rule.PortID)
	}
	prog, err := pcap.CompileBPFFilter(layers.LinkTypeEthernet, 128, flowsteer.Classifier(rule.Pattern))
	if err != nil {
		return nil, fmt.Errorf("bpfinstaller: compile: %w", err)
	}
	filter := make([]unix.SockFilter, len(prog))
	for i, ins := range prog {
		filter[i] = unix.SockFilter{Code: ins.Code, Jt: ins.Jt, Jf: ins.Jf, K: ins.K}
	}
	fprog := unix.SockFprog{Len: uint16(len(filter)), Filter: &filter[0]}
	if err := unix.SetsockoptSockFprog(port.fd, unix.SOL_SOCKET, unix.SO_ATTACH_FILTER, &fprog); err != nil {
		return nil, fmt.Errorf("bpfinstaller: SO_ATTACH_FILTER: %w", err)
	}
	return len(filter), nil
}

// Destroy detaches the active filter from the port's socket.
func (b *BPFInstaller) Destroy(portID int, handle flowsteer.Handle) error {
	port, ok := b.ports[portID]
	if !ok {
		return nil
	}
	return unix.SetsockoptInt(port.fd, unix.SOL_SOCKET, unix.SO_DETACH_FILTER, 0)
}

var _ flowsteer.RuleInstaller = (*BPFInstaller)(nil)

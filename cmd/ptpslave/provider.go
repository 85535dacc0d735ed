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

package main

import (
	"fmt"
	"net"

	"github.com/vaporio/ptpslave/rxqueue"
)

// afpacketProvider backs engine.PortProvider with one AF_PACKET
// socket per configured port, bound up front at startup. It is the
// reference collaborator for hosts without a dedicated hardware PTP
// queue (§6); a production appliance would instead hand the engine a
// PortProvider backed by its own DPDK/hardware-queue driver.
type afpacketProvider struct {
	ports map[int]*rxqueue.AFPacketPort
}

// newAFPacketProvider binds a socket on ifaceByPort[id] for every
// port id present in the map.
func newAFPacketProvider(ifaceByPort map[int]string, clock rxqueue.Clock) (*afpacketProvider, error) {
	p := &afpacketProvider{ports: make(map[int]*rxqueue.AFPacketPort, len(ifaceByPort))}
	for portID, iface := range ifaceByPort {
		ifc, err := net.InterfaceByName(iface)
		if err != nil {
			p.Close()
			return nil, fmt.Errorf("afpacketProvider: port %d (%s): %w", portID, iface, err)
		}
		port, err := rxqueue.NewAFPacketPort(ifc.Index, iface, clock)
		if err != nil {
			p.Close()
			return nil, fmt.Errorf("afpacketProvider: port %d (%s): %w", portID, iface, err)
		}
		p.ports[portID] = port
	}
	return p, nil
}

func (p *afpacketProvider) RxPort(portID int) (rxqueue.RxPort, error) {
	port, ok := p.ports[portID]
	if !ok {
		return nil, fmt.Errorf("afpacketProvider: no socket bound for port %d", portID)
	}
	return port, nil
}

func (p *afpacketProvider) TxPort(portID int) (rxqueue.TxPort, error) {
	port, ok := p.ports[portID]
	if !ok {
		return nil, fmt.Errorf("afpacketProvider: no socket bound for port %d", portID)
	}
	return port, nil
}

// rawPorts exposes the bound sockets keyed by port id, for wiring
// into rxqueue.NewBPFInstaller.
func (p *afpacketProvider) rawPorts() map[int]*rxqueue.AFPacketPort {
	return p.ports
}

// Close releases every bound socket.
func (p *afpacketProvider) Close() {
	for _, port := range p.ports {
		_ = port.Close()
	}
}

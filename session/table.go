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

import "fmt"

// MaxPorts and SessionsPerPort bound the fixed-capacity session
// table (§3): up to 8 ingress ports, each hosting up to 4 sessions.
const (
	MaxPorts        = 8
	SessionsPerPort = 4
	MaxSessions     = MaxPorts * SessionsPerPort
)

// Port holds the sessions owned by one ingress port. A port is
// enabled when it owns at least one session.
type Port struct {
	Enabled  bool
	Sessions [SessionsPerPort]*Session
}

// Table is the fixed two-level session table. Ports and sessions are
// created at configure time and never destroyed until shutdown; the
// owning worker of rx_port_id is the only goroutine permitted to
// mutate a session's runtime fields.
type Table struct {
	Ports [MaxPorts]Port
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{}
}

// Configure populates the table from a static list of SessionConfig
// tuples (§6 configure()). It validates port ranges and per-port
// capacity before creating anything, and fails without partially
// applying if any entry is invalid.
func (t *Table) Configure(configs []Config) error {
	if len(configs) == 0 {
		return fmt.Errorf("session table: configure called with zero sessions")
	}
	if len(configs) > MaxSessions {
		return fmt.Errorf("session table: %d sessions exceeds maximum %d", len(configs), MaxSessions)
	}
	counts := make(map[int]int, MaxPorts)
	vlans := make(map[int]map[uint16]bool, MaxPorts)
	for _, cfg := range configs {
		if cfg.RxPortID < 0 || cfg.RxPortID >= MaxPorts {
			return fmt.Errorf("session table: rx_port_id %d out of range [0,%d)", cfg.RxPortID, MaxPorts)
		}
		if cfg.TxPortID < 0 || cfg.TxPortID >= MaxPorts {
			return fmt.Errorf("session table: tx_port_id %d out of range [0,%d)", cfg.TxPortID, MaxPorts)
		}
		counts[cfg.RxPortID]++
		if counts[cfg.RxPortID] > SessionsPerPort {
			return fmt.Errorf("session table: port %d exceeds %d sessions", cfg.RxPortID, SessionsPerPort)
		}
		if vlans[cfg.RxPortID] == nil {
			vlans[cfg.RxPortID] = make(map[uint16]bool)
		}
		if vlans[cfg.RxPortID][cfg.RxVLAN] {
			return fmt.Errorf("session table: port %d has duplicate rx_vlan %d", cfg.RxPortID, cfg.RxVLAN)
		}
		vlans[cfg.RxPortID][cfg.RxVLAN] = true
	}

	for _, cfg := range configs {
		port := &t.Ports[cfg.RxPortID]
		port.Enabled = true
		idx := 0
		for idx < SessionsPerPort && port.Sessions[idx] != nil {
			idx++
		}
		port.Sessions[idx] = New(cfg)
	}
	return nil
}

// Lookup finds the session owning rx_vlan on the given port, or nil.
func (t *Table) Lookup(portID int, vlanID uint16) *Session {
	if portID < 0 || portID >= MaxPorts {
		return nil
	}
	for _, s := range t.Ports[portID].Sessions {
		if s != nil && s.Config.RxVLAN == vlanID {
			return s
		}
	}
	return nil
}

// EnabledPorts returns the port ids that own at least one session.
func (t *Table) EnabledPorts() []int {
	var ports []int
	for i, p := range t.Ports {
		if p.Enabled {
			ports = append(ports, i)
		}
	}
	return ports
}

// AllSessions returns every configured session across all ports, in
// port-then-slot order.
func (t *Table) AllSessions() []*Session {
	var sessions []*Session
	for _, p := range t.Ports {
		for _, s := range p.Sessions {
			if s != nil {
				sessions = append(sessions, s)
			}
		}
	}
	return sessions
}

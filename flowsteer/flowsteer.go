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

// Package flowsteer installs and removes the NIC classification
// rules that steer PTP frames to a dedicated RX queue, trying a
// cascade of fallback patterns on NICs that don't support the most
// general one.
package flowsteer

import (
	"fmt"

	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcap"
	log "github.com/sirupsen/logrus"

	"github.com/vaporio/ptpslave/protocol"
)

// Pattern identifies one of the three candidate classifier shapes, in
// the order they are tried.
type Pattern int

const (
	// PatternVLANAnyOuter matches Ethernet with any outer type plus a
	// VLAN tag whose inner type is the PTP EtherType; the VLAN id
	// itself is unconstrained.
	PatternVLANAnyOuter Pattern = iota
	// PatternVLANExplicit matches an explicit outer 0x8100 plus a
	// VLAN tag whose inner type is the PTP EtherType.
	PatternVLANExplicit
	// PatternUntagged matches untagged Ethernet carrying the PTP
	// EtherType directly.
	PatternUntagged
)

func (p Pattern) String() string {
	switch p {
	case PatternVLANAnyOuter:
		return "vlan-any-outer"
	case PatternVLANExplicit:
		return "vlan-explicit-0x8100"
	case PatternUntagged:
		return "untagged"
	default:
		return "unknown"
	}
}

// cascade is the fixed try-in-order list of candidate patterns (§4.2).
var cascade = []Pattern{PatternVLANAnyOuter, PatternVLANExplicit, PatternUntagged}

// Rule describes a classification rule to install on one port. The
// RX queue id is fixed by the deployment's appliance convention.
type Rule struct {
	PortID  int
	Pattern Pattern
	QueueID int
}

// Handle is an opaque reference to an installed rule, returned by a
// RuleInstaller and later passed back to Destroy.
type Handle any

// RuleInstaller is the NIC control-plane collaborator this package
// drives; its real implementation lives outside the core's process
// boundary (§6: create_rule/destroy_rule).
type RuleInstaller interface {
	Validate(rule Rule) error
	Create(rule Rule) (Handle, error)
	Destroy(portID int, handle Handle) error
}

// Manager tracks at most one active rule handle per port and runs the
// fallback cascade on install.
type Manager struct {
	installer RuleInstaller
	queueID   int
	handles   map[int]Handle
}

// NewManager returns a Manager that installs rules steering to
// queueID on every port.
func NewManager(installer RuleInstaller, queueID int) *Manager {
	return &Manager{
		installer: installer,
		queueID:   queueID,
		handles:   make(map[int]Handle),
	}
}

// Install tries each pattern in the cascade in order and keeps the
// first one that validates and creates successfully. If all three
// fail, it returns an error but the caller (per §4.2) is expected to
// start the port anyway and rely on defensive filtering in the
// worker.
func (m *Manager) Install(portID int) error {
	var lastErr error
	for _, pattern := range cascade {
		rule := Rule{PortID: portID, Pattern: pattern, QueueID: m.queueID}
		if err := m.installer.Validate(rule); err != nil {
			log.Debugf("flowsteer: port %d pattern %s failed validation: %v", portID, pattern, err)
			lastErr = err
			continue
		}
		handle, err := m.installer.Create(rule)
		if err != nil {
			log.Debugf("flowsteer: port %d pattern %s failed to install: %v", portID, pattern, err)
			lastErr = err
			continue
		}
		log.Infof("flowsteer: port %d installed pattern %s", portID, pattern)
		m.handles[portID] = handle
		return nil
	}
	return fmt.Errorf("flowsteer: port %d: all patterns failed, last error: %w", portID, lastErr)
}

// Remove destroys the active rule handle for a port, if any.
func (m *Manager) Remove(portID int) error {
	handle, ok := m.handles[portID]
	if !ok {
		return nil
	}
	delete(m.handles, portID)
	return m.installer.Destroy(portID, handle)
}

// InstallAll installs rules on every enabled port, logging but not
// failing for individual port failures; it returns an error only if
// every port failed (mirrors §7: "start() returns a failure if
// flow-rule installation fails on every attempt for any port").
func (m *Manager) InstallAll(portIDs []int) error {
	failed := 0
	for _, portID := range portIDs {
		if err := m.Install(portID); err != nil {
			log.Warningf("flowsteer: %v", err)
			failed++
		}
	}
	if failed > 0 && failed == len(portIDs) {
		return fmt.Errorf("flowsteer: failed to install rules on all %d ports", len(portIDs))
	}
	return nil
}

// RemoveAll tears down every active rule handle.
func (m *Manager) RemoveAll() {
	for portID := range m.handles {
		if err := m.Remove(portID); err != nil {
			log.Warningf("flowsteer: failed to remove rule on port %d: %v", portID, err)
		}
	}
}

// Classifier renders the BPF filter expression for a pattern.
// ValidateClassifier compiles it as a sanity check, and a
// RuleInstaller may compile and attach it (rxqueue.BPFInstaller does);
// no live pcap handle is opened here. PatternVLANAnyOuter and
// PatternVLANExplicit render the same expression.
func Classifier(pattern Pattern) string {
	switch pattern {
	case PatternVLANAnyOuter:
		return fmt.Sprintf("vlan and ether proto 0x%x", protocol.EtherTypePTP)
	case PatternVLANExplicit:
		return fmt.Sprintf("vlan and ether proto 0x%x", protocol.EtherTypePTP)
	case PatternUntagged:
		return fmt.Sprintf("ether proto 0x%x", protocol.EtherTypePTP)
	default:
		return ""
	}
}

// ValidateClassifier compiles a pattern's BPF-flavored description
// against a standalone BPF compiler (no live pcap handle is opened)
// as a sanity check before attempting the real NIC rule install; this
// catches a malformed classifier string early, the same way
// pcap.SetBPFFilter would reject one on the teacher's capture path.
func ValidateClassifier(pattern Pattern) error {
	_, err := pcap.CompileBPFFilter(layers.LinkTypeEthernet, 128, Classifier(pattern))
	if err != nil {
		return fmt.Errorf("flowsteer: invalid classifier for %s: %w", pattern, err)
	}
	return nil
}

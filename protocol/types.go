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

// Package protocol implements the bit-exact wire encoding of PTP
// Sync, Delay_Req and Delay_Resp messages as carried directly over
// Ethernet and 802.1Q, the way this deployment's fabric expects them
// rather than over UDP.
package protocol

import "fmt"

// EtherType values relevant to PTP-over-Ethernet framing.
const (
	EtherTypePTP  = 0x88F7
	EtherTypeVLAN = 0x8100
)

// MessageType is the low nibble of the first header octet.
type MessageType uint8

// Recognized message types. Only Sync and DelayResp drive state;
// FollowUp and Announce are accepted and ignored; anything else is
// ignored without being counted as an error.
const (
	MessageSync      MessageType = 0x0
	MessageDelayReq  MessageType = 0x1
	MessageFollowUp  MessageType = 0x8
	MessageDelayResp MessageType = 0x9
	MessageAnnounce  MessageType = 0xB
)

func (m MessageType) String() string {
	switch m {
	case MessageSync:
		return "Sync"
	case MessageDelayReq:
		return "Delay_Req"
	case MessageFollowUp:
		return "Follow_Up"
	case MessageDelayResp:
		return "Delay_Resp"
	case MessageAnnounce:
		return "Announce"
	default:
		return fmt.Sprintf("MessageType(0x%x)", uint8(m))
	}
}

// TypeAndTransport packs the transport-specific nibble (high) and the
// message type nibble (low) into a single wire octet. Accessors are
// used instead of a language-level bitfield so the layout does not
// depend on the compiler's bit ordering.
type TypeAndTransport uint8

// NewTypeAndTransport builds the packed octet from its two fields.
func NewTypeAndTransport(transportSpecific uint8, msgType MessageType) TypeAndTransport {
	return TypeAndTransport((transportSpecific&0x0f)<<4 | uint8(msgType)&0x0f)
}

// MessageType extracts the low nibble.
func (t TypeAndTransport) MessageType() MessageType {
	return MessageType(t & 0x0f)
}

// TransportSpecific extracts the high nibble.
func (t TypeAndTransport) TransportSpecific() uint8 {
	return uint8(t>>4) & 0x0f
}

// ControlField values used on the wire; only DelayReq is ever emitted
// by this core.
const (
	ControlSync     uint8 = 0
	ControlDelayReq uint8 = 1
)

// Deployment-wide constants pinned by the master this core talks to.
const (
	// FlagsTwoStepCompat is the flags field value the master expects
	// on an outgoing Delay_Req, even though this slave operates in
	// one-step mode for Sync.
	FlagsTwoStepCompat uint16 = 0x0102
	// Domain is the single PTP domain number used by this deployment.
	Domain uint8 = 10
	// LogMessageIntervalDelayReq is the nominal Delay_Req cadence
	// advertised on the wire (log base 2 of seconds): -1 means 0.5s.
	LogMessageIntervalDelayReq int8 = -1
)

// ClockIdentity is the 64-bit EUI-64-shaped clock identity.
type ClockIdentity [8]byte

func (c ClockIdentity) String() string {
	return fmt.Sprintf("%02x:%02x:%02x:%02x:%02x:%02x:%02x:%02x",
		c[0], c[1], c[2], c[3], c[4], c[5], c[6], c[7])
}

// PortIdentity is a 64-bit clock identity plus a 16-bit port number,
// 10 octets on the wire.
type PortIdentity struct {
	ClockIdentity ClockIdentity
	PortNumber    uint16
}

func (p PortIdentity) String() string {
	return fmt.Sprintf("%s/%d", p.ClockIdentity, p.PortNumber)
}

// FixedPortIdentity is the non-standard, hard-coded identity this
// slave MUST transmit so the master's echoed Delay_Resp
// requesting-port-identity field correlates (the master's echo
// appears to originate from an intermediate switch rather than this
// NIC; see DESIGN.md).
var FixedPortIdentity = PortIdentity{
	ClockIdentity: ClockIdentity{0x2C, 0x1A, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00},
	PortNumber:    0,
}

// Timestamp is the 10-octet wire timestamp: 2 octets seconds-high
// (ignored on decode, zeroed on encode in this deployment), 4 octets
// seconds-low, 4 octets nanoseconds.
type Timestamp struct {
	SecondsHigh uint16
	SecondsLow  uint32
	Nanoseconds uint32
}

// Nanoseconds64 folds SecondsLow/Nanoseconds into a single signed
// nanosecond count, dropping SecondsHigh per this deployment's
// contract (§3, §8: seconds-high is implementation-defined junk).
func (t Timestamp) Nanoseconds64() int64 {
	return int64(t.SecondsLow)*1_000_000_000 + int64(t.Nanoseconds)
}

// TimestampFromNanoseconds builds a wire timestamp from a signed
// nanosecond count, zeroing SecondsHigh as required on encode.
func TimestampFromNanoseconds(ns int64) Timestamp {
	sec := ns / 1_000_000_000
	nsec := ns % 1_000_000_000
	if nsec < 0 {
		nsec += 1_000_000_000
		sec--
	}
	return Timestamp{
		SecondsHigh: 0,
		SecondsLow:  uint32(sec),
		Nanoseconds: uint32(nsec),
	}
}

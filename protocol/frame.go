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

package protocol

import (
	"fmt"
	"net"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

// vlanIDMask keeps only the low 12 bits of a VLAN TCI.
const vlanIDMask = 0x0fff

// ClassifiedFrame is the result of peeling the Ethernet/802.1Q
// envelope off an inbound frame.
type ClassifiedFrame struct {
	VLANID  uint16 // 0 when untagged
	Tagged  bool
	Payload []byte // the PTP header onward
}

// Classify implements the §4.1 decode rules: read the outer EtherType
// at offset 12; if it is the PTP EtherType the frame is untagged PTP.
// If it is the VLAN EtherType, read the TCI and the inner EtherType;
// the frame is PTP only if the inner type is also the PTP EtherType.
// Any other outer EtherType is not PTP.
func Classify(raw []byte) (ClassifiedFrame, bool) {
	var out ClassifiedFrame
	if len(raw) < 14 {
		return out, false
	}
	outerType := uint16(raw[12])<<8 | uint16(raw[13])
	switch outerType {
	case EtherTypePTP:
		out.Payload = raw[14:]
		return out, true
	case EtherTypeVLAN:
		if len(raw) < 18 {
			return out, false
		}
		tci := uint16(raw[14])<<8 | uint16(raw[15])
		innerType := uint16(raw[16])<<8 | uint16(raw[17])
		if innerType != EtherTypePTP {
			return out, false
		}
		out.VLANID = tci & vlanIDMask
		out.Tagged = true
		out.Payload = raw[18:]
		return out, true
	default:
		return out, false
	}
}

// DelayReqFrameParams carries the per-session values needed to build
// the outgoing Delay_Req envelope.
type DelayReqFrameParams struct {
	TxVLANID uint16
	TxVLIdx  uint16
}

// SourceMAC is the fixed source MAC this core stamps on every
// outgoing Delay_Req, independent of the NIC's real MAC (§4.1).
var SourceMAC = net.HardwareAddr{0x02, 0x00, 0x00, 0x00, 0x00, 0x20}

// DestinationMAC builds the fabric-routing destination MAC: 03:00:00:00:H:L
// where H:L is the big-endian tx_vl_idx.
func DestinationMAC(txVLIdx uint16) net.HardwareAddr {
	return net.HardwareAddr{
		0x03, 0x00, 0x00, 0x00,
		byte(txVLIdx >> 8),
		byte(txVLIdx),
	}
}

// BuildDelayReqFrame assembles the full Ethernet+802.1Q+PTP frame for
// an outgoing Delay_Req, given the already-encoded (and padded) PTP
// body.
func BuildDelayReqFrame(params DelayReqFrameParams, ptpBody []byte) ([]byte, error) {
	eth := &layers.Ethernet{
		SrcMAC:       SourceMAC,
		DstMAC:       DestinationMAC(params.TxVLIdx),
		EthernetType: layers.EthernetTypeDot1Q,
	}
	dot1q := &layers.Dot1Q{
		VLANIdentifier: params.TxVLANID & vlanIDMask,
		Type:           layers.EthernetType(EtherTypePTP),
	}
	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: false}
	if err := gopacket.SerializeLayers(buf, opts, eth, dot1q, gopacket.Payload(ptpBody)); err != nil {
		return nil, fmt.Errorf("serialize delay_req frame: %w", err)
	}
	return buf.Bytes(), nil
}

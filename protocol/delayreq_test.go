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
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestBuilderPadsBodyToDeclaredLength covers the 106-octet padded
// Delay_Req quirk (§4.1/§9): the declared MessageLength and the
// actual body length must both be 106, with everything past the
// 44-octet semantic region (header + origin timestamp) zeroed.
func TestBuilderPadsBodyToDeclaredLength(t *testing.T) {
	d := NewDelayReqBuilder()
	require.Equal(t, DefaultDelayReqPadding, d.PayloadLength)

	body, err := EncodeDelayReq(DelayReqBody{
		Header: Header{
			TypeAndTransport:   NewTypeAndTransport(0, MessageDelayReq),
			Version:            Version2,
			MessageLength:      uint16(d.PayloadLength),
			DomainNumber:       Domain,
			Flags:              FlagsTwoStepCompat,
			SourcePortIdentity: d.SourcePortIdentity,
			SequenceID:         5,
			Control:            ControlDelayReq,
			LogMessageInterval: LogMessageIntervalDelayReq,
		},
	}, d.PayloadLength)
	require.NoError(t, err)

	require.Len(t, body, 106)
	hdr, err := DecodeHeader(body)
	require.NoError(t, err)
	assert.Equal(t, uint16(106), hdr.MessageLength)
	assert.Equal(t, MessageDelayReq, hdr.MessageType())

	for i := DelayReqLen; i < len(body); i++ {
		assert.Zerof(t, body[i], "padding byte at offset %d must be zero", i)
	}
}

// TestBuildProducesFullPaddedFrame covers the same quirk end to end
// through DelayReqBuilder.Build: a 124-octet L2 frame (14-octet
// Ethernet header + 4-octet 802.1Q tag + 106-octet padded PTP body)
// with the routing MACs and VLAN TCI §4.1 requires.
func TestBuildProducesFullPaddedFrame(t *testing.T) {
	d := NewDelayReqBuilder()
	params := DelayReqFrameParams{TxVLANID: 98, TxVLIdx: 0x4421}

	frame, err := d.Build(params, 3)
	require.NoError(t, err)

	require.Len(t, frame, 124)
	assert.Equal(t, DestinationMAC(params.TxVLIdx), net.HardwareAddr(frame[0:6]))
	assert.Equal(t, SourceMAC, net.HardwareAddr(frame[6:12]))
	assert.Equal(t, uint16(EtherTypeVLAN), uint16(frame[12])<<8|uint16(frame[13]))

	tci := uint16(frame[14])<<8 | uint16(frame[15])
	assert.Equal(t, params.TxVLANID, tci&vlanIDMask)
	assert.Equal(t, uint16(EtherTypePTP), uint16(frame[16])<<8|uint16(frame[17]))

	ptpBody := frame[18:]
	require.Len(t, ptpBody, 106)
	hdr, err := DecodeHeader(ptpBody)
	require.NoError(t, err)
	assert.Equal(t, uint16(106), hdr.MessageLength)
	assert.Equal(t, uint16(3), hdr.SequenceID)

	for i := DelayReqLen; i < len(ptpBody); i++ {
		assert.Zerof(t, ptpBody[i], "padding byte at offset %d must be zero", i)
	}
}

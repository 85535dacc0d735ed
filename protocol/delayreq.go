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

import "fmt"

// DefaultDelayReqPadding is the padded PTP message length this
// deployment's master expects on Delay_Req (106 octets), well past
// the 44-octet IEEE 1588 minimum. A different master population may
// need a different value or none at all; see DESIGN.md Open Question 1.
const DefaultDelayReqPadding = 106

// DelayReqBuilder crafts outgoing Delay_Req frames for one session.
// PayloadLength is the declared/padded PTP message length; it
// defaults to DefaultDelayReqPadding but is intentionally a field
// rather than a constant so an operator can target a conformant
// master without a code change.
type DelayReqBuilder struct {
	SourcePortIdentity PortIdentity
	PayloadLength      int
}

// NewDelayReqBuilder returns a builder using this deployment's
// hard-coded PortIdentity and padded length.
func NewDelayReqBuilder() *DelayReqBuilder {
	return &DelayReqBuilder{
		SourcePortIdentity: FixedPortIdentity,
		PayloadLength:      DefaultDelayReqPadding,
	}
}

// Build encodes the full Delay_Req frame (Ethernet + 802.1Q + padded
// PTP body) for the given sequence id and session routing parameters.
func (d *DelayReqBuilder) Build(params DelayReqFrameParams, sequenceID uint16) ([]byte, error) {
	if d.PayloadLength < DelayReqLen {
		return nil, fmt.Errorf("delay_req padded length %d shorter than minimum %d", d.PayloadLength, DelayReqLen)
	}
	body := DelayReqBody{
		Header: Header{
			TypeAndTransport:   NewTypeAndTransport(0, MessageDelayReq),
			Version:            Version2,
			MessageLength:      uint16(d.PayloadLength),
			DomainNumber:       Domain,
			Flags:              FlagsTwoStepCompat,
			SourcePortIdentity: d.SourcePortIdentity,
			SequenceID:         sequenceID,
			Control:            ControlDelayReq,
			LogMessageInterval: LogMessageIntervalDelayReq,
		},
		// OriginTimestamp intentionally left zero: the slave does not
		// trust wire-encoded timestamps for its own TX (§4.1).
	}
	padded, err := EncodeDelayReq(body, d.PayloadLength)
	if err != nil {
		return nil, err
	}
	return BuildDelayReqFrame(params, padded)
}

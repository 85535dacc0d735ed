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
	"bytes"
	"encoding/binary"
	"fmt"
)

// DecodeHeader reads just the common header, so a caller can dispatch
// on message type before choosing which body decoder to run.
func DecodeHeader(raw []byte) (Header, error) {
	var h Header
	if len(raw) < HeaderLen {
		return h, fmt.Errorf("ptp header: need %d octets, got %d", HeaderLen, len(raw))
	}
	r := bytes.NewReader(raw[:HeaderLen])
	if err := binary.Read(r, binary.BigEndian, &h); err != nil {
		return h, fmt.Errorf("ptp header: %w", err)
	}
	return h, nil
}

// DecodeSync parses a Sync body (header + origin timestamp).
func DecodeSync(raw []byte) (SyncBody, error) {
	var b SyncBody
	if len(raw) < SyncLen {
		return b, fmt.Errorf("sync body: need %d octets, got %d", SyncLen, len(raw))
	}
	r := bytes.NewReader(raw[:SyncLen])
	if err := binary.Read(r, binary.BigEndian, &b); err != nil {
		return b, fmt.Errorf("sync body: %w", err)
	}
	return b, nil
}

// DecodeDelayResp parses a Delay_Resp body (header + receive
// timestamp + requesting port identity).
func DecodeDelayResp(raw []byte) (DelayRespBody, error) {
	var b DelayRespBody
	if len(raw) < DelayRespLen {
		return b, fmt.Errorf("delay_resp body: need %d octets, got %d", DelayRespLen, len(raw))
	}
	r := bytes.NewReader(raw[:DelayRespLen])
	if err := binary.Read(r, binary.BigEndian, &b); err != nil {
		return b, fmt.Errorf("delay_resp body: %w", err)
	}
	return b, nil
}

// EncodeDelayReq serializes a Delay_Req body, then pads the result up
// to padLen octets with zero bytes (§4.1: the master parses a
// trailing padded region even though only the first DelayReqLen
// octets carry semantic content).
func EncodeDelayReq(b DelayReqBody, padLen int) ([]byte, error) {
	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.BigEndian, b); err != nil {
		return nil, fmt.Errorf("delay_req body: %w", err)
	}
	out := buf.Bytes()
	if padLen > len(out) {
		padded := make([]byte, padLen)
		copy(padded, out)
		return padded, nil
	}
	return out, nil
}

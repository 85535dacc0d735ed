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

// SyncLen and DelayReqLen are the minimum, conformant wire lengths:
// the 34-octet header plus a 10-octet origin timestamp.
const (
	SyncLen     = HeaderLen + 10
	DelayReqLen = HeaderLen + 10
	// DelayRespLen is the header plus a 10-octet receive timestamp
	// plus a 10-octet requesting port identity.
	DelayRespLen = HeaderLen + 10 + 10
)

// SyncBody is the one-step Sync message: header plus the master's own
// TX timestamp (T1).
type SyncBody struct {
	Header
	OriginTimestamp Timestamp
}

// DelayReqBody is the slave's Delay_Req message. OriginTimestamp is
// always zero on transmit in this deployment (§4.1): the slave does
// not trust wire-encoded timestamps for its own TX and instead
// records T3 locally at send time.
type DelayReqBody struct {
	Header
	OriginTimestamp Timestamp
}

// DelayRespBody is the master's reply: header, the master's RX
// timestamp of the Delay_Req (T4), and the requesting port identity
// the master is echoing back (not authoritative in this deployment,
// see §4.4).
type DelayRespBody struct {
	Header
	ReceiveTimestamp       Timestamp
	RequestingPortIdentity PortIdentity
}

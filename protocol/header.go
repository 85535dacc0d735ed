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

// HeaderLen is the fixed size in octets of the common PTP header.
const HeaderLen = 34

// Header is the common PTP header, Table-35-shaped, laid out in wire
// order so a plain binary.Write/binary.Read round-trips it without
// any manual offset arithmetic.
type Header struct {
	TypeAndTransport   TypeAndTransport
	Version            uint8
	MessageLength      uint16
	DomainNumber       uint8
	Reserved1          uint8
	Flags              uint16
	CorrectionField    int64
	Reserved2          uint32
	SourcePortIdentity PortIdentity
	SequenceID         uint16
	Control            uint8
	LogMessageInterval int8
}

// Version2 is the only PTP version this core speaks.
const Version2 uint8 = 2

// MessageType is a convenience accessor over the packed octet.
func (h Header) MessageType() MessageType {
	return h.TypeAndTransport.MessageType()
}

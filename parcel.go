// Copyright 2017 Factom Foundation
// Use of this source code is governed by the MIT
// license that can be found in the LICENSE file.

package p2p

import (
	"fmt"
	"hash/crc32"
)

var crcTable = crc32.MakeTable(crc32.Koopman)

// Parcel is the atomic unit of communication between two peers. The payload is opaque
// to the peer manager, the router decides what it means.
type Parcel struct {
	Type    ParcelType
	Payload []byte
}

// NewParcel initializes a new parcel
func NewParcel(ptype ParcelType, payload []byte) *Parcel {
	p := new(Parcel)
	p.Type = ptype
	p.Payload = payload
	return p
}

// Checksum of the payload
func (p *Parcel) Checksum() uint32 {
	return crc32.Checksum(p.Payload, crcTable)
}

func (p *Parcel) String() string {
	return fmt.Sprintf("[%s] %dB", p.Type, len(p.Payload))
}

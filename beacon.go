package p2p

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// BeaconSize is the exact size of a discovery beacon datagram
const BeaconSize = len(beaconMagic) + 2 + RouterIDSize

// beaconMagic prefixes every discovery beacon
var beaconMagic = [8]byte{'m', 'y', 'c', 'e', 'l', 'i', 'u', 'm'}

var (
	errBeaconSize  = fmt.Errorf("beacon must be exactly %d bytes", BeaconSize)
	errBeaconMagic = fmt.Errorf("beacon magic mismatch")
	errBeaconPort  = fmt.Errorf("beacon announces port 0")
)

// Beacon announces a node on the local link. Port is the node's tcp listening port.
type Beacon struct {
	Port     uint16
	RouterID RouterID
}

// MarshalBinary encodes the beacon as magic | big endian port | router id
func (b Beacon) MarshalBinary() ([]byte, error) {
	buf := make([]byte, BeaconSize)
	copy(buf, beaconMagic[:])
	binary.BigEndian.PutUint16(buf[len(beaconMagic):], b.Port)
	copy(buf[len(beaconMagic)+2:], b.RouterID[:])
	return buf, nil
}

// ParseBeacon decodes a beacon datagram
func ParseBeacon(data []byte) (Beacon, error) {
	var b Beacon
	if len(data) != BeaconSize {
		return b, errBeaconSize
	}
	if !bytes.Equal(data[:len(beaconMagic)], beaconMagic[:]) {
		return b, errBeaconMagic
	}
	b.Port = binary.BigEndian.Uint16(data[len(beaconMagic):])
	if b.Port == 0 {
		return b, errBeaconPort
	}
	copy(b.RouterID[:], data[len(beaconMagic)+2:])
	return b, nil
}

func (b Beacon) String() string {
	return fmt.Sprintf("beacon(%d, %s)", b.Port, b.RouterID)
}

package p2p

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// RouterIDSize is the size of a router identifier in bytes
const RouterIDSize = 40

// RouterID uniquely identifies a node in the overlay
type RouterID [RouterIDSize]byte

// NewRouterID generates a random router identifier
func NewRouterID() (RouterID, error) {
	var id RouterID
	if _, err := rand.Read(id[:]); err != nil {
		return id, err
	}
	return id, nil
}

// ParseRouterID decodes the hex representation of a router id
func ParseRouterID(s string) (RouterID, error) {
	var id RouterID
	b, err := hex.DecodeString(s)
	if err != nil {
		return id, err
	}
	if len(b) != RouterIDSize {
		return id, fmt.Errorf("router id must be %d bytes, got %d", RouterIDSize, len(b))
	}
	copy(id[:], b)
	return id, nil
}

func (id RouterID) String() string {
	return hex.EncodeToString(id[:])
}

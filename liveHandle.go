package p2p

import "weak"

// LiveHandle is a non-owning reference to a Peer. It can tell whether the peer is still
// alive, but it does not keep the peer around nor does it grant access to the peer's
// connection. The zero value belongs to a peer that never existed and is never alive.
type LiveHandle struct {
	done <-chan struct{}
	peer weak.Pointer[Peer]
}

// Alive reports whether the referenced peer is still running. Once a handle reports
// false it never reports true again.
func (h LiveHandle) Alive() bool {
	if h.done == nil {
		return false
	}
	select {
	case <-h.done:
		return false
	default:
		return true
	}
}

// upgrade returns the peer if it has not been garbage collected yet
func (h LiveHandle) upgrade() *Peer {
	if h.done == nil {
		return nil
	}
	return h.peer.Value()
}

package p2p

import (
	"fmt"
	"sync"
)

// PeerStore holds active Peers, managing them in a concurrency safe
// manner and providing lookup via various functions
type PeerStore struct {
	mtx       sync.RWMutex
	peers     map[string]*Peer // hash -> peer
	connected map[string]int   // remote -> count
	curSlice  []*Peer
	incoming  int
	outgoing  int
}

// NewPeerStore initializes a new peer store
func NewPeerStore() *PeerStore {
	ps := new(PeerStore)
	ps.peers = make(map[string]*Peer)
	ps.connected = make(map[string]int)
	return ps
}

// Add a peer. Peers are identified by their hash, adding the same peer twice fails.
func (ps *PeerStore) Add(p *Peer) error {
	ps.mtx.Lock()
	defer ps.mtx.Unlock()
	if _, ok := ps.peers[p.Hash]; ok {
		return fmt.Errorf("peer %s already exists", p.Hash)
	}
	ps.curSlice = nil
	ps.peers[p.Hash] = p
	ps.connected[p.Remote]++

	if p.IsIncoming {
		ps.incoming++
	} else {
		ps.outgoing++
	}
	return nil
}

// Remove a peer. Returns false if the peer was not in the store.
func (ps *PeerStore) Remove(p *Peer) bool {
	ps.mtx.Lock()
	defer ps.mtx.Unlock()
	old, ok := ps.peers[p.Hash]
	if !ok || old != p { // pointer comparison
		return false
	}

	ps.connected[p.Remote]--
	if ps.connected[p.Remote] <= 0 {
		delete(ps.connected, p.Remote)
	}
	if old.IsIncoming {
		ps.incoming--
	} else {
		ps.outgoing--
	}
	ps.curSlice = nil
	delete(ps.peers, p.Hash)
	return true
}

func (ps *PeerStore) Total() int {
	ps.mtx.RLock()
	defer ps.mtx.RUnlock()
	return len(ps.peers)
}

// Unique is the number of distinct remote addresses
func (ps *PeerStore) Unique() int {
	ps.mtx.RLock()
	defer ps.mtx.RUnlock()
	return len(ps.connected)
}

func (ps *PeerStore) Incoming() int {
	ps.mtx.RLock()
	defer ps.mtx.RUnlock()
	return ps.incoming
}

func (ps *PeerStore) Outgoing() int {
	ps.mtx.RLock()
	defer ps.mtx.RUnlock()
	return ps.outgoing
}

func (ps *PeerStore) Get(hash string) *Peer {
	ps.mtx.RLock()
	defer ps.mtx.RUnlock()
	return ps.peers[hash]
}

// Count returns how many peers are connected to the remote address
func (ps *PeerStore) Count(remote string) int {
	ps.mtx.RLock()
	defer ps.mtx.RUnlock()
	return ps.connected[remote]
}

// Slice returns all peers. The slice is shared between callers until the store changes
// and must not be modified.
func (ps *PeerStore) Slice() []*Peer {
	ps.mtx.Lock()
	defer ps.mtx.Unlock()

	if ps.curSlice != nil {
		return ps.curSlice
	}
	r := make([]*Peer, 0, len(ps.peers))
	for _, p := range ps.peers {
		r = append(r, p)
	}
	ps.curSlice = r
	return r
}

package p2p

// RouterLinks are the channels a Peer uses to hand traffic to the router.
// They are copied out of the router once and reused without further locking.
type RouterLinks struct {
	// Data receives data plane parcels
	Data chan<- PeerParcel
	// Control receives routing protocol parcels
	Control chan<- PeerParcel
	// DeadPeers is notified once by every peer whose connection died
	DeadPeers chan<- *Peer
}

// Router is the consumer of established peers. It owns the peers once they are handed
// over and maintains the routing state that references them.
type Router interface {
	// RouterID is the identifier of the local node
	RouterID() RouterID
	// Links returns the channels new peers are wired into
	Links() RouterLinks
	// AddPeerInterface takes ownership of a freshly connected peer
	AddPeerInterface(p *Peer)
	// HandleDeadPeer retracts all state referencing a peer that is no longer usable
	HandleDeadPeer(p *Peer)
}

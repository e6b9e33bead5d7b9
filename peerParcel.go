package p2p

// PeerParcel correlates a parcel with the peer that received it
type PeerParcel struct {
	Peer   *Peer
	Parcel *Parcel
}

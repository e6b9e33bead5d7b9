package p2p

// PeerOrigin details how the peer manager learned about an endpoint. It decides
// how an entry is reconnected and when it is forgotten.
type PeerOrigin uint8

// The ways an endpoint can enter the registry
const (
	// OriginStatic endpoints come from the configuration and are retried forever
	OriginStatic PeerOrigin = iota
	// OriginDiscovered endpoints were announced by a link local discovery beacon
	OriginDiscovered
	// OriginInbound endpoints belong to remotes that connected to us, they are never dialed
	OriginInbound
)

func (o PeerOrigin) String() string {
	switch o {
	case OriginStatic:
		return "static"
	case OriginDiscovered:
		return "discovered"
	case OriginInbound:
		return "inbound"
	default:
		return "unknown"
	}
}

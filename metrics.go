package p2p

// Metrics is the sink the peer manager reports its activity to. Implementations must not
// block; they are called while the registry is locked.
type Metrics interface {
	// PeerAdded is called whenever a new entry enters the registry
	PeerAdded(origin PeerOrigin)
	// KnownPeers reports the size of the registry after it changed
	KnownPeers(count int)
	// ConnectionAttempted is called when an outbound attempt is launched
	ConnectionAttempted()
	// ConnectionFinished is called when an outbound attempt completed
	ConnectionFinished(success bool)
	// DiscoveryBeacon is called for every received beacon datagram
	DiscoveryBeacon(accepted bool)
}

// NoMetrics discards everything
type NoMetrics struct{}

var _ Metrics = NoMetrics{}

func (NoMetrics) PeerAdded(PeerOrigin)    {}
func (NoMetrics) KnownPeers(int)          {}
func (NoMetrics) ConnectionAttempted()    {}
func (NoMetrics) ConnectionFinished(bool) {}
func (NoMetrics) DiscoveryBeacon(bool)    {}

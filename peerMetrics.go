package p2p

import "time"

// PeerMetrics is a point in time summary of a peer's connection
type PeerMetrics struct {
	Hash      string
	Remote    string
	Transport Transport
	Incoming  bool

	Connected   time.Time
	LastReceive time.Time
	LastSend    time.Time

	MPSDown float64
	MPSUp   float64
	BPSDown float64
	BPSUp   float64

	SendQueue     int
	SendUsageRate float64
}

// GetMetrics returns the current metrics of the peer
func (p *Peer) GetMetrics() PeerMetrics {
	m := PeerMetrics{
		Hash:          p.Hash,
		Remote:        p.Remote,
		Transport:     p.Transport,
		Incoming:      p.IsIncoming,
		Connected:     p.connected,
		SendQueue:     len(p.send),
		SendUsageRate: p.send.Capacity(),
	}
	if ns := p.lastReceive.Load(); ns > 0 {
		m.LastReceive = time.Unix(0, ns)
	}
	if ns := p.lastSend.Load(); ns > 0 {
		m.LastSend = time.Unix(0, ns)
	}
	m.MPSDown, m.MPSUp, m.BPSDown, m.BPSUp = p.measure.GetRate()
	return m
}

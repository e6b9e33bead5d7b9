package p2p

import (
	"context"

	log "github.com/sirupsen/logrus"
)

var switchLogger = packageLogger.WithField("subpack", "switch")

// Switch is a minimal Router. It keeps track of the peers it was given and passes all
// parcels they receive to a single handler, without any routing logic of its own.
type Switch struct {
	id    RouterID
	peers *PeerStore

	data    chan PeerParcel
	control chan PeerParcel
	dead    chan *Peer

	logger *log.Entry
}

var _ Router = (*Switch)(nil)

// NewSwitch creates a switch for the local router id. Capacity is the size of the
// data and control channels.
func NewSwitch(id RouterID, capacity uint) *Switch {
	s := new(Switch)
	s.id = id
	s.peers = NewPeerStore()
	s.data = make(chan PeerParcel, capacity)
	s.control = make(chan PeerParcel, capacity)
	s.dead = make(chan *Peer, 16)
	s.logger = switchLogger.WithField("router", id.String()[:16])
	return s
}

func (s *Switch) RouterID() RouterID {
	return s.id
}

func (s *Switch) Links() RouterLinks {
	return RouterLinks{Data: s.data, Control: s.control, DeadPeers: s.dead}
}

func (s *Switch) AddPeerInterface(p *Peer) {
	if err := s.peers.Add(p); err != nil {
		s.logger.WithError(err).Warn("Unable to add peer")
		return
	}
	// the peer may have stopped before it was added, its dead notification is lost
	select {
	case <-p.Done():
		s.peers.Remove(p)
		s.logger.Debugf("Peer %s stopped before it was added", p)
		return
	default:
	}
	s.logger.Infof("Peer %s online (%d total)", p, s.peers.Total())
}

func (s *Switch) HandleDeadPeer(p *Peer) {
	if s.peers.Remove(p) {
		s.logger.Infof("Peer %s offline (%d total)", p, s.peers.Total())
	}
	p.Stop()
}

// Peers returns all live peers
func (s *Switch) Peers() []*Peer {
	return s.peers.Slice()
}

// Broadcast queues the parcel on every peer and returns the number of peers it was
// queued for
func (s *Switch) Broadcast(parcel *Parcel) int {
	sent := 0
	for _, p := range s.peers.Slice() {
		if p.Send(parcel) {
			sent++
		}
	}
	return sent
}

// Run processes peer traffic until the context is cancelled. Data and control parcels
// are both passed to deliver.
func (s *Switch) Run(ctx context.Context, deliver func(PeerParcel)) {
	s.logger.Debug("Start Run()")
	defer s.logger.Debug("Stop Run()")
	for {
		select {
		case <-ctx.Done():
			return
		case pp := <-s.control:
			deliver(pp)
		case pp := <-s.data:
			deliver(pp)
		case p := <-s.dead:
			s.HandleDeadPeer(p)
		}
	}
}

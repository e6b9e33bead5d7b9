// Copyright 2017 Factom Foundation
// Use of this source code is governed by the MIT
// license that can be found in the LICENSE file.

package p2p

import (
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"
	"weak"

	log "github.com/sirupsen/logrus"
)

var peerLogger = packageLogger.WithField("subpack", "peer")

var peerCounter atomic.Uint64

// PeerConn is the byte stream a peer runs on. Both tcp connections and quic streams
// satisfy it.
type PeerConn interface {
	io.ReadWriteCloser
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
}

// Peer is an established session with a remote node. Received parcels are forwarded
// to the router, the peer announces its own death on the router's dead peer sink.
type Peer struct {
	// Hash identifies this particular session
	Hash string
	// Remote is the address of the other side of the connection
	Remote string
	// Transport the session runs on
	Transport Transport
	// IsIncoming is true if the remote connected to us
	IsIncoming bool

	conn  PeerConn
	codec *frameCodec
	links RouterLinks
	conf  *Configuration

	send    ParcelChannel
	done    chan struct{}
	stopper sync.Once

	connected   time.Time
	lastSend    atomic.Int64
	lastReceive atomic.Int64
	measure     *Measure

	logger *log.Entry
}

// newPeer wraps an established connection and immediately starts reading and writing
func newPeer(conf *Configuration, links RouterLinks, conn PeerConn, t Transport, remote string, incoming bool) *Peer {
	p := new(Peer)
	p.conf = conf
	p.links = links
	p.conn = conn
	p.codec = newFrameCodec(conn)
	p.Transport = t
	p.Remote = remote
	p.IsIncoming = incoming
	p.Hash = fmt.Sprintf("%s://%s#%d", t, remote, peerCounter.Add(1))

	p.send = NewParcelChannel(conf.ChannelCapacity)
	p.done = make(chan struct{})
	p.connected = time.Now()
	p.measure = NewMeasure(time.Second * 15)

	p.logger = peerLogger.WithFields(log.Fields{
		"node":     conf.NodeName,
		"hash":     p.Hash,
		"incoming": incoming,
	})
	p.logger.Debug("Creating new peer")

	go p.readLoop()
	go p.sendLoop()
	return p
}

// Refer returns a weak liveness handle for this peer
func (p *Peer) Refer() LiveHandle {
	return LiveHandle{done: p.done, peer: weak.Make(p)}
}

// Done is closed once the peer has stopped
func (p *Peer) Done() <-chan struct{} {
	return p.done
}

// Stop disconnects the peer from its active connection and notifies the router.
// Safe to call multiple times.
func (p *Peer) Stop() {
	p.stopper.Do(func() {
		close(p.done)
		if p.conn != nil {
			p.conn.Close()
		}
		if p.measure != nil {
			p.measure.Stop()
		}
		p.logger.Debug("Peer stopped")

		if p.links.DeadPeers != nil {
			go func() { p.links.DeadPeers <- p }()
		}
	})
}

// Send queues a parcel for this peer. Returns false if the peer is stopped or the
// parcel could not be queued.
func (p *Peer) Send(parcel *Parcel) bool {
	select {
	case <-p.done:
		return false
	default:
	}
	added, _ := p.send.Send(parcel)
	return added
}

func (p *Peer) String() string {
	return p.Hash
}

// Connected is the moment the connection was established
func (p *Peer) Connected() time.Time {
	return p.connected
}

// LastSendAge is the time since the last parcel was written
func (p *Peer) LastSendAge() time.Duration {
	return time.Since(time.Unix(0, p.lastSend.Load()))
}

// LastReceiveAge is the time since the last parcel was read
func (p *Peer) LastReceiveAge() time.Duration {
	return time.Since(time.Unix(0, p.lastReceive.Load()))
}

func (p *Peer) readLoop() {
	defer p.Stop()
	for {
		if p.conf.ReadDeadline > 0 {
			p.conn.SetReadDeadline(time.Now().Add(p.conf.ReadDeadline))
		}
		parcel, err := p.codec.Receive()
		if err != nil {
			p.logger.WithError(err).Debug("connection error (readLoop)")
			return
		}

		p.lastReceive.Store(time.Now().UnixNano())
		p.measure.Receive(uint64(len(parcel.Payload)))

		target := p.links.Data
		if parcel.Type == TypeControl {
			target = p.links.Control
		}
		if target == nil {
			continue
		}

		select {
		case target <- PeerParcel{Peer: p, Parcel: parcel}:
		case <-p.done:
			return
		}
	}
}

// sendLoop listens to the send channel, pushing all data from there
// to the connection
func (p *Peer) sendLoop() {
	defer p.Stop()
	for {
		select {
		case <-p.done:
			return
		case parcel := <-p.send:
			if parcel == nil {
				p.logger.Error("Received <nil> pointer")
				continue
			}

			if p.conf.WriteDeadline > 0 {
				p.conn.SetWriteDeadline(time.Now().Add(p.conf.WriteDeadline))
			}
			if err := p.codec.Send(parcel); err != nil { // no error is recoverable
				p.logger.WithError(err).Debug("connection error (sendLoop)")
				return
			}
			p.lastSend.Store(time.Now().UnixNano())
			p.measure.Send(uint64(len(parcel.Payload)))
		}
	}
}

package p2p

import (
	"net"
	"sync"
	"testing"
	"time"

	"github.com/lightningnetwork/lnd/ticker"
	"github.com/stretchr/testify/require"
)

// mockRouter records the calls made by the peer manager
type mockRouter struct {
	id RouterID

	mtx    sync.Mutex
	added  []*Peer
	dead   []*Peer
	events []string

	// onDead is called inside HandleDeadPeer, before the call is recorded
	onDead func(p *Peer)

	data      chan PeerParcel
	control   chan PeerParcel
	deadPeers chan *Peer
}

func newMockRouter(t *testing.T) *mockRouter {
	id, err := NewRouterID()
	require.NoError(t, err)
	return &mockRouter{
		id:        id,
		data:      make(chan PeerParcel, 16),
		control:   make(chan PeerParcel, 16),
		deadPeers: make(chan *Peer, 16),
	}
}

func (r *mockRouter) RouterID() RouterID { return r.id }

func (r *mockRouter) Links() RouterLinks {
	return RouterLinks{Data: r.data, Control: r.control, DeadPeers: r.deadPeers}
}

func (r *mockRouter) AddPeerInterface(p *Peer) {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	r.added = append(r.added, p)
	r.events = append(r.events, "add "+p.Hash)
}

func (r *mockRouter) HandleDeadPeer(p *Peer) {
	if r.onDead != nil {
		r.onDead(p)
	}
	r.mtx.Lock()
	defer r.mtx.Unlock()
	r.dead = append(r.dead, p)
	r.events = append(r.events, "dead "+p.Hash)
}

func (r *mockRouter) Added() []*Peer {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	return append([]*Peer(nil), r.added...)
}

func (r *mockRouter) Events() []string {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	return append([]string(nil), r.events...)
}

// countingMetrics counts the calls of the peer manager
type countingMetrics struct {
	mtx       sync.Mutex
	added     map[PeerOrigin]int
	known     int
	attempts  int
	successes int
	failures  int
	accepted  int
	rejected  int
}

func newCountingMetrics() *countingMetrics {
	return &countingMetrics{added: make(map[PeerOrigin]int)}
}

func (c *countingMetrics) PeerAdded(origin PeerOrigin) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	c.added[origin]++
}

func (c *countingMetrics) KnownPeers(count int) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	c.known = count
}

func (c *countingMetrics) ConnectionAttempted() {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	c.attempts++
}

func (c *countingMetrics) ConnectionFinished(success bool) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	if success {
		c.successes++
	} else {
		c.failures++
	}
}

func (c *countingMetrics) DiscoveryBeacon(accepted bool) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	if accepted {
		c.accepted++
	} else {
		c.rejected++
	}
}

func (c *countingMetrics) Attempts() int {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	return c.attempts
}

func testConfiguration() *Configuration {
	conf := DefaultP2PConfiguration()
	conf.NodeName = "UnitTestNode"
	conf.BindIP = "127.0.0.1"
	conf.StreamPort = 0
	conf.SecurePort = 0
	conf.DisableDiscovery = true
	conf.EnablePrometheus = false
	conf.DialTimeout = time.Second * 2
	conf.ConnectInterval = time.Hour
	conf.BeaconInterval = time.Hour
	return &conf
}

// testManager creates a manager that has not bound any sockets
func testManager(t *testing.T, r Router, conf *Configuration) *PeerManager {
	m := newPeerManager(r, conf, ticker.NewForce(time.Hour), ticker.NewForce(time.Hour))
	t.Cleanup(m.Stop)
	return m
}

// pipePeer creates a peer on one end of an in-memory connection and returns the other end
func pipePeer(t *testing.T, conf *Configuration, links RouterLinks, incoming bool) (*Peer, net.Conn) {
	A, B := net.Pipe()
	p := newPeer(conf, links, A, TransportTCP, "pipe", incoming)
	t.Cleanup(func() {
		p.Stop()
		B.Close()
	})
	return p, B
}

func mustEndpoint(t *testing.T, raw string) Endpoint {
	ep, err := ParseEndpoint(raw)
	require.NoError(t, err)
	return ep
}

// findInfo looks up an endpoint in a registry snapshot
func findInfo(m *PeerManager, ep Endpoint) (PeerInfo, bool) {
	for _, info := range m.Snapshot() {
		if info.Endpoint == ep {
			return info, true
		}
	}
	return PeerInfo{}, false
}

package p2p

import (
	"context"
	"net"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/lightningnetwork/lnd/ticker"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
)

var managerLogger = packageLogger.WithField("subpack", "manager")

// defaultPrometheus is shared by all managers of the process
var defaultPrometheus = new(Prometheus)

// registryEntry is the state of a single endpoint
type registryEntry struct {
	origin         PeerOrigin
	connecting     bool
	handle         LiveHandle
	failedAttempts uint32
}

// attemptResult is the outcome of a connection attempt. A nil peer means failure.
type attemptResult struct {
	ep    Endpoint
	entry *registryEntry
	peer  *Peer
}

// PeerInfo is a point in time copy of a registry entry
type PeerInfo struct {
	Endpoint       Endpoint
	Origin         PeerOrigin
	Connecting     bool
	Alive          bool
	FailedAttempts uint32
}

// PeerManager keeps track of every endpoint the node knows about and makes sure there is
// a live connection to the ones it is supposed to be connected to. Established peers are
// handed to the Router.
type PeerManager struct {
	router  Router
	conf    *Configuration
	id      RouterID
	metrics Metrics

	mtx      sync.Mutex
	registry map[Endpoint]*registryEntry

	dialer    *Dialer
	secure    *secureTransport
	tcp       *LimitedListener
	discovery *localDiscovery

	results       chan attemptResult
	connectTicker ticker.Ticker
	beaconTicker  ticker.Ticker

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	stopper sync.Once

	logger *log.Entry
}

// NewPeerManager creates a peer manager for the router, binds all sockets and starts
// connecting to the static peers. The only fatal error is failing to set up the
// quic socket.
func NewPeerManager(router Router, conf *Configuration) (*PeerManager, error) {
	m := newPeerManager(router, conf, ticker.New(conf.ConnectInterval), ticker.New(conf.BeaconInterval))
	if conf.EnablePrometheus {
		defaultPrometheus.Setup(prometheus.DefaultRegisterer)
		m.metrics = defaultPrometheus
	}
	if err := m.start(); err != nil {
		m.cancel()
		return nil, err
	}
	return m, nil
}

// newPeerManager creates the registry without binding any sockets or starting any routines
func newPeerManager(router Router, conf *Configuration, connectTicker, beaconTicker ticker.Ticker) *PeerManager {
	m := new(PeerManager)
	m.router = router
	m.conf = conf
	m.id = router.RouterID()
	m.metrics = NoMetrics{}
	m.registry = make(map[Endpoint]*registryEntry)
	m.dialer = NewDialer(conf.BindIP, conf.DialTimeout)
	m.results = make(chan attemptResult)
	m.connectTicker = connectTicker
	m.beaconTicker = beaconTicker
	m.ctx, m.cancel = context.WithCancel(context.Background())

	m.logger = managerLogger.WithFields(log.Fields{
		"node":   conf.NodeName,
		"stream": conf.StreamPort,
		"secure": conf.SecurePort,
	})

	for _, ep := range conf.StaticPeers {
		if !ep.Valid() {
			m.logger.Warnf("Ignoring invalid static peer %s", ep)
			continue
		}
		if _, ok := m.registry[ep]; ok {
			continue
		}
		m.registry[ep] = &registryEntry{origin: OriginStatic}
	}
	return m
}

// start binds the listeners and launches the background routines
func (m *PeerManager) start() error {
	m.logger.Debug("Starting peer manager")

	secure, err := newSecureTransport(m.conf, m.id)
	if err != nil {
		return errors.Wrap(err, "unable to start secure transport")
	}
	m.secure = secure

	addr := net.JoinHostPort(m.conf.BindIP, strconv.Itoa(int(m.conf.StreamPort)))
	if l, err := NewLimitedListener(addr, m.conf.ListenLimit); err != nil {
		m.logger.WithError(err).Errorf("Unable to listen on %s, inbound tcp connections disabled", addr)
	} else {
		m.tcp = l
		m.wg.Add(1)
		go m.listenTCP(l)
	}

	m.wg.Add(1)
	go m.listenQUIC()

	if m.conf.DisableDiscovery {
		m.logger.Info("Local discovery disabled by configuration")
	} else if d, err := newLocalDiscovery(m.conf, m.id); err != nil {
		m.logger.WithError(err).Warn("Local discovery disabled")
	} else {
		m.logger.WithField("interfaces", len(d.ifaces)).Info("Local discovery enabled")
		m.discovery = d
		m.wg.Add(1)
		go m.discoveryLoop(d)
	}

	m.wg.Add(1)
	go m.connectLoop()
	return nil
}

// Stop shuts down all routines and closes the sockets. Peers that were handed to the
// router are not affected.
func (m *PeerManager) Stop() {
	m.stopper.Do(func() {
		m.logger.Debug("Stopping peer manager")
		m.cancel()
		if m.tcp != nil {
			m.tcp.Close()
		}
		if m.discovery != nil {
			m.discovery.Close()
		}
		m.wg.Wait()
		if m.secure != nil {
			m.secure.Close()
		}
	})
}

// TCPAddr is the address the tcp listener is bound to, nil if there is none
func (m *PeerManager) TCPAddr() net.Addr {
	if m.tcp == nil {
		return nil
	}
	return m.tcp.Addr()
}

// QUICAddr is the address of the quic socket, nil if not started
func (m *PeerManager) QUICAddr() net.Addr {
	if m.secure == nil {
		return nil
	}
	return m.secure.Addr()
}

// addOrReplace is the only way endpoints enter the registry.
//
// Unknown endpoints are added and their peer, if any, is handed to the router. A known
// endpoint is only replaced by an inbound peer, in which case the router is told about the
// old peer's death after the new peer is in place. Everything else is ignored.
func (m *PeerManager) addOrReplace(ep Endpoint, origin PeerOrigin, peer *Peer) {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	entry := &registryEntry{origin: origin}
	if peer != nil {
		entry.handle = peer.Refer()
	}

	old, known := m.registry[ep]
	if !known {
		m.registry[ep] = entry
		m.logger.Debugf("Added %s peer %s", origin, ep)
		m.metrics.PeerAdded(origin)
		m.metrics.KnownPeers(len(m.registry))
		if peer != nil {
			m.router.AddPeerInterface(peer)
		}
		return
	}

	if origin != OriginInbound {
		if peer != nil {
			peer.Stop()
		}
		return
	}

	m.registry[ep] = entry
	m.metrics.PeerAdded(origin)
	if peer != nil {
		m.router.AddPeerInterface(peer)
	}
	m.logger.Debugf("Replaced %s entry of %s with an inbound peer", old.origin, ep)

	if old.handle.Alive() {
		if oldPeer := old.handle.upgrade(); oldPeer != nil {
			m.router.HandleDeadPeer(oldPeer)
		}
	}
}

// Snapshot returns the state of the registry, ordered by endpoint
func (m *PeerManager) Snapshot() []PeerInfo {
	m.mtx.Lock()
	infos := make([]PeerInfo, 0, len(m.registry))
	for ep, e := range m.registry {
		infos = append(infos, PeerInfo{
			Endpoint:       ep,
			Origin:         e.origin,
			Connecting:     e.connecting,
			Alive:          e.handle.Alive(),
			FailedAttempts: e.failedAttempts,
		})
	}
	m.mtx.Unlock()

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Endpoint.String() < infos[j].Endpoint.String()
	})
	return infos
}

// connectLoop sweeps the registry on every tick and processes the results of the
// attempts the sweeps started
func (m *PeerManager) connectLoop() {
	defer m.wg.Done()
	m.logger.Debug("Start connectLoop()")
	defer m.logger.Debug("Stop connectLoop()")

	m.connectTicker.Resume()
	defer m.connectTicker.Stop()

	m.sweep()
	for {
		select {
		case <-m.ctx.Done():
			return
		case <-m.connectTicker.Ticks():
			m.sweep()
		case res := <-m.results:
			m.finishAttempt(res)
		}
	}
}

// sweep forgets dead inbound peers and launches a connection attempt for every other
// endpoint without a live peer
func (m *PeerManager) sweep() {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	start := time.Now()
	launched := 0
	for ep, e := range m.registry {
		if e.origin == OriginInbound {
			if !e.handle.Alive() {
				m.logger.Debugf("Removing dead inbound peer %s", ep)
				delete(m.registry, ep)
			}
			continue
		}

		if e.connecting || e.handle.Alive() {
			continue
		}

		e.connecting = true
		launched++
		m.metrics.ConnectionAttempted()
		m.wg.Add(1)
		go m.attempt(ep, e)
	}
	m.metrics.KnownPeers(len(m.registry))

	if launched > 0 {
		m.logger.Debugf("Sweep launched %d connection attempts in %s", launched, time.Since(start))
	}
}

// finishAttempt applies the result of an attempt to the registry
func (m *PeerManager) finishAttempt(res attemptResult) {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	m.metrics.ConnectionFinished(res.peer != nil)

	e, ok := m.registry[res.ep]
	if !ok || e != res.entry {
		m.logger.Debugf("Discarding connection attempt result for %s, entry is gone", res.ep)
		if res.peer != nil {
			res.peer.Stop()
		}
		return
	}

	e.connecting = false
	if res.peer == nil {
		e.failedAttempts++
		if e.origin == OriginDiscovered && e.failedAttempts >= m.conf.MaxDiscoveryAttempts {
			m.logger.Debugf("Forgetting discovered peer %s after %d failed attempts", res.ep, e.failedAttempts)
			delete(m.registry, res.ep)
			m.metrics.KnownPeers(len(m.registry))
		}
		return
	}

	e.failedAttempts = 0
	e.handle = res.peer.Refer()
	m.logger.Infof("Connected to %s peer %s", e.origin, res.ep)
	m.router.AddPeerInterface(res.peer)
}

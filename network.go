package p2p

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Network is a node: a Switch as router with a PeerManager feeding it peers
type Network struct {
	running      bool
	runningMutex sync.Mutex

	conf    *Configuration
	id      RouterID
	sw      *Switch
	manager *PeerManager

	// ToNetwork parcels are broadcast to every peer
	ToNetwork ParcelChannel
	// FromNetwork receives the parcels of all peers
	FromNetwork chan PeerParcel

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	logger *log.Entry
}

var packageLogger = log.WithField("package", "p2p")

// NewNetwork creates a node with a random router id
func NewNetwork(conf Configuration) (*Network, error) {
	id, err := NewRouterID()
	if err != nil {
		return nil, errors.Wrap(err, "unable to generate router id")
	}

	myconf := conf
	n := new(Network)
	n.conf = &myconf
	n.id = id
	n.logger = packageLogger.WithFields(log.Fields{"subpack": "network", "node": conf.NodeName})

	n.sw = NewSwitch(id, conf.ChannelCapacity)
	n.ToNetwork = NewParcelChannel(conf.ChannelCapacity)
	n.FromNetwork = make(chan PeerParcel, conf.ChannelCapacity)
	return n, nil
}

// Start binds all sockets and starts connecting to peers
func (n *Network) Start() error {
	n.runningMutex.Lock()
	defer n.runningMutex.Unlock()
	if n.running {
		n.logger.Error("Tried to start the P2P Network even though it's already running")
		return nil
	}

	n.logger.WithField("router", n.id).Info("Starting the P2P Network")
	if n.conf.SeedURL != "" {
		eps, err := newSeed(n.conf.SeedURL, n.conf.DialTimeout).retrieve(context.Background())
		if err != nil {
			n.logger.WithError(err).Error("Unable to retrieve peers from seed")
		} else {
			n.logger.Infof("Retrieved %d peers from seed", len(eps))
			n.conf.StaticPeers = append(n.conf.StaticPeers, eps...)
		}
	}

	manager, err := NewPeerManager(n.sw, n.conf)
	if err != nil {
		return err
	}
	n.manager = manager
	n.ctx, n.cancel = context.WithCancel(context.Background())

	n.wg.Add(2)
	go func() {
		defer n.wg.Done()
		n.sw.Run(n.ctx, n.deliver)
	}()
	go n.broadcastLoop()

	n.running = true
	return nil
}

// Stop shuts down the peer manager and disconnects all peers
func (n *Network) Stop() {
	n.runningMutex.Lock()
	defer n.runningMutex.Unlock()
	if !n.running {
		return
	}
	n.manager.Stop()
	n.cancel()
	n.wg.Wait()
	for _, p := range n.sw.Peers() {
		p.Stop()
	}
	n.running = false
}

// ID is the router id of this node
func (n *Network) ID() RouterID {
	return n.id
}

// Manager returns the peer manager, nil if the network has not been started
func (n *Network) Manager() *PeerManager {
	n.runningMutex.Lock()
	defer n.runningMutex.Unlock()
	return n.manager
}

// Switch returns the router of this node
func (n *Network) Switch() *Switch {
	return n.sw
}

func (n *Network) deliver(pp PeerParcel) {
	select {
	case n.FromNetwork <- pp:
	default:
		n.logger.Warnf("FromNetwork is full, dropping parcel from %s", pp.Peer)
	}
}

func (n *Network) broadcastLoop() {
	defer n.wg.Done()
	for {
		select {
		case <-n.ctx.Done():
			return
		case parcel := <-n.ToNetwork:
			if parcel == nil {
				continue
			}
			n.sw.Broadcast(parcel)
		}
	}
}

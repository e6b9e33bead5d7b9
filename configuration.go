package p2p

import (
	"time"
)

// Configuration defines the behavior of the peer manager and the connections it creates
type Configuration struct {
	// NodeName is the internal name of the node, used in logs
	NodeName string

	// === Peer Management Settings ===
	// StaticPeers are the endpoints to connect to on startup. They are reconnected
	// whenever their connection dies.
	StaticPeers []Endpoint
	// SeedURL points to a list of additional static peers, one endpoint per line.
	// It is fetched once when the network starts.
	SeedURL string
	// ConnectInterval dictates how often the registry is checked for dead peers
	ConnectInterval time.Duration
	// MaxDiscoveryAttempts is the number of consecutive failed connection attempts
	// after which a locally discovered peer is forgotten
	MaxDiscoveryAttempts uint32

	// === Discovery Settings ===
	// DisableDiscovery turns off link local peer discovery
	DisableDiscovery bool
	// DiscoveryPort is the udp port beacons are sent to and received on
	DiscoveryPort uint16
	// BeaconInterval dictates how often a discovery beacon is sent
	BeaconInterval time.Duration

	// === Connection Settings ===

	// BindIP is the ip address to bind to for listening and connecting
	//
	// leave blank to bind to all
	BindIP string
	// StreamPort is the port to listen to incoming tcp connections on.
	// It is also the port announced in discovery beacons.
	StreamPort uint16
	// SecurePort is the udp port of the quic socket, used both for listening and dialing
	SecurePort uint16
	// ListenLimit is the lockout period of accepting tcp connections from a single
	// ip after having a successful connection from that ip. Zero disables the limit.
	ListenLimit time.Duration

	// DialTimeout is the maximum time a tcp dial or quic stream setup may take
	DialTimeout time.Duration
	// ReadDeadline is the maximum time a peer can stay silent before being disconnected.
	// Zero leaves liveness detection to the router.
	ReadDeadline time.Duration
	// WriteDeadline is the maximum acceptable time to send a single parcel
	// if a connection takes longer, it is disconnected
	WriteDeadline time.Duration

	// QuicIdleTimeout closes quic connections that have been idle for this long.
	// Must be larger than QuicKeepAlive.
	QuicIdleTimeout time.Duration
	// QuicKeepAlive is the interval in which keep alive packets are sent
	QuicKeepAlive time.Duration
	// QuicMaxBidiStreams is the amount of bidirectional streams a remote may open
	QuicMaxBidiStreams int64

	// ChannelCapacity is the size of the send queue of a peer and of the router's channels
	ChannelCapacity uint

	LogPath  string // Path for logs
	LogLevel string // Logging level

	EnablePrometheus bool // Enable prometheus metrics. Disable if you run multiple instances
}

// DefaultP2PConfiguration returns a network configuration with base values
// These should be overwritten with command line and config parameters
func DefaultP2PConfiguration() (c Configuration) {
	c.NodeName = "Node0"

	c.ConnectInterval = time.Second * 5
	c.MaxDiscoveryAttempts = 3

	c.DisableDiscovery = false
	c.DiscoveryPort = 9650
	c.BeaconInterval = time.Minute

	c.BindIP = "" // bind to all
	c.StreamPort = 9651
	c.SecurePort = 9651
	c.ListenLimit = 0

	c.DialTimeout = time.Second * 10
	c.ReadDeadline = 0
	c.WriteDeadline = time.Minute

	c.QuicIdleTimeout = time.Minute    // higher than the keep alive so idle links survive
	c.QuicKeepAlive = time.Second * 20 // ditto
	c.QuicMaxBidiStreams = 5           // one is used, the rest is headroom

	c.ChannelCapacity = 1000

	c.LogLevel = "info"

	c.EnablePrometheus = true
	return
}

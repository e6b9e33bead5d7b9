package p2p

import (
	"net"
	"net/netip"
	"strconv"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/net/ipv6"
)

var discoveryLogger = packageLogger.WithField("subpack", "discovery")

// discoveryGroup is the link local multicast group beacons are sent to
var discoveryGroup = net.ParseIP("ff02::cafe")

// maxDatagram is the size of the receive buffer. Anything larger than a beacon is
// read in full so it can be rejected on its size.
const maxDatagram = 512

// localDiscovery is the multicast socket beacons are sent and received on
type localDiscovery struct {
	raw    net.PacketConn
	conn   *ipv6.PacketConn
	group  *net.UDPAddr
	ifaces []net.Interface
	beacon []byte
}

// beaconSocket sends our beacon and reads the datagrams of other nodes
type beaconSocket interface {
	Send()
	readLoop(out chan<- datagram, done <-chan struct{})
	Close() error
}

var _ beaconSocket = (*localDiscovery)(nil)

type datagram struct {
	src  netip.AddrPort
	data []byte
}

// interfaceLister returns the interfaces discovery runs on
var interfaceLister = linkLocalInterfaces

// linkLocalInterfaces lists the interfaces that have an address in fe80::/64
func linkLocalInterfaces() ([]net.Interface, error) {
	all, err := net.Interfaces()
	if err != nil {
		return nil, err
	}

	var ifaces []net.Interface
	for _, iface := range all {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagMulticast == 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, a := range addrs {
			ipnet, ok := a.(*net.IPNet)
			if !ok {
				continue
			}
			if addr, ok := netip.AddrFromSlice(ipnet.IP); ok && isLinkLocal(addr) {
				ifaces = append(ifaces, iface)
				break
			}
		}
	}
	return ifaces, nil
}

// newLocalDiscovery binds the discovery socket and joins the group on every link local
// interface
func newLocalDiscovery(conf *Configuration, id RouterID) (*localDiscovery, error) {
	ifaces, err := interfaceLister()
	if err != nil {
		return nil, errors.Wrap(err, "unable to list interfaces")
	}
	if len(ifaces) == 0 {
		return nil, errors.New("no interface with a link local address")
	}

	beacon, err := Beacon{Port: conf.StreamPort, RouterID: id}.MarshalBinary()
	if err != nil {
		return nil, err
	}

	raw, err := net.ListenPacket("udp6", net.JoinHostPort("::", strconv.Itoa(int(conf.DiscoveryPort))))
	if err != nil {
		return nil, errors.Wrapf(err, "unable to bind discovery port %d", conf.DiscoveryPort)
	}

	d := new(localDiscovery)
	d.raw = raw
	d.conn = ipv6.NewPacketConn(raw)
	d.group = &net.UDPAddr{IP: discoveryGroup, Port: int(conf.DiscoveryPort)}
	d.beacon = beacon

	for _, iface := range ifaces {
		if err := d.conn.JoinGroup(&iface, &net.UDPAddr{IP: discoveryGroup}); err != nil {
			discoveryLogger.WithError(err).Debugf("Unable to join discovery group on %s", iface.Name)
			continue
		}
		d.ifaces = append(d.ifaces, iface)
	}
	if len(d.ifaces) == 0 {
		raw.Close()
		return nil, errors.Errorf("unable to join group %s on any interface", discoveryGroup)
	}

	if err := d.conn.SetMulticastLoopback(false); err != nil {
		raw.Close()
		return nil, errors.Wrap(err, "unable to disable multicast loopback")
	}
	return d, nil
}

// Send transmits the beacon on every joined interface
func (d *localDiscovery) Send() {
	for _, iface := range d.ifaces {
		cm := &ipv6.ControlMessage{IfIndex: iface.Index}
		if _, err := d.conn.WriteTo(d.beacon, cm, d.group); err != nil {
			discoveryLogger.WithError(err).Debugf("Unable to send beacon on %s", iface.Name)
		}
	}
}

// readLoop forwards received datagrams until the socket is closed
func (d *localDiscovery) readLoop(out chan<- datagram, done <-chan struct{}) {
	defer close(out)
	buf := make([]byte, maxDatagram)
	for {
		n, _, src, err := d.conn.ReadFrom(buf)
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			discoveryLogger.WithError(err).Debug("Discovery read failed")
			continue
		}
		udp, ok := src.(*net.UDPAddr)
		if !ok {
			continue
		}

		data := make([]byte, n)
		copy(data, buf[:n])
		select {
		case out <- datagram{src: udp.AddrPort(), data: data}:
		case <-done:
			return
		}
	}
}

func (d *localDiscovery) Close() error {
	return d.raw.Close()
}

// discoveryLoop sends a beacon on every tick and handles the beacons of other nodes
func (m *PeerManager) discoveryLoop(d beaconSocket) {
	defer m.wg.Done()
	m.logger.Debug("Start discoveryLoop()")
	defer m.logger.Debug("Stop discoveryLoop()")

	packets := make(chan datagram, 16)
	go d.readLoop(packets, m.ctx.Done())

	m.beaconTicker.Resume()
	defer m.beaconTicker.Stop()

	d.Send()
	for {
		select {
		case <-m.ctx.Done():
			return
		case <-m.beaconTicker.Ticks():
			d.Send()
		case p, ok := <-packets:
			if !ok {
				return
			}
			m.handleDiscoveryPacket(p.src, p.data)
		}
	}
}

// handleDiscoveryPacket validates a received datagram and registers the sender.
// Returns true if the sender was passed on to the registry.
func (m *PeerManager) handleDiscoveryPacket(src netip.AddrPort, data []byte) bool {
	accepted := false
	defer func() { m.metrics.DiscoveryBeacon(accepted) }()

	logger := discoveryLogger.WithFields(log.Fields{"node": m.conf.NodeName, "source": src})
	if !isLinkLocal(src.Addr()) {
		logger.Trace("Dropping datagram from non link local address")
		return false
	}
	if len(data) != BeaconSize {
		logger.Tracef("Dropping datagram of size %d", len(data))
		return false
	}

	b, err := ParseBeacon(data)
	if err != nil {
		logger.WithError(err).Trace("Dropping invalid beacon")
		return false
	}
	if b.RouterID == m.id {
		logger.Debug("Ignoring our own beacon")
		return false
	}

	ep := NewEndpoint(TransportTCP, netip.AddrPortFrom(src.Addr(), b.Port))
	accepted = true
	m.addOrReplace(ep, OriginDiscovered, nil)
	return true
}

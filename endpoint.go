package p2p

import (
	"fmt"
	"net"
	"net/netip"
	"strings"
)

// Transport is the kind of connection used to reach a remote
type Transport uint8

// The transports a peer can be reached on
const (
	TransportTCP Transport = iota + 1
	TransportQUIC
)

var transportStrings = map[Transport]string{
	TransportTCP:  "tcp",
	TransportQUIC: "quic",
}

func (t Transport) String() string {
	if s, ok := transportStrings[t]; ok {
		return s
	}
	return fmt.Sprintf("transport(%d)", uint8(t))
}

// linkLocal is the part of the IPv6 link local block discovery accepts beacons from
var linkLocal = netip.MustParsePrefix("fe80::/64")

// Endpoint identifies a remote by the transport used to reach it and its socket address.
// Endpoints are comparable and used as the key of the peer registry. For link local
// addresses, the zone is part of the address and thus part of the identity.
type Endpoint struct {
	Transport Transport
	Addr      netip.AddrPort
}

// NewEndpoint creates an endpoint. IPv4-mapped IPv6 addresses are unmapped so that a remote
// arriving on a dual stack socket maps to the same endpoint as a configured IPv4 address.
func NewEndpoint(t Transport, addr netip.AddrPort) Endpoint {
	return Endpoint{Transport: t, Addr: netip.AddrPortFrom(addr.Addr().Unmap(), addr.Port())}
}

// EndpointFromNetAddr converts the address of an accepted connection into an endpoint
func EndpointFromNetAddr(t Transport, addr net.Addr) (Endpoint, error) {
	switch a := addr.(type) {
	case *net.TCPAddr:
		return NewEndpoint(t, a.AddrPort()), nil
	case *net.UDPAddr:
		return NewEndpoint(t, a.AddrPort()), nil
	}
	ap, err := netip.ParseAddrPort(addr.String())
	if err != nil {
		return Endpoint{}, fmt.Errorf("unable to parse address %s: %v", addr, err)
	}
	return NewEndpoint(t, ap), nil
}

// ParseEndpoint reads an endpoint in the form of "tcp://1.2.3.4:9651" or
// "quic://[fe80::1%eth0]:9651"
func ParseEndpoint(raw string) (Endpoint, error) {
	split := strings.SplitN(raw, "://", 2)
	if len(split) != 2 {
		return Endpoint{}, fmt.Errorf("endpoint %q is missing a transport prefix", raw)
	}

	var t Transport
	for k, v := range transportStrings {
		if strings.EqualFold(v, split[0]) {
			t = k
		}
	}
	if t == 0 {
		return Endpoint{}, fmt.Errorf("unknown transport %q", split[0])
	}

	ap, err := netip.ParseAddrPort(split[1])
	if err != nil {
		return Endpoint{}, fmt.Errorf("invalid address %q: %v", split[1], err)
	}
	if ap.Port() == 0 {
		return Endpoint{}, fmt.Errorf("endpoint %q has no port", raw)
	}
	return NewEndpoint(t, ap), nil
}

// Valid checks if the endpoint can be connected to
func (ep Endpoint) Valid() bool {
	if _, ok := transportStrings[ep.Transport]; !ok {
		return false
	}
	return ep.Addr.IsValid() && ep.Addr.Port() != 0
}

// UDPAddr returns the socket address for use with datagram sockets
func (ep Endpoint) UDPAddr() *net.UDPAddr {
	return net.UDPAddrFromAddrPort(ep.Addr)
}

func (ep Endpoint) String() string {
	return fmt.Sprintf("%s://%s", ep.Transport, ep.Addr)
}

// isLinkLocal checks whether the address is part of fe80::/64. The zone is ignored for
// the check since prefixes never contain zoned addresses.
func isLinkLocal(addr netip.Addr) bool {
	if !addr.Is6() || addr.Is4In6() {
		return false
	}
	return linkLocal.Contains(addr.WithZone(""))
}

package p2p

import (
	"net"
	"net/netip"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// errRateLimited is returned by LimitedListener.Accept for rejected connections
var errRateLimited = errors.New("connection rate limit exceeded")

// LimitedListener accepts at most one connection per remote ip within the limit.
// Rejected connections are closed and do not extend the lockout.
type LimitedListener struct {
	net.Listener

	limit time.Duration

	mtx     sync.Mutex
	seen    map[netip.Addr]time.Time
	trimmed time.Time
}

// NewLimitedListener binds a tcp listener. A limit of zero accepts every connection.
func NewLimitedListener(address string, limit time.Duration) (*LimitedListener, error) {
	if limit < 0 {
		return nil, errors.Errorf("invalid time limit %s", limit)
	}
	l, err := net.Listen("tcp", address)
	if err != nil {
		return nil, err
	}
	return &LimitedListener{
		Listener: l,
		limit:    limit,
		seen:     make(map[netip.Addr]time.Time),
	}, nil
}

// allow records the address if it has not been accepted within the limit
func (ll *LimitedListener) allow(addr netip.Addr, now time.Time) bool {
	ll.mtx.Lock()
	defer ll.mtx.Unlock()

	// forget expired addresses at most once per limit
	if now.Sub(ll.trimmed) >= ll.limit {
		for a, t := range ll.seen {
			if now.Sub(t) >= ll.limit {
				delete(ll.seen, a)
			}
		}
		ll.trimmed = now
	}

	if t, ok := ll.seen[addr]; ok && now.Sub(t) < ll.limit {
		return false
	}
	ll.seen[addr] = now
	return true
}

// remoteIP is the ip of a connection, ports and ipv4 mapping stripped
func remoteIP(con net.Conn) (netip.Addr, error) {
	if tcp, ok := con.RemoteAddr().(*net.TCPAddr); ok {
		return tcp.AddrPort().Addr().Unmap(), nil
	}
	ap, err := netip.ParseAddrPort(con.RemoteAddr().String())
	if err != nil {
		return netip.Addr{}, errors.Wrapf(err, "unable to parse remote address %s", con.RemoteAddr())
	}
	return ap.Addr().Unmap(), nil
}

// Accept waits for the next connection that is not rate limited
func (ll *LimitedListener) Accept() (net.Conn, error) {
	con, err := ll.Listener.Accept()
	if err != nil {
		return nil, err
	}
	if ll.limit == 0 {
		return con, nil
	}

	ip, err := remoteIP(con)
	if err != nil {
		con.Close()
		return nil, err
	}
	if !ll.allow(ip, time.Now()) {
		con.Close()
		return nil, errRateLimited
	}
	return con, nil
}

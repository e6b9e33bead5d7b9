package p2p

import (
	"context"
	"net"
	"time"

	"github.com/pkg/errors"
)

// Dialer opens tcp connections to remote endpoints. Connections are latency sensitive,
// so Nagle's algorithm is disabled on every connection it returns.
type Dialer struct {
	bindip  string
	timeout time.Duration
}

// NewDialer creates a new Dialer that binds outgoing connections to the given ip.
// An empty ip lets the operating system choose.
func NewDialer(ip string, timeout time.Duration) *Dialer {
	d := new(Dialer)
	d.bindip = ip
	d.timeout = timeout
	return d
}

// Dial an endpoint. Returns the active TCP connection or error if it failed to connect
func (d *Dialer) Dial(ctx context.Context, ep Endpoint) (*net.TCPConn, error) {
	if ep.Transport != TransportTCP {
		return nil, errors.Errorf("can not dial %s over tcp", ep)
	}

	dialer := net.Dialer{Timeout: d.timeout}
	if d.bindip != "" {
		local, err := net.ResolveTCPAddr("tcp", net.JoinHostPort(d.bindip, "0"))
		if err != nil {
			return nil, errors.Wrapf(err, "unable to resolve bind address %s", d.bindip)
		}
		dialer.LocalAddr = local
	}

	con, err := dialer.DialContext(ctx, "tcp", ep.Addr.String())
	if err != nil {
		return nil, err
	}

	tcp, ok := con.(*net.TCPConn)
	if !ok {
		con.Close()
		return nil, errors.Errorf("dialing %s did not produce a tcp connection", ep)
	}
	if err := tcp.SetNoDelay(true); err != nil {
		tcp.Close()
		return nil, errors.Wrap(err, "couldn't disable Nagle's algorithm")
	}
	return tcp, nil
}

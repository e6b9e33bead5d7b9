package p2p

import (
	"errors"
	"net"

	"github.com/quic-go/quic-go"
)

// listenTCP accepts incoming tcp connections until the listener is closed
func (m *PeerManager) listenTCP(l *LimitedListener) {
	defer m.wg.Done()
	tmpLogger := m.logger.WithField("address", l.Addr())
	tmpLogger.Debug("Start listenTCP()")
	defer tmpLogger.Debug("Stop listenTCP()")

	links := m.router.Links()
	for {
		con, err := l.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) || m.ctx.Err() != nil {
				return
			}
			tmpLogger.WithError(err).Debug("Error accepting tcp connection")
			continue
		}

		tcp, ok := con.(*net.TCPConn)
		if !ok {
			con.Close()
			continue
		}
		tcp.SetNoDelay(true)

		ep, err := EndpointFromNetAddr(TransportTCP, tcp.RemoteAddr())
		if err != nil {
			tmpLogger.WithError(err).Debug("Unable to determine remote endpoint")
			tcp.Close()
			continue
		}

		tmpLogger.Debugf("Accepted connection from %s", ep)
		peer := newPeer(m.conf, links, tcp, TransportTCP, ep.Addr.String(), true)
		m.addOrReplace(ep, OriginInbound, peer)
	}
}

// listenQUIC accepts incoming quic connections until the secure transport is closed
func (m *PeerManager) listenQUIC() {
	defer m.wg.Done()
	tmpLogger := m.logger.WithField("address", m.secure.Addr())
	tmpLogger.Debug("Start listenQUIC()")
	defer tmpLogger.Debug("Stop listenQUIC()")

	for {
		conn, err := m.secure.Accept(m.ctx)
		if err != nil {
			if m.ctx.Err() != nil || errors.Is(err, quic.ErrServerClosed) {
				return
			}
			tmpLogger.WithError(err).Debug("Error accepting quic connection")
			continue
		}

		m.wg.Add(1)
		go m.handleIncomingQUIC(conn)
	}
}

// handleIncomingQUIC waits for the remote to open the session stream
func (m *PeerManager) handleIncomingQUIC(conn quic.Connection) {
	defer m.wg.Done()

	ep, err := EndpointFromNetAddr(TransportQUIC, conn.RemoteAddr())
	if err != nil {
		m.logger.WithError(err).Debug("Unable to determine remote endpoint")
		conn.CloseWithError(0, "")
		return
	}

	stream, err := m.secure.acceptStream(m.ctx, conn)
	if err != nil {
		m.logger.WithError(err).Debugf("Quic handshake with %s failed", ep)
		return
	}

	m.logger.Debugf("Accepted connection from %s", ep)
	peer := newPeer(m.conf, m.router.Links(), stream, TransportQUIC, ep.Addr.String(), true)
	m.addOrReplace(ep, OriginInbound, peer)
}

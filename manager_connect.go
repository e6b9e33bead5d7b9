package p2p

import (
	"context"
)

// attempt connects to an endpoint and reports the result back to the connect loop
func (m *PeerManager) attempt(ep Endpoint, entry *registryEntry) {
	defer m.wg.Done()

	links := m.router.Links()

	var peer *Peer
	switch ep.Transport {
	case TransportTCP:
		peer = m.connectTCP(m.ctx, ep, links)
	case TransportQUIC:
		peer = m.connectQUIC(m.ctx, ep, links)
	default:
		m.logger.Errorf("Unable to connect to %s, unknown transport", ep)
	}

	select {
	case m.results <- attemptResult{ep: ep, entry: entry, peer: peer}:
	case <-m.ctx.Done():
		m.metrics.ConnectionFinished(false)
		if peer != nil {
			peer.Stop()
		}
	}
}

func (m *PeerManager) connectTCP(ctx context.Context, ep Endpoint, links RouterLinks) *Peer {
	con, err := m.dialer.Dial(ctx, ep)
	if err != nil {
		m.logger.WithError(err).Debugf("Failed to dial %s", ep)
		return nil
	}
	return newPeer(m.conf, links, con, TransportTCP, ep.Addr.String(), false)
}

func (m *PeerManager) connectQUIC(ctx context.Context, ep Endpoint, links RouterLinks) *Peer {
	if m.secure == nil {
		m.logger.Debugf("Unable to dial %s, secure transport not running", ep)
		return nil
	}
	stream, err := m.secure.Dial(ctx, ep)
	if err != nil {
		m.logger.WithError(err).Debugf("Failed to dial %s", ep)
		return nil
	}
	return newPeer(m.conf, links, stream, TransportQUIC, ep.Addr.String(), false)
}
